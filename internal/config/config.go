// Package config loads pipeline configuration from an optional YAML file
// overridden by environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderMistral   = "mistral"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderTogether  = "together"
	ProviderDeepSeek  = "deepseek"
)

// Config holds all configuration values.
type Config struct {
	// Completion capability
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	DiagnosisModel string        `yaml:"diagnosis_model"`
	Temperature    float64       `yaml:"temperature"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	BaseURL        string        `yaml:"base_url"` // custom OpenAI-compatible gateway
	OllamaHost     string        `yaml:"ollama_host"`

	// Credentials (environment only)
	OpenAIAPIKey    string `yaml:"-"`
	MistralAPIKey   string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	TogetherAPIKey  string `yaml:"-"`
	DeepSeekAPIKey  string `yaml:"-"`

	// Storage
	DataDir    string `yaml:"data_dir"`
	DBPath     string `yaml:"db_path"`
	PatchesDir string `yaml:"patches_dir"`

	// Prompt overrides (defaults are compiled in)
	ExtractionPromptFile string `yaml:"extraction_prompt_file"`
	DiagnosisPromptFile  string `yaml:"diagnosis_prompt_file"`

	// Diagnosis
	MaxExamples  int  `yaml:"max_examples"`
	AutoDiagnose bool `yaml:"auto_diagnose"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load builds the configuration: defaults, then the YAML config file if one
// exists (RECIPEFLOW_CONFIG or ./recipeflow.yaml), then environment
// variables on top.
func Load() (Config, error) {
	cfg := Config{
		Provider:       ProviderMistral,
		Model:          "open-mistral-7b",
		DiagnosisModel: "mistral-small-latest",
		Temperature:    0.1,
		RequestTimeout: 60 * time.Second,
		OllamaHost:     "http://localhost:11434",
		DataDir:        "data",
		MaxExamples:    3,
		LogFile:        "recipeflow.log",
		LogLevel:       slog.LevelInfo,
	}

	path := os.Getenv("RECIPEFLOW_CONFIG")
	if path == "" {
		path = "recipeflow.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "recipes.db")
	}
	if cfg.PatchesDir == "" {
		cfg.PatchesDir = filepath.Join(cfg.DataDir, "patches")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Provider = getEnv("RECIPEFLOW_PROVIDER", cfg.Provider)
	cfg.Model = getEnv("RECIPEFLOW_MODEL", cfg.Model)
	cfg.DiagnosisModel = getEnv("RECIPEFLOW_DIAGNOSIS_MODEL", cfg.DiagnosisModel)
	cfg.BaseURL = getEnv("RECIPEFLOW_BASE_URL", cfg.BaseURL)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)

	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.MistralAPIKey = getEnv("MISTRAL_API_KEY", cfg.MistralAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.TogetherAPIKey = getEnv("TOGETHER_AI_API_KEY", cfg.TogetherAPIKey)
	cfg.DeepSeekAPIKey = getEnv("DEEPSEEK_API_KEY", cfg.DeepSeekAPIKey)

	cfg.DataDir = getEnv("RECIPEFLOW_DATA_DIR", cfg.DataDir)
	cfg.DBPath = getEnv("RECIPEFLOW_DB_PATH", cfg.DBPath)
	cfg.PatchesDir = getEnv("RECIPEFLOW_PATCHES_DIR", cfg.PatchesDir)

	cfg.LogFile = getEnv("RECIPEFLOW_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = parseLogLevel(getEnv("RECIPEFLOW_LOG_LEVEL", ""))

	if v := os.Getenv("RECIPEFLOW_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = f
		}
	}
	if v := os.Getenv("RECIPEFLOW_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv("RECIPEFLOW_MAX_EXAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxExamples = n
		}
	}
	if v := os.Getenv("RECIPEFLOW_AUTO_DIAGNOSE"); v != "" {
		cfg.AutoDiagnose = v == "true" || v == "1"
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
