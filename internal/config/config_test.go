package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks out every variable Load reads so host environment does not
// leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RECIPEFLOW_CONFIG", "RECIPEFLOW_PROVIDER", "RECIPEFLOW_MODEL",
		"RECIPEFLOW_DIAGNOSIS_MODEL", "RECIPEFLOW_BASE_URL", "OLLAMA_HOST",
		"OPENAI_API_KEY", "MISTRAL_API_KEY", "ANTHROPIC_API_KEY",
		"TOGETHER_AI_API_KEY", "DEEPSEEK_API_KEY",
		"RECIPEFLOW_DATA_DIR", "RECIPEFLOW_DB_PATH", "RECIPEFLOW_PATCHES_DIR",
		"RECIPEFLOW_LOG_FILE", "RECIPEFLOW_LOG_LEVEL",
		"RECIPEFLOW_TEMPERATURE", "RECIPEFLOW_REQUEST_TIMEOUT",
		"RECIPEFLOW_MAX_EXAMPLES", "RECIPEFLOW_AUTO_DIAGNOSE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("RECIPEFLOW_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderMistral, cfg.Provider)
	assert.Equal(t, "open-mistral-7b", cfg.Model)
	assert.Equal(t, "mistral-small-latest", cfg.DiagnosisModel)
	assert.Equal(t, 0.1, cfg.Temperature)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.MaxExamples)
	assert.False(t, cfg.AutoDiagnose)
	assert.Equal(t, filepath.Join("data", "recipes.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join("data", "patches"), cfg.PatchesDir)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "recipeflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: openai
model: gpt-4o-mini
temperature: 0.3
data_dir: /var/lib/recipeflow
max_examples: 5
auto_diagnose: true
`), 0o644))
	t.Setenv("RECIPEFLOW_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 0.3, cfg.Temperature)
	assert.Equal(t, 5, cfg.MaxExamples)
	assert.True(t, cfg.AutoDiagnose)
	// Derived paths follow the configured data dir.
	assert.Equal(t, filepath.Join("/var/lib/recipeflow", "recipes.db"), cfg.DBPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "recipeflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: openai\nmodel: gpt-4o-mini\n"), 0o644))
	t.Setenv("RECIPEFLOW_CONFIG", path)
	t.Setenv("RECIPEFLOW_PROVIDER", "deepseek")
	t.Setenv("DEEPSEEK_API_KEY", "test-key")
	t.Setenv("RECIPEFLOW_TEMPERATURE", "0.7")
	t.Setenv("RECIPEFLOW_REQUEST_TIMEOUT", "90s")
	t.Setenv("RECIPEFLOW_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderDeepSeek, cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model, "file value survives when env is unset")
	assert.Equal(t, "test-key", cfg.DeepSeekAPIKey)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "recipeflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: [broken"), 0o644))
	t.Setenv("RECIPEFLOW_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("Error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}
