package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/akoval/recipeflow/internal/config"
)

// Default base URLs for the OpenAI-compatible gateways.
const (
	togetherBaseURL = "https://api.together.xyz/v1"
	deepSeekBaseURL = "https://api.deepseek.com"
)

// New creates a completion client for the configured provider. The model
// argument overrides cfg.Model, so extraction and diagnosis can run on
// different models against the same provider.
func New(cfg config.Config, model string) (Client, error) {
	if model == "" {
		model = cfg.Model
	}

	var backend llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is required for provider %q", ErrConfiguration, cfg.Provider)
		}
		opts := []openai.Option{openai.WithToken(cfg.OpenAIAPIKey), openai.WithModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		backend, err = openai.New(opts...)

	case config.ProviderTogether:
		if cfg.TogetherAPIKey == "" {
			return nil, fmt.Errorf("%w: TOGETHER_AI_API_KEY is required for provider %q", ErrConfiguration, cfg.Provider)
		}
		backend, err = openai.New(
			openai.WithToken(cfg.TogetherAPIKey),
			openai.WithModel(model),
			openai.WithBaseURL(baseURLOr(cfg.BaseURL, togetherBaseURL)),
		)

	case config.ProviderDeepSeek:
		if cfg.DeepSeekAPIKey == "" {
			return nil, fmt.Errorf("%w: DEEPSEEK_API_KEY is required for provider %q", ErrConfiguration, cfg.Provider)
		}
		backend, err = openai.New(
			openai.WithToken(cfg.DeepSeekAPIKey),
			openai.WithModel(model),
			openai.WithBaseURL(baseURLOr(cfg.BaseURL, deepSeekBaseURL)),
		)

	case config.ProviderMistral:
		if cfg.MistralAPIKey == "" {
			return nil, fmt.Errorf("%w: MISTRAL_API_KEY is required for provider %q", ErrConfiguration, cfg.Provider)
		}
		backend, err = mistral.New(
			mistral.WithAPIKey(cfg.MistralAPIKey),
			mistral.WithModel(model),
		)

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is required for provider %q", ErrConfiguration, cfg.Provider)
		}
		backend, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(model),
		)

	case config.ProviderOllama:
		backend, err = ollama.New(
			ollama.WithModel(model),
			ollama.WithServerURL(cfg.OllamaHost),
		)

	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrConfiguration, cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	return &chainClient{
		backend: backend,
		model:   model,
		timeout: cfg.RequestTimeout,
	}, nil
}

func baseURLOr(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

// chainClient adapts a langchaingo model to the Client interface and applies
// the configured per-call timeout.
type chainClient struct {
	backend llms.Model
	model   string
	timeout time.Duration
}

func (c *chainClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.User),
	}

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.JSONOutput {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := c.backend.GenerateContent(ctx, messages, opts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %v", ErrTimeout, c.timeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

func (c *chainClient) Model() string { return c.model }
