package generation

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rahul/planwright/pkg/config"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// New builds the client for a configured provider.
func New(ctx context.Context, name string, cfg config.ProviderConfig) (Client, error) {
	var (
		llm llms.Model
		err error
	)

	switch name {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(cfg.Key()),
			openai.WithModel(cfg.Model),
		}
		baseURL := cfg.BaseURL
		if baseURL == "" && name == "openrouter" {
			baseURL = openRouterBaseURL
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		llm, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err = ollama.New(opts...)
	case "gemini", "google":
		return NewGenAI(ctx, cfg.Key(), cfg.Model)
	default:
		return nil, fmt.Errorf("provider %s not yet implemented", name)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", name, err)
	}
	return NewLangChain(name, llm), nil
}
