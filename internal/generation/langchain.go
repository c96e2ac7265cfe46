package generation

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// LangChain adapts any langchaingo model (OpenAI, OpenRouter, Ollama).
type LangChain struct {
	Model    llms.Model
	Provider string
	Options  []llms.CallOption
}

func NewLangChain(provider string, model llms.Model, opts ...llms.CallOption) *LangChain {
	return &LangChain{Model: model, Provider: provider, Options: opts}
}

func (l *LangChain) Name() string { return l.Provider }

func (l *LangChain) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l.Model, prompt, l.Options...)
}

func (l *LangChain) Stream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	opts := append([]llms.CallOption{}, l.Options...)
	opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		return fn(string(chunk))
	}))
	_, err := llms.GenerateFromSinglePrompt(ctx, l.Model, prompt, opts...)
	return err
}
