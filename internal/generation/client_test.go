package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/goleak"

	"github.com/rahul/planwright/pkg/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeModel answers every prompt with the same chunks.
type fakeModel struct {
	chunks  []string
	prompts []string
}

func (f *fakeModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	for _, m := range msgs {
		for _, p := range m.Parts {
			if t, ok := p.(llms.TextContent); ok {
				f.prompts = append(f.prompts, t.Text)
			}
		}
	}

	var full strings.Builder
	for _, c := range f.chunks {
		if opts.StreamingFunc != nil {
			if err := opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
		full.WriteString(c)
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: full.String()}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChainGenerate(t *testing.T) {
	m := &fakeModel{chunks: []string{`{"task": "x", `, `"steps": []}`}}
	c := NewLangChain("openai", m)

	out, err := c.Generate(context.Background(), "make a plan")
	require.NoError(t, err)
	assert.Equal(t, `{"task": "x", "steps": []}`, out)
	assert.Equal(t, []string{"make a plan"}, m.prompts)
	assert.Equal(t, "openai", c.Name())
}

func TestCollectConcatenatesStream(t *testing.T) {
	c := NewLangChain("ollama", &fakeModel{chunks: []string{"He", "llo", " world"}})
	out, err := Collect(context.Background(), c, "p", 0)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
}

func TestCollectStopsAtBudget(t *testing.T) {
	c := NewLangChain("ollama", &fakeModel{chunks: []string{"Hello", " wörld", " and more"}})
	out, err := Collect(context.Background(), c, "p", 8)
	require.NoError(t, err)
	assert.Equal(t, "Hello wö", out)
}

type failingClient struct{}

func (failingClient) Name() string { return "broken" }
func (failingClient) Generate(context.Context, string) (string, error) {
	return "", errors.New("boom")
}
func (failingClient) Stream(_ context.Context, _ string, fn func(string) error) error {
	if err := fn("partial"); err != nil {
		return err
	}
	return errors.New("connection reset")
}

func TestCollectReportsStreamFailure(t *testing.T) {
	out, err := Collect(context.Background(), failingClient{}, "p", 0)
	require.EqualError(t, err, "connection reset")
	assert.Equal(t, "partial", out)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), "anthropic-local", config.ProviderConfig{})
	assert.Error(t, err)

	_, err = New(context.Background(), "gemini", config.ProviderConfig{})
	assert.Error(t, err, "gemini without a key")
}

func TestNewLangChainProviders(t *testing.T) {
	c, err := New(context.Background(), "openrouter", config.ProviderConfig{APIKey: "sk-test", Model: "meta-llama/llama-3-8b"})
	require.NoError(t, err)
	assert.Equal(t, "openrouter", c.Name())

	c, err = New(context.Background(), "ollama", config.ProviderConfig{Model: "llama3", BaseURL: "http://127.0.0.1:11434"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.Name())
}
