// Package generation is the boundary to the language model: a prompt goes in,
// text comes back whole or as a stream of fragments.
package generation

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// Client is a text generation backend.
type Client interface {
	// Generate returns the complete response to prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Stream calls fn with each response fragment in order. Returning an
	// error from fn stops the stream and Stream returns that error.
	Stream(ctx context.Context, prompt string, fn func(chunk string) error) error
	// Name identifies the provider in logs.
	Name() string
}

var errBudget = errors.New("character budget reached")

// Collect streams the response to prompt and concatenates the fragments until
// the stream ends or maxChars characters have arrived. maxChars <= 0 means no budget.
func Collect(ctx context.Context, c Client, prompt string, maxChars int) (string, error) {
	var b strings.Builder
	n := 0
	err := c.Stream(ctx, prompt, func(chunk string) error {
		if maxChars > 0 && n+utf8.RuneCountInString(chunk) >= maxChars {
			for _, r := range chunk {
				if n == maxChars {
					break
				}
				b.WriteRune(r)
				n++
			}
			return errBudget
		}
		b.WriteString(chunk)
		n += utf8.RuneCountInString(chunk)
		return nil
	})
	if err != nil && !errors.Is(err, errBudget) {
		return b.String(), err
	}
	return b.String(), nil
}
