package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFencedJSON(t *testing.T) {
	raw := "Here you go:\n```json\n{\"task\": \"play_song\", \"steps\": [{\"action\": \"goto\", \"target\": \"youtube\"}]}\n```\nEnjoy!"

	doc, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "play_song", doc["task"])
	steps, ok := doc["steps"].([]any)
	require.True(t, ok)
	assert.Len(t, steps, 1)
}

func TestNormalizeNestedBraces(t *testing.T) {
	doc, err := Normalize(`{"task": "t", "steps": [{"action": "type", "target": "password", "value": "${PASSWORD}"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "t", doc["task"])
}

func TestNormalizeNotJSON(t *testing.T) {
	raw := "Sure! Here's your plan: not json"

	doc, err := Normalize(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedOutput))
	assert.Equal(t, map[string]any{"raw_text": raw}, doc)
	assert.True(t, IsFallback(doc))
}

func TestNormalizeBrokenJSON(t *testing.T) {
	raw := "```json\n{\"task\": \"x\", \"steps\": [\n```"

	doc, err := Normalize(raw)
	require.ErrorIs(t, err, ErrMalformedOutput)
	assert.Equal(t, raw, doc[RawTextKey])
}

func TestNormalizeFallbackIsIdempotent(t *testing.T) {
	for _, raw := range []string{
		"nothing to see",
		"```json\nnot json\n```",
		"```\n{broken: true\n```",
	} {
		first, err := Normalize(raw)
		require.Error(t, err, raw)
		assert.Equal(t, raw, first[RawTextKey])

		encoded, err := json.Marshal(first)
		require.NoError(t, err)

		second, err := Normalize(string(encoded))
		require.NoError(t, err, raw)
		assert.Equal(t, first, second, raw)
	}
}

func TestNormalizeKeepsFencesInsideStrings(t *testing.T) {
	doc, err := Normalize(`{"task": "x", "steps": [{"action": "type", "target": "editor", "value": "` + "```go" + `"}]}`)
	require.NoError(t, err)
	steps := doc["steps"].([]any)
	assert.Equal(t, "```go", steps[0].(map[string]any)["value"])
}

func TestIsFallback(t *testing.T) {
	assert.False(t, IsFallback(map[string]any{"task": "x"}))
	assert.False(t, IsFallback(map[string]any{"raw_text": "x", "task": "y"}))
	assert.True(t, IsFallback(Fallback("x")))
}
