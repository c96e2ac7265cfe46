// Package normalize turns raw generator text into a JSON document.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedOutput reports generator output that is not a JSON object.
// It is recoverable: Normalize still returns a raw_text fallback document.
var ErrMalformedOutput = errors.New("malformed generation output")

// RawTextKey is the only key of the fallback document.
const RawTextKey = "raw_text"

var fenceRe = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// Normalize strips code fences, extracts the outermost {...} span and parses it.
// On failure it returns {"raw_text": raw} together with an ErrMalformedOutput.
// Input that already is a JSON object is taken as is, so fences inside its
// strings survive and a fallback normalizes to itself.
func Normalize(raw string) (map[string]any, error) {
	if doc, ok := parseObject(strings.TrimSpace(raw)); ok {
		return doc, nil
	}
	text := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return Fallback(raw), fmt.Errorf("%w: no JSON object detected", ErrMalformedOutput)
	}

	var v any
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return Fallback(raw), fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	doc, ok := v.(map[string]any)
	if !ok {
		return Fallback(raw), fmt.Errorf("%w: top-level value is %T", ErrMalformedOutput, v)
	}
	return doc, nil
}

func parseObject(text string) (map[string]any, bool) {
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

// Fallback wraps text in the raw_text document.
func Fallback(raw string) map[string]any {
	return map[string]any{RawTextKey: raw}
}

// IsFallback reports whether doc is a raw_text wrapper.
func IsFallback(doc map[string]any) bool {
	if len(doc) != 1 {
		return false
	}
	_, ok := doc[RawTextKey].(string)
	return ok
}
