package observability

import "strings"

// RedactedValue replaces secret values in logged text.
const RedactedValue = "[REDACTED]"

// Redact removes every non-empty secret from text before it is logged.
func Redact(text string, secrets ...string) string {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		text = strings.ReplaceAll(text, s, RedactedValue)
	}
	return text
}
