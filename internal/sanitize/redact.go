package sanitize

import (
	"context"
	"regexp"
	"strings"

	"github.com/rahul/planwright/internal/service"
)

// URLMode selects how RedactURLs rewrites links.
type URLMode string

const (
	// ModePlaceholder replaces every link with WebsitePlaceholder.
	ModePlaceholder URLMode = "placeholder"
	// ModeCanonical replaces links to known services with the service name
	// and capitalizes bare service mentions.
	ModeCanonical URLMode = "canonical"
)

// WebsitePlaceholder stands in for a redacted link.
const WebsitePlaceholder = "<website>"

var urlRe = regexp.MustCompile(`https?://\S+`)

// RedactURLs removes links from every string field of the plan.
type RedactURLs struct {
	Mode URLMode
}

func (RedactURLs) Name() string { return "redact_urls" }

func (r RedactURLs) Apply(ctx context.Context, st *State) error {
	p := st.Plan
	canonical := r.Mode == ModeCanonical

	p.Task = r.redact(p.Task, canonical)
	p.RawText = r.redact(p.RawText, false)
	for i := range p.MissingInfo {
		p.MissingInfo[i] = r.redact(p.MissingInfo[i], false)
	}
	for i := range p.Steps {
		s := &p.Steps[i]
		s.Action = r.redact(s.Action, false)
		s.Target = r.redact(s.Target, canonical)
		// typed values may be literal credentials; only their links are touched
		s.Value = r.redact(s.Value, canonical && !strings.EqualFold(s.Action, "type"))
	}
	return nil
}

func (r RedactURLs) redact(s string, words bool) string {
	if s == "" {
		return s
	}
	s = urlRe.ReplaceAllStringFunc(s, func(u string) string {
		if r.Mode == ModeCanonical {
			if name, ok := service.FromURL(u); ok {
				return name
			}
		}
		return WebsitePlaceholder
	})
	if words {
		s = service.CanonicalizeWords(s)
	}
	return s
}
