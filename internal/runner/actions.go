// Package runner walks a stored plan in a local browser. It is best effort:
// targets are free-text descriptions, so elements are located heuristically.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rahul/planwright/internal/plan"
	"github.com/rahul/planwright/internal/sanitize"
	"github.com/rahul/planwright/internal/service"
)

// ScriptGenerator turns a plan into browser automation source code. The
// generated script is run and verified elsewhere.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, p *plan.Plan, instruction string) (string, error)
}

// Kind is a primitive browser operation.
type Kind string

const (
	KindNavigate   Kind = "navigate"
	KindClick      Kind = "click"
	KindType       Kind = "type"
	KindPress      Kind = "press"
	KindScreenshot Kind = "screenshot"
	KindWait       Kind = "wait"
	KindSkip       Kind = "skip"
)

// Action is one step translated into something a browser can do.
type Action struct {
	Kind   Kind
	URL    string
	XPath  string
	Text   string // text to type; may be a secret, never log it
	Submit bool   // press enter after typing
	Wait   time.Duration
	Reason string // why a step is skipped
}

// ErrUnresolvedValue is returned for type steps whose placeholder has no secret.
var ErrUnresolvedValue = errors.New("value does not resolve")

// Resolver maps ${KEY} placeholders to secret values.
type Resolver interface {
	Resolve(value string) string
}

const lowerMap = `translate(%s,'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz')`

var locatorNoise = map[string]bool{
	"the": true, "a": true, "an": true, "on": true, "in": true, "of": true,
	"button": true, "link": true, "field": true, "box": true, "input": true,
	"bar": true, "icon": true, "tab": true, "option": true, "first": true,
}

// keywords returns the distinctive words of a target description.
func keywords(target string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(target)) {
		w = strings.Trim(w, `"'.,:;!?()[]`)
		if w == "" || locatorNoise[w] || w == sanitize.WebsitePlaceholder {
			continue
		}
		words = append(words, w)
	}
	return words
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

func containsAll(expr string, words []string) string {
	var conds []string
	for _, w := range words {
		conds = append(conds, fmt.Sprintf("contains("+lowerMap+", %s)", expr, xpathLiteral(w)))
	}
	return strings.Join(conds, " and ")
}

// ClickXPath locates a clickable element whose text or label mentions the target.
func ClickXPath(target string) string {
	words := keywords(target)
	if len(words) == 0 {
		words = []string{strings.ToLower(strings.TrimSpace(target))}
	}
	text := containsAll("normalize-space(.)", words)
	label := containsAll("@aria-label", words)
	return fmt.Sprintf(`(//a[%[1]s] | //button[%[1]s] | //*[@role='button'][%[1]s] | //*[@aria-label][%[2]s] | //input[@type='submit'][%[3]s] | //*[self::span or self::div or self::li][%[1]s])[last()]`,
		text, label, containsAll("@value", words))
}

// InputXPath locates a text input described by target through its placeholder,
// aria-label, name or id.
func InputXPath(target string) string {
	words := keywords(target)
	if len(words) == 0 {
		return `(//input[not(@type='hidden')] | //textarea)[1]`
	}
	w := words[0]
	var conds []string
	for _, attr := range []string{"@placeholder", "@aria-label", "@name", "@id", "@type"} {
		conds = append(conds, containsAll(attr, []string{w}))
	}
	return fmt.Sprintf(`(//input[%[1]s] | //textarea[%[1]s])[1]`, strings.Join(conds, " or "))
}

// SearchXPath locates the page's search input.
const SearchXPath = `(//input[@type='search'] | //input[@name='q' or @name='search_query' or contains(translate(@placeholder,'SEARCH','search'),'search') or contains(translate(@aria-label,'SEARCH','search'),'search')] | //textarea[@name='q'])[1]`

// HomeURL picks the page a goto step opens: a literal URL target, a known
// service named by the target, or the service inferred from the task name.
func HomeURL(target, task string) (string, bool) {
	t := strings.TrimSpace(target)
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
		return t, true
	}
	for _, text := range []string{t, task} {
		if name, ok := service.Detect(text); ok {
			return service.HomeURL(name)
		}
		if u, ok := service.HomeURL(text); ok {
			return u, true
		}
	}
	return "", false
}

// Translate converts a plan step into a browser action.
func Translate(step plan.Step, task string, r Resolver) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(step.Action)) {
	case "goto", "navigate", "open":
		u, ok := HomeURL(step.Target, task)
		if !ok {
			return Action{}, fmt.Errorf("no known URL for %q", step.Target)
		}
		return Action{Kind: KindNavigate, URL: u}, nil

	case "click", "play":
		return Action{Kind: KindClick, XPath: ClickXPath(step.Target)}, nil

	case "select":
		target := step.Target
		if step.Value != "" {
			target = step.Value
		}
		return Action{Kind: KindClick, XPath: ClickXPath(target)}, nil

	case "type":
		text := step.Value
		if r != nil {
			text = r.Resolve(step.Value)
		}
		if text == "" {
			return Action{}, fmt.Errorf("%w: %s", ErrUnresolvedValue, step.Value)
		}
		return Action{Kind: KindType, XPath: InputXPath(step.Target), Text: text}, nil

	case "search":
		if step.Value == "" {
			return Action{}, fmt.Errorf("search step has no value")
		}
		return Action{Kind: KindType, XPath: SearchXPath, Text: step.Value, Submit: true}, nil

	case "enter", "press", "submit":
		return Action{Kind: KindPress, Text: "\r"}, nil

	case "screenshot":
		return Action{Kind: KindScreenshot}, nil

	case "wait":
		d := 2 * time.Second
		if secs, err := strconv.Atoi(strings.TrimSpace(step.Value)); err == nil && secs > 0 {
			d = time.Duration(secs) * time.Second
		}
		return Action{Kind: KindWait, Wait: d}, nil
	}
	return Action{Kind: KindSkip, Reason: fmt.Sprintf("unsupported action %q", step.Action)}, nil
}
