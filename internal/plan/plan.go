package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTaskName is used when neither the caller nor the generator names the task.
const DefaultTaskName = "unnamed_task"

// Step represents a single browser action in a task plan.
type Step struct {
	Action string `json:"action"` // goto, click, search, type, screenshot, play, select, enter, ...
	Target string `json:"target"`
	Value  string `json:"value,omitempty"`
}

// Plan is the structured action plan persisted per task.
type Plan struct {
	Task        string   `json:"task"`
	Steps       []Step   `json:"steps"`
	MissingInfo []string `json:"missing_info,omitempty"`

	// RawText holds unparseable generator output so it can still be persisted.
	RawText string `json:"raw_text,omitempty"`
}

// StepsText concatenates every step's target and value, lower-cased.
func (p *Plan) StepsText() string {
	var parts []string
	for _, s := range p.Steps {
		parts = append(parts, strings.ToLower(s.Target)+" "+strings.ToLower(s.Value))
	}
	return strings.Join(parts, " ")
}

// FromDocument converts a normalized generator document into a Plan.
// Scalar step values that are not strings are rendered as text.
func FromDocument(doc map[string]any) (*Plan, error) {
	p := &Plan{Steps: []Step{}}
	if raw, ok := doc["raw_text"].(string); ok && len(doc) == 1 {
		p.RawText = raw
		return p, nil
	}

	if t, ok := doc["task"]; ok {
		p.Task = scalar(t)
	}

	rawSteps, ok := doc["steps"]
	if !ok || rawSteps == nil {
		return p, nil
	}
	list, ok := rawSteps.([]any)
	if !ok {
		return p, fmt.Errorf("steps is %T, not a list", rawSteps)
	}

	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return p, fmt.Errorf("step %d is %T, not an object", i+1, item)
		}
		p.Steps = append(p.Steps, Step{
			Action: strings.TrimSpace(scalar(m["action"])),
			Target: scalar(m["target"]),
			Value:  scalar(m["value"]),
		})
	}

	if mi, ok := doc["missing_info"].([]any); ok {
		for _, f := range mi {
			p.MissingInfo = append(p.MissingInfo, scalar(f))
		}
	}
	return p, nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

var (
	spaceRun   = regexp.MustCompile(`\s+`)
	separators = strings.NewReplacer("/", "_", `\`, "_")
)

// Slug normalizes a task name into its storage key.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = spaceRun.ReplaceAllString(s, "_")
	s = separators.Replace(s)
	s = strings.Trim(s, ".")
	if s == "" {
		return DefaultTaskName
	}
	return s
}

var placeholderRe = regexp.MustCompile(`^\$\{(.+?)\}$`)

// Placeholder wraps a secret key as ${KEY}.
func Placeholder(key string) string {
	return "${" + key + "}"
}

// IsPlaceholder reports whether s has the exact ${KEY} shape.
func IsPlaceholder(s string) bool {
	return placeholderRe.MatchString(s)
}

// PlaceholderKey returns KEY for a ${KEY} string.
func PlaceholderKey(s string) (string, bool) {
	m := placeholderRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}
