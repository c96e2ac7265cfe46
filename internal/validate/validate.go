// Package validate reports which fields a task category needs that neither
// the instruction nor the plan provides. The result is advisory.
package validate

import (
	"strings"
	"sync"

	"github.com/rahul/planwright/internal/plan"
)

// Evidence is what a field predicate may inspect.
type Evidence struct {
	Instruction string // as written
	Lower       string // lower-cased instruction
	StepsText   string // every step's target and value, lower-cased
}

// Field is a required field and the heuristic that detects it.
type Field struct {
	Name    string
	Present func(ev Evidence) bool
}

// Registry maps a task category to its ordered required fields.
type Registry struct {
	mu         sync.RWMutex
	categories map[string][]Field
	order      []string
	keywords   map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		categories: make(map[string][]Field),
		keywords:   make(map[string][]string),
	}
}

// Register adds or replaces a category. Keywords let InferCategory pick it
// from instruction text; earlier registrations win ties.
func (r *Registry) Register(category string, keywords []string, fields ...Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[category]; !ok {
		r.order = append(r.order, category)
	}
	r.categories[category] = fields
	r.keywords[category] = keywords
}

// Fields returns the required fields of a category.
func (r *Registry) Fields(category string) []Field {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.categories[category]
}

// InferCategory returns the first category whose keyword appears in the
// instruction, or "" when none does.
func (r *Registry) InferCategory(instruction string) string {
	lower := strings.ToLower(instruction)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.order {
		for _, kw := range r.keywords[c] {
			if strings.Contains(lower, kw) {
				return c
			}
		}
	}
	return ""
}

// Missing returns, in registry order, the required fields of category with no
// evidence in the instruction or the plan's steps. Unknown categories need nothing.
func (r *Registry) Missing(category, instruction string, p *plan.Plan) []string {
	ev := Evidence{Instruction: instruction, Lower: strings.ToLower(instruction)}
	if p != nil {
		ev.StepsText = p.StepsText()
	}

	var missing []string
	for _, f := range r.Fields(category) {
		if !f.Present(ev) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
