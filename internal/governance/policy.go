// Package governance decides which browser steps the runner may perform.
package governance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes one translated plan step. Typed text is never part of
// it, so secret values do not reach the policy.
type Request struct {
	Task   string
	Action string // runner action kind: navigate, click, type, ...
	URL    string
	Target string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates browser steps against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine denies listed actions and any step whose URL or target
// matches a denied pattern.
type DefaultPolicyEngine struct {
	DeniedActions map[string]bool
	DeniedRegex   []*regexp.Regexp
}

// LocalSchemes matches URLs that reach outside the web.
const LocalSchemes = `(?i)^(file|javascript|chrome|about|data):`

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedActions: make(map[string]bool),
		DeniedRegex:   make([]*regexp.Regexp, 0),
	}
}

// NewPolicyEngine builds an engine that always denies LocalSchemes plus the
// given actions and patterns.
func NewPolicyEngine(actions, patterns []string) (*DefaultPolicyEngine, error) {
	e := NewDefaultPolicyEngine()
	for _, a := range actions {
		e.DenyAction(a)
	}
	for _, p := range append([]string{LocalSchemes}, patterns...) {
		if err := e.DenyPattern(p); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *DefaultPolicyEngine) DenyAction(name string) {
	e.DeniedActions[strings.ToLower(strings.TrimSpace(name))] = true
}

func (e *DefaultPolicyEngine) DenyPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid deny pattern %q: %w", pattern, err)
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedActions[strings.ToLower(req.Action)] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Action '%s' is restricted by runner policy", req.Action),
		}, nil
	}

	for _, re := range e.DeniedRegex {
		for _, s := range []string{req.URL, req.Target} {
			if s != "" && re.MatchString(s) {
				return Result{
					Effect: EffectDeny,
					Reason: fmt.Sprintf("Step matches restricted pattern: %s", re.String()),
				}, nil
			}
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
