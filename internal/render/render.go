// Package render turns a plan into the numbered, human-readable step list.
package render

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rahul/planwright/internal/credentials"
	"github.com/rahul/planwright/internal/plan"
)

// Mask replaces anything shown for a password-like target (password, pwd, passcode, ...).
const Mask = "********"

// Resolver maps a stored step value to its display value. A ${KEY}
// placeholder resolves through the secret store; other values pass through.
type Resolver interface {
	Resolve(value string) string
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(string) string

func (f ResolverFunc) Resolve(v string) string { return f(v) }

// Identity shows stored values unchanged.
var Identity Resolver = ResolverFunc(func(v string) string { return v })

// Lines renders each step as "Step <n>: <Action> -> <target>[ | Value: <v>]".
func Lines(p *plan.Plan, r Resolver) []string {
	if p == nil {
		return nil
	}
	if r == nil {
		r = Identity
	}

	lines := make([]string, 0, len(p.Steps))
	for i, s := range p.Steps {
		line := fmt.Sprintf("Step %d: %s -> %s", i+1, capitalize(s.Action), s.Target)
		if v := display(s, r); v != "" {
			line += " | Value: " + v
		}
		lines = append(lines, line)
	}
	return lines
}

// Text joins rendered lines.
func Text(lines []string) string {
	return strings.Join(lines, "\n")
}

// Plan renders p straight to text.
func Plan(p *plan.Plan, r Resolver) string {
	return Text(Lines(p, r))
}

func display(s plan.Step, r Resolver) string {
	if s.Value == "" {
		return ""
	}
	if credentials.IsPasswordField(s.Target) {
		return Mask
	}
	if v := r.Resolve(s.Value); v != "" {
		return v
	}
	return s.Value
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
