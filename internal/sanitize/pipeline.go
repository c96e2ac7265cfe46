// Package sanitize applies the post-generation transformations to a plan:
// URL redaction, credential substitution and task-name normalization.
// Every stage is idempotent, and no stage failure escapes Run.
package sanitize

import (
	"context"
	"errors"
	"fmt"

	"github.com/rahul/planwright/internal/credentials"
	"github.com/rahul/planwright/internal/plan"
)

// State is the plan being sanitized together with the context the stages consult.
type State struct {
	Plan        *plan.Plan
	Instruction string
	Name        string // caller-chosen task name; empty keeps the generator's proposal
	Credential  credentials.Credential

	// Stored lists the secret keys written during the run.
	Stored []string
}

// Stage is one transformation of the pipeline.
type Stage interface {
	Name() string
	Apply(ctx context.Context, st *State) error
}

// Warning is a stage-local failure that was degraded to best-effort output.
type Warning struct {
	Stage string
	Err   error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Stage, w.Err)
}

// Report collects the warnings of a run.
type Report struct {
	Warnings []Warning
}

// Messages renders the warnings as strings.
func (r Report) Messages() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, w.String())
	}
	return out
}

// HasMissingCredential reports whether any warning is a missing credential.
func (r Report) HasMissingCredential() bool {
	for _, w := range r.Warnings {
		if errors.Is(w.Err, credentials.ErrMissingCredential) {
			return true
		}
	}
	return false
}

// Pipeline runs stages in order.
type Pipeline struct {
	stages []Stage
}

func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Options configures the default pipeline.
type Options struct {
	URLMode             URLMode
	Secrets             SecretStore
	Prompter            credentials.Prompter
	IndirectIdentifiers bool
}

// Default builds redaction -> credential substitution -> task-name normalization.
func Default(opts Options) *Pipeline {
	return New(
		RedactURLs{Mode: opts.URLMode},
		&SubstituteCredentials{
			Secrets:             opts.Secrets,
			Prompter:            opts.Prompter,
			IndirectIdentifiers: opts.IndirectIdentifiers,
		},
		NormalizeTaskName{},
	)
}

// Run applies every stage. Errors returned by a stage, including joined
// per-step errors, become warnings and the next stage still runs.
func (p *Pipeline) Run(ctx context.Context, st *State) Report {
	var r Report
	if st.Plan == nil {
		st.Plan = &plan.Plan{Steps: []plan.Step{}}
	}
	for _, s := range p.stages {
		err := s.Apply(ctx, st)
		if err == nil {
			continue
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				r.Warnings = append(r.Warnings, Warning{Stage: s.Name(), Err: e})
			}
			continue
		}
		r.Warnings = append(r.Warnings, Warning{Stage: s.Name(), Err: err})
	}
	return r
}

// NormalizeTaskName forces the task field to the storage key derived from the
// caller's name, or from the generator's proposal when no name was given.
type NormalizeTaskName struct{}

func (NormalizeTaskName) Name() string { return "task_name" }

func (NormalizeTaskName) Apply(ctx context.Context, st *State) error {
	name := st.Name
	if name == "" {
		name = st.Plan.Task
	}
	st.Plan.Task = plan.Slug(name)
	return nil
}
