// Package planner runs the instruction-to-plan pipeline: prompt, generation,
// normalization, sanitization, validation, persistence and rendering.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rahul/planwright/internal/credentials"
	"github.com/rahul/planwright/internal/generation"
	"github.com/rahul/planwright/internal/normalize"
	"github.com/rahul/planwright/internal/observability"
	"github.com/rahul/planwright/internal/plan"
	"github.com/rahul/planwright/internal/render"
	"github.com/rahul/planwright/internal/sanitize"
	"github.com/rahul/planwright/internal/secrets"
	"github.com/rahul/planwright/internal/store"
	"github.com/rahul/planwright/internal/validate"
)

// HistoryStore records every plan the planner writes.
type HistoryStore interface {
	AddRevision(kind, instruction string, p *plan.Plan) (string, error)
}

// Options tune the pipeline.
type Options struct {
	MaxSteps            int
	MaxChars            int
	URLMode             sanitize.URLMode
	IndirectIdentifiers bool
}

// Planner owns the stores and the generation client.
type Planner struct {
	Client    generation.Client
	Plans     *store.PlanStore
	Secrets   *secrets.Store
	History   HistoryStore // optional
	Prompts   *PromptManager
	Validator *validate.Registry
	Logger    *observability.Logger
	Status    *observability.SystemStatus
	Options   Options
}

func New(client generation.Client, plans *store.PlanStore, secretStore *secrets.Store, opts Options) *Planner {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 20
	}
	if opts.URLMode == "" {
		opts.URLMode = sanitize.ModePlaceholder
	}
	return &Planner{
		Client:    client,
		Plans:     plans,
		Secrets:   secretStore,
		Prompts:   NewPromptManager(""),
		Validator: validate.Default(),
		Logger:    observability.NewNop(),
		Options:   opts,
	}
}

// RequestOptions apply to a single Create, Modify or Edit call.
type RequestOptions struct {
	// Name pins the task name on Create. Modify and Edit always keep theirs.
	Name string
	// Prompter supplies credentials the instruction does not contain.
	// Nil means missing credentials become warnings.
	Prompter credentials.Prompter
}

// Result is what a pipeline run produced.
type Result struct {
	Plan     *plan.Plan `json:"plan"`
	Lines    []string   `json:"lines"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Text is the stepwise rendering.
func (r *Result) Text() string { return render.Text(r.Lines) }

// Create generates, sanitizes and stores a plan for instruction.
func (p *Planner) Create(ctx context.Context, instruction string, opts RequestOptions) (*Result, error) {
	defer p.Status.Idle()
	p.Status.Set(observability.PhaseGenerating, opts.Name)

	prompt, err := p.Prompts.PlanPrompt(PlanData{Instruction: instruction, MaxSteps: p.Options.MaxSteps})
	if err != nil {
		return nil, err
	}

	cred := credentials.Extract(instruction)
	pl, warnings, err := p.generate(ctx, opts.Name, prompt, cred)
	if err != nil {
		return nil, err
	}

	run := &run{
		kind:        store.KindCreate,
		instruction: instruction,
		context:     instruction,
		name:        opts.Name,
		prompter:    opts.Prompter,
		credential:  cred,
		warnings:    warnings,
	}
	return p.finish(ctx, pl, run)
}

// Modify regenerates the stored plan for task from a delta instruction. The
// current plan and the instruction it was created from go into the prompt.
func (p *Planner) Modify(ctx context.Context, task, delta string, opts RequestOptions) (*Result, error) {
	defer p.Status.Idle()
	task = plan.Slug(task)

	existing, err := p.Plans.Load(task)
	if err != nil {
		return nil, err
	}
	original, err := p.Plans.LoadInstruction(task)
	if err != nil && !errors.Is(err, store.ErrTaskNotFound) {
		return nil, err
	}

	p.Status.Set(observability.PhaseGenerating, task)
	existingJSON, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", task, err)
	}
	prompt, err := p.Prompts.ModifyPrompt(ModifyData{
		Task:         task,
		Existing:     string(existingJSON),
		Original:     original,
		Modification: delta,
		MaxSteps:     p.Options.MaxSteps,
	})
	if err != nil {
		return nil, err
	}

	cred := credentials.Extract(delta)
	pl, warnings, err := p.generate(ctx, task, prompt, cred)
	if err != nil {
		return nil, err
	}

	run := &run{
		kind:        store.KindModify,
		instruction: delta,
		context:     original + " " + delta,
		name:        task,
		prompter:    opts.Prompter,
		credential:  cred,
		warnings:    warnings,
	}
	return p.finish(ctx, pl, run)
}

// Edit replaces the steps of task directly. The result is sanitized like
// generated output so secrets still end up behind placeholders.
func (p *Planner) Edit(ctx context.Context, task string, steps []plan.Step, opts RequestOptions) (*Result, error) {
	defer p.Status.Idle()
	task = plan.Slug(task)

	// Edited steps are checked again against the instruction the task came from.
	original, err := p.Plans.LoadInstruction(task)
	if err != nil && !errors.Is(err, store.ErrTaskNotFound) {
		return nil, err
	}

	pl := &plan.Plan{Task: task, Steps: append([]plan.Step{}, steps...)}
	run := &run{
		kind:     store.KindEdit,
		context:  original,
		name:     task,
		prompter: opts.Prompter,
	}
	return p.finish(ctx, pl, run)
}

// Render regenerates the stepwise text of task from its stored document.
func (p *Planner) Render(task string) (*Result, error) {
	pl, err := p.Plans.Load(task)
	if err != nil {
		return nil, err
	}
	lines := render.Lines(pl, p.Secrets)
	if err := p.Plans.SaveStepwise(pl.Task, render.Text(lines)); err != nil {
		return nil, err
	}
	return &Result{Plan: pl, Lines: lines}, nil
}

// Show returns the stored plan with its rendering, without writing anything.
func (p *Planner) Show(task string) (*Result, error) {
	pl, err := p.Plans.Load(task)
	if err != nil {
		return nil, err
	}
	return &Result{Plan: pl, Lines: render.Lines(pl, p.Secrets)}, nil
}

// List returns every stored task name.
func (p *Planner) List() ([]string, error) {
	return p.Plans.List()
}

type run struct {
	kind        string
	instruction string // as given by the caller, for credentials and history
	context     string // text the validator looks for evidence in
	name        string
	prompter    credentials.Prompter
	credential  credentials.Credential
	warnings    []string
}

// generate asks the model and turns its answer into a plan. Unusable output is
// kept as raw text rather than failing the request.
func (p *Planner) generate(ctx context.Context, task, prompt string, cred credentials.Credential) (*plan.Plan, []string, error) {
	raw, err := generation.Collect(ctx, p.Client, prompt, p.Options.MaxChars)
	p.Logger.LogLLM(task, p.Client.Name(),
		observability.Redact(prompt, cred.Password),
		observability.Redact(raw, cred.Password))
	if err != nil {
		return nil, nil, fmt.Errorf("generation failed: %w", err)
	}

	var warnings []string
	doc, err := normalize.Normalize(raw)
	switch {
	case err != nil:
		warnings = append(warnings, err.Error())
	case normalize.IsFallback(doc):
		warnings = append(warnings, "generator returned raw text without steps")
	}
	pl, err := plan.FromDocument(doc)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("%v: %v", normalize.ErrMalformedOutput, err))
		pl = &plan.Plan{Steps: []plan.Step{}, RawText: raw}
	}
	return pl, warnings, nil
}

func (p *Planner) finish(ctx context.Context, pl *plan.Plan, r *run) (*Result, error) {
	p.Status.Set(observability.PhaseSanitizing, r.name)

	st := &sanitize.State{
		Plan:        pl,
		Instruction: r.instruction,
		Name:        r.name,
		Credential:  r.credential,
	}
	pipeline := sanitize.Default(sanitize.Options{
		URLMode:             p.Options.URLMode,
		Secrets:             p.Secrets,
		Prompter:            r.prompter,
		IndirectIdentifiers: p.Options.IndirectIdentifiers,
	})
	report := pipeline.Run(ctx, st)
	warnings := append(r.warnings, report.Messages()...)

	if category := p.Validator.InferCategory(r.context); category != "" {
		pl.MissingInfo = p.Validator.Missing(category, r.context, pl)
	}

	p.Status.Set(observability.PhaseSaving, pl.Task)
	secretValues := []string{r.credential.Password}
	for _, key := range st.Stored {
		if v, ok := p.Secrets.Lookup(key); ok {
			secretValues = append(secretValues, v)
		}
		p.Logger.LogSecret(pl.Task, key)
	}
	instruction := observability.Redact(r.instruction, secretValues...)

	if err := p.Plans.Save(pl); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", pl.Task, err)
	}
	if r.kind == store.KindCreate {
		if err := p.Plans.SaveInstruction(pl.Task, instruction); err != nil {
			return nil, fmt.Errorf("failed to save instruction for %s: %w", pl.Task, err)
		}
	}
	lines := render.Lines(pl, p.Secrets)
	if err := p.Plans.SaveStepwise(pl.Task, render.Text(lines)); err != nil {
		return nil, fmt.Errorf("failed to save stepwise text for %s: %w", pl.Task, err)
	}
	if p.History != nil {
		if _, err := p.History.AddRevision(r.kind, instruction, pl); err != nil {
			warnings = append(warnings, fmt.Sprintf("history: %v", err))
		}
	}

	for _, w := range warnings {
		p.Logger.LogWarning(pl.Task, w)
	}
	p.Logger.LogPlan(pl.Task, r.kind, len(pl.Steps), pl.MissingInfo)
	return &Result{Plan: pl, Lines: lines, Warnings: warnings}, nil
}
