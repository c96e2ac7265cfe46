package planner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	planPromptFile   = "plan.md"
	modifyPromptFile = "modify.md"
)

const defaultPlanPrompt = `Convert the following instruction into a structured JSON action plan for web automation.
Instruction: "{{.Instruction}}"

- Do NOT include actual usernames or passwords; use placeholders like '${USERNAME}' or '${PASSWORD}' if needed.
- Use no more than {{.MaxSteps}} steps.
- Use generic actions: "goto", "click", "search", "type", "select", "enter", "screenshot", "play".
- Output ONLY valid JSON in the format:
{
  "task": "<short_task_name>",
  "steps": [
    {"action": "<action>", "target": "<target>", "value": "<optional_placeholder>"}
  ]
}
`

const defaultModifyPrompt = `You are an intelligent automation planner.

Here is the current JSON task plan:
{{.Existing}}
{{if .Original}}
It was generated from this instruction:
"{{.Original}}"
{{end}}
Modify this plan based on the following user instruction:
"{{.Modification}}"

- Keep the task name "{{.Task}}".
- Use no more than {{.MaxSteps}} steps.
- Keep placeholders like '${PASSWORD_...}' unchanged and never write real credentials.
Keep the output strictly valid JSON only (no surrounding text).
`

// PlanData fills the plan prompt.
type PlanData struct {
	Instruction string
	MaxSteps    int
}

// ModifyData fills the modify prompt.
type ModifyData struct {
	Task         string
	Existing     string
	Original     string
	Modification string
	MaxSteps     int
}

// PromptManager renders the generator prompts. A plan.md or modify.md file in
// Directory replaces the built-in template of the same role.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

func (pm *PromptManager) PlanPrompt(data PlanData) (string, error) {
	return pm.render(planPromptFile, defaultPlanPrompt, data)
}

func (pm *PromptManager) ModifyPrompt(data ModifyData) (string, error) {
	return pm.render(modifyPromptFile, defaultModifyPrompt, data)
}

func (pm *PromptManager) render(name, fallback string, data any) (string, error) {
	text, err := pm.load(name, fallback)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s prompt: %w", name, err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return b.String(), nil
}

func (pm *PromptManager) load(name, fallback string) (string, error) {
	if pm == nil || pm.Directory == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(filepath.Join(pm.Directory, name))
	if errors.Is(err, fs.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s prompt: %w", name, err)
	}
	return string(data), nil
}
