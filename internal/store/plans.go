package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rahul/planwright/internal/fsutil"
	"github.com/rahul/planwright/internal/plan"
)

// ErrTaskNotFound is returned when no plan document exists for a task.
var ErrTaskNotFound = errors.New("task not found")

const (
	planExt        = ".json"
	stepwiseSuffix = "_steps.txt"
	promptSuffix   = "_prompt.txt"
)

// PlanStore keeps one JSON document per task in a directory, alongside the
// task's stepwise rendering and the instruction it was created from.
type PlanStore struct {
	dir string
}

// NewPlanStore creates dir if needed.
func NewPlanStore(dir string) (*PlanStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tasks directory: %w", err)
	}
	return &PlanStore{dir: dir}, nil
}

func (s *PlanStore) Dir() string { return s.dir }

// PlanPath is where the document for task lives.
func (s *PlanStore) PlanPath(task string) string {
	return filepath.Join(s.dir, plan.Slug(task)+planExt)
}

// Save writes p under its task name, replacing any earlier document.
func (s *PlanStore) Save(p *plan.Plan) error {
	if p == nil {
		return errors.New("nil plan")
	}
	p.Task = plan.Slug(p.Task)
	if p.Steps == nil {
		p.Steps = []plan.Step{}
	}
	return fsutil.WriteJSON(s.PlanPath(p.Task), p, 0644)
}

// Load reads the plan for task.
func (s *PlanStore) Load(task string) (*plan.Plan, error) {
	data, err := os.ReadFile(s.PlanPath(task))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, plan.Slug(task))
	}
	if err != nil {
		return nil, err
	}

	var p plan.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.PlanPath(task), err)
	}
	if p.Steps == nil {
		p.Steps = []plan.Step{}
	}
	return &p, nil
}

// Exists reports whether a plan document is stored for task.
func (s *PlanStore) Exists(task string) bool {
	_, err := os.Stat(s.PlanPath(task))
	return err == nil
}

// List returns the stored task names, sorted.
func (s *PlanStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var tasks []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || fsutil.IsTemp(name) || !strings.HasSuffix(name, planExt) {
			continue
		}
		tasks = append(tasks, strings.TrimSuffix(name, planExt))
	}
	sort.Strings(tasks)
	return tasks, nil
}

// TaskFromPath returns the task a plan document path belongs to.
func TaskFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if fsutil.IsTemp(base) || !strings.HasSuffix(base, planExt) {
		return "", false
	}
	return strings.TrimSuffix(base, planExt), true
}

// SaveStepwise stores the readable rendering of a task.
func (s *PlanStore) SaveStepwise(task, text string) error {
	return fsutil.WriteFile(filepath.Join(s.dir, plan.Slug(task)+stepwiseSuffix), []byte(text), 0644)
}

func (s *PlanStore) LoadStepwise(task string) (string, error) {
	return s.readText(task, stepwiseSuffix)
}

// SaveInstruction keeps the instruction a task was first generated from so
// later modifications can show it to the generator again.
func (s *PlanStore) SaveInstruction(task, instruction string) error {
	return fsutil.WriteFile(filepath.Join(s.dir, plan.Slug(task)+promptSuffix), []byte(instruction), 0644)
}

func (s *PlanStore) LoadInstruction(task string) (string, error) {
	return s.readText(task, promptSuffix)
}

func (s *PlanStore) readText(task, suffix string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, plan.Slug(task)+suffix))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrTaskNotFound, plan.Slug(task))
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
