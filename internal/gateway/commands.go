package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rahul/planwright/internal/credentials"
	"github.com/rahul/planwright/internal/planner"
	"github.com/rahul/planwright/internal/store"
)

// Command names.
const (
	CmdNew    = "new"
	CmdModify = "modify"
	CmdShow   = "show"
	CmdList   = "list"
	CmdHelp   = "help"
)

// ErrUsage is returned for malformed commands.
var ErrUsage = errors.New("usage")

const usage = `Commands:
/new <instruction> - generate a task plan
/modify <task> <change> - regenerate a task with a change
/show <task> - show a task's steps
/list - list tasks`

// Command is a parsed chat command.
type Command struct {
	Name string
	Task string
	Text string
}

// ParseCommand parses "/name args". A "@botname" suffix on the command is dropped.
func ParseCommand(text string) (Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, fmt.Errorf("%w: not a command", ErrUsage)
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	name, _, _ := strings.Cut(strings.ToLower(head), "@")
	rest = strings.TrimSpace(rest)

	switch name {
	case CmdNew:
		if rest == "" {
			return Command{}, fmt.Errorf("%w: /new <instruction>", ErrUsage)
		}
		return Command{Name: name, Text: rest}, nil
	case CmdModify:
		task, delta, _ := strings.Cut(rest, " ")
		delta = strings.TrimSpace(delta)
		if task == "" || delta == "" {
			return Command{}, fmt.Errorf("%w: /modify <task> <change>", ErrUsage)
		}
		return Command{Name: name, Task: task, Text: delta}, nil
	case CmdShow:
		if rest == "" {
			return Command{}, fmt.Errorf("%w: /show <task>", ErrUsage)
		}
		return Command{Name: name, Task: strings.Fields(rest)[0]}, nil
	case CmdList, CmdHelp, "start":
		if name == "start" {
			name = CmdHelp
		}
		return Command{Name: name}, nil
	}
	return Command{}, fmt.Errorf("%w: unknown command /%s", ErrUsage, name)
}

func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// Planner is the part of planner.Planner the chat commands use.
type Planner interface {
	Create(ctx context.Context, instruction string, opts planner.RequestOptions) (*planner.Result, error)
	Modify(ctx context.Context, task, delta string, opts planner.RequestOptions) (*planner.Result, error)
	Show(task string) (*planner.Result, error)
	List() ([]string, error)
}

// Handler answers parsed commands.
type Handler struct {
	Planner Planner
}

// Reply runs the command in text and returns the message to send back.
func (h *Handler) Reply(ctx context.Context, text string) string {
	cmd, err := ParseCommand(text)
	if err != nil {
		if isCommand(text) {
			return err.Error() + "\n\n" + usage
		}
		return usage
	}

	opts := planner.RequestOptions{Prompter: credentials.NonInteractive{}}
	var res *planner.Result
	switch cmd.Name {
	case CmdHelp:
		return usage
	case CmdList:
		tasks, err := h.Planner.List()
		if err != nil {
			return "Error: " + err.Error()
		}
		if len(tasks) == 0 {
			return "No tasks yet."
		}
		return "Tasks:\n" + strings.Join(tasks, "\n")
	case CmdNew:
		res, err = h.Planner.Create(ctx, cmd.Text, opts)
	case CmdModify:
		res, err = h.Planner.Modify(ctx, cmd.Task, cmd.Text, opts)
	case CmdShow:
		res, err = h.Planner.Show(cmd.Task)
	}
	if errors.Is(err, store.ErrTaskNotFound) {
		return fmt.Sprintf("Task '%s' not found.", cmd.Task)
	}
	if err != nil {
		return "Error: " + err.Error()
	}
	return formatResult(res)
}

func formatResult(res *planner.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", res.Plan.Task)
	if len(res.Lines) == 0 {
		b.WriteString("No steps found in the task plan.\n")
	} else {
		b.WriteString(res.Text())
		b.WriteString("\n")
	}
	if len(res.Plan.MissingInfo) > 0 {
		fmt.Fprintf(&b, "\nMissing info: %s\n", strings.Join(res.Plan.MissingInfo, ", "))
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	return strings.TrimRight(b.String(), "\n")
}
