package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rahul/planwright/internal/observability"
	"github.com/rahul/planwright/internal/plan"
	"github.com/rahul/planwright/internal/planner"
)

var errInstructionRequired = errors.New("instruction required")

func newAddCmd(o *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add [instruction]",
		Short: "Generate a new task plan",
		Long: `Generate a new task plan from an instruction. Without arguments the
instruction is read from standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction := strings.TrimSpace(strings.Join(args, " "))
			if instruction == "" {
				var err error
				instruction, err = promptForInstruction(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}

			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			prompter, err := o.prompter(a.cfg.App.EnvFile)
			if err != nil {
				return err
			}
			if name != "" && a.plans.Exists(name) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Overwriting existing task %s\n", plan.Slug(name))
			}
			res, err := a.planner.Create(cmd.Context(), instruction, planner.RequestOptions{Name: name, Prompter: prompter})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "\nSaved to %s\n", a.plans.PlanPath(res.Plan.Task))
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Task name (default: chosen by the model)")
	return cmd
}

func newModifyCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modify <task> <change>",
		Short: "Regenerate an existing task with a change",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			prompter, err := o.prompter(a.cfg.App.EnvFile)
			if err != nil {
				return err
			}
			delta := strings.Join(args[1:], " ")
			res, err := a.planner.Modify(cmd.Context(), args[0], delta, planner.RequestOptions{Prompter: prompter})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newEditCmd(o *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "edit <task>",
		Short: "Replace a task's steps without calling the model",
		Long: `Replace a task's steps with the ones in --file. The file holds either a
list of steps or a plan document with a "steps" list. The steps are
sanitized like generated ones before they are saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := readSteps(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			prompter, err := o.prompter(a.cfg.App.EnvFile)
			if err != nil {
				return err
			}
			res, err := a.planner.Edit(cmd.Context(), args[0], steps, planner.RequestOptions{Prompter: prompter})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file with the new steps (- for stdin)")
	return cmd
}

func newRenderCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render <task>",
		Short: "Regenerate the stepwise text of a task from its JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openStores()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.storePlanner().Render(args[0])
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newShowCmd(o *rootOptions) *cobra.Command {
	var asJSON, saved bool
	cmd := &cobra.Command{
		Use:   "show <task>",
		Short: "Show a stored task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openStores()
			if err != nil {
				return err
			}
			defer a.Close()

			if saved {
				text, err := a.plans.LoadStepwise(args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}
			res, err := a.storePlanner().Show(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res.Plan)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored JSON document")
	cmd.Flags().BoolVar(&saved, "saved", false, "Print the stored stepwise text as written")
	cmd.MarkFlagsMutuallyExclusive("json", "saved")
	return cmd
}

func newListCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openStores()
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.plans.List()
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
				return nil
			}
			for _, t := range tasks {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func newSecretsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "secrets",
		Short: "List the keys held in the secret store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openStores()
			if err != nil {
				return err
			}
			defer a.Close()

			keys := a.secrets.Keys()
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No secrets stored.")
				return nil
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func newHistoryCmd(o *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <task>",
		Short: "Show the recorded revisions of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openStores()
			if err != nil {
				return err
			}
			defer a.Close()

			revs, err := a.history.Revisions(plan.Slug(args[0]), limit)
			if err != nil {
				return err
			}
			if len(revs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No history for %s.\n", args[0])
				return nil
			}
			for _, r := range revs {
				steps := 0
				if r.Plan != nil {
					steps = len(r.Plan.Steps)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-6s  %d steps  %s\n",
					r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Kind, steps, r.Instruction)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of revisions")
	return cmd
}

// storePlanner is a planner for commands that never generate.
func (a *app) storePlanner() *planner.Planner {
	p := planner.New(nil, a.plans, a.secrets, planner.Options{})
	p.Logger = a.logger
	return p
}

func promptForInstruction(in *bufio.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter your instruction: ")
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errInstructionRequired
	}
	return line, nil
}

func readSteps(stdin io.Reader, file string) ([]plan.Step, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, err
	}

	var steps []plan.Step
	if err := json.Unmarshal(data, &steps); err == nil {
		return steps, nil
	}
	var doc plan.Plan
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("steps file is neither a step list nor a plan: %w", err)
	}
	return doc.Steps, nil
}

func printResult(w io.Writer, res *planner.Result) {
	fmt.Fprintf(w, "Task: %s\n", observability.Highlight(w, res.Plan.Task))
	if len(res.Lines) == 0 {
		fmt.Fprintln(w, "No steps found in the task plan.")
	} else {
		fmt.Fprintln(w, res.Text())
	}
	if len(res.Plan.MissingInfo) > 0 {
		fmt.Fprintf(w, "Missing info: %s\n", strings.Join(res.Plan.MissingInfo, ", "))
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
}
