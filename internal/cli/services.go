package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rahul/planwright/internal/gateway"
	"github.com/rahul/planwright/internal/governance"
	"github.com/rahul/planwright/internal/observability"
	"github.com/rahul/planwright/internal/planner"
	"github.com/rahul/planwright/internal/runner"
	"github.com/rahul/planwright/internal/server"
	"github.com/rahul/planwright/internal/watch"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var (
		addr     string
		execute  bool
		headless bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := server.New(a.planner, a.status, a.logger.Zap())
			if execute {
				b, err := a.browser(headless, false)
				if err != nil {
					return err
				}
				defer b.Close()
				srv.WithRunner(b)
			}

			observability.PrintBanner(cmd.ErrOrStderr(), "task api on "+addr)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")
	cmd.Flags().BoolVar(&execute, "execute", false, "Enable /execute-task with a local browser")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run the browser without a window")
	return cmd
}

func newTelegramCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Answer task commands from a Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tgCfg, ok := a.cfg.GetTelegramConfig()
			if !ok {
				return fmt.Errorf("telegram gateway is not enabled or token is missing")
			}
			tg, err := gateway.NewTelegramGateway(tgCfg.Token, &gateway.Handler{Planner: a.planner}, a.logger.Zap())
			if err != nil {
				return err
			}

			observability.PrintBanner(cmd.ErrOrStderr(), "telegram gateway")
			return tg.Start(cmd.Context())
		},
	}
}

func newDiscordCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discord",
		Short: "Answer task commands from a Discord bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			dcCfg, ok := a.cfg.GetDiscordConfig()
			if !ok {
				return fmt.Errorf("discord gateway is not enabled or token is missing")
			}
			dg, err := gateway.NewDiscordGateway(dcCfg.Token, &gateway.Handler{Planner: a.planner}, a.logger.Zap())
			if err != nil {
				return err
			}

			observability.PrintBanner(cmd.ErrOrStderr(), "discord gateway")
			return dg.Start(cmd.Context())
		},
	}
}

func newRunCmd(o *rootOptions) *cobra.Command {
	var (
		headless bool
		pdf      bool
		stop     bool
	)
	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Walk a stored plan in a local browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openStores()
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.plans.Load(args[0])
			if err != nil {
				return err
			}

			b, err := a.browser(headless, stop)
			if err != nil {
				return err
			}
			defer b.Close()

			a.status.Set(observability.PhaseRunning, p.Task)
			results, err := b.Run(cmd.Context(), p)
			a.status.Idle()
			for _, r := range results {
				line := fmt.Sprintf("Step %d: %s %s", r.Step, r.Action, r.Status)
				if r.Detail != "" {
					line += " (" + r.Detail + ")"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if err != nil {
				return err
			}

			if pdf {
				path, err := b.PrintToPDF(cmd.Context(), p.Task)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "Run the browser without a window")
	cmd.Flags().BoolVar(&pdf, "pdf", false, "Save the final page as a PDF")
	cmd.Flags().BoolVar(&stop, "stop-on-error", false, "Abort at the first failed step")
	return cmd
}

func newWatchCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Regenerate stepwise text whenever a task JSON changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openStores()
			if err != nil {
				return err
			}
			defer a.Close()

			p := a.storePlanner()
			zl := a.logger.Zap()
			w, err := watch.New(a.plans.Dir(), func(task string) error {
				res, err := p.Render(task)
				if err != nil {
					return err
				}
				zl.Info("stepwise text regenerated", zap.String("task", task), zap.Int("steps", len(res.Lines)))
				return nil
			}, zl)
			if err != nil {
				return err
			}
			defer w.Stop()

			if err := w.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", a.plans.Dir())
			<-cmd.Context().Done()
			return nil
		},
	}
}

func (a *app) browser(headless, stopOnError bool) (*runner.Browser, error) {
	policy, err := governance.NewPolicyEngine(a.cfg.Runner.DenyActions, a.cfg.Runner.DenyPatterns)
	if err != nil {
		return nil, err
	}
	return runner.NewBrowser(a.secrets, a.logger, runner.Options{
		Headless:       headless,
		ScreenshotsDir: a.cfg.App.ScreenshotsDir,
		StepTimeout:    time.Duration(a.cfg.Runner.StepTimeout) * time.Second,
		StopOnError:    stopOnError,
		Policy:         policy,
	}), nil
}

var (
	_ server.Planner  = (*planner.Planner)(nil)
	_ gateway.Planner = (*planner.Planner)(nil)
	_ server.Runner   = (*runner.Browser)(nil)
)
