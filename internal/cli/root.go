// Package cli wires the planner, front ends and runner into the planwright command.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rahul/planwright/internal/generation"
	"github.com/rahul/planwright/pkg/config"
)

// ClientFactory builds the generation client for a loaded config.
type ClientFactory func(ctx context.Context, cfg *config.Config) (generation.Client, error)

type rootOptions struct {
	configPath     string
	nonInteractive bool
	secrets        []string
	debug          bool

	newClient ClientFactory
}

// NewRootCmd builds the command tree. A nil factory uses the configured provider.
func NewRootCmd(newClient ClientFactory) *cobra.Command {
	if newClient == nil {
		newClient = defaultClient
	}
	opts := &rootOptions{newClient: newClient}

	root := &cobra.Command{
		Use:   "planwright",
		Short: "Turn natural-language instructions into browser action plans",
		Long: `planwright asks a language model for a step-by-step browser plan, then
cleans it up: credentials are moved into the secret store and replaced by
${KEY} placeholders, URLs are hidden and missing booking details are listed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "config.json", "Path to a JSON or YAML config file")
	flags.BoolVar(&opts.nonInteractive, "non-interactive", false, "Never prompt; missing credentials become warnings")
	flags.StringArrayVar(&opts.secrets, "secret", nil, "Answer credential prompts with KEY=VALUE (repeatable)")
	flags.BoolVar(&opts.debug, "debug", false, "Log LLM exchanges and other debug events")

	root.AddCommand(
		newAddCmd(opts),
		newModifyCmd(opts),
		newEditCmd(opts),
		newRenderCmd(opts),
		newShowCmd(opts),
		newListCmd(opts),
		newSecretsCmd(opts),
		newHistoryCmd(opts),
		newServeCmd(opts),
		newTelegramCmd(opts),
		newDiscordCmd(opts),
		newRunCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd(nil).ExecuteContext(ctx)
}

func defaultClient(ctx context.Context, cfg *config.Config) (generation.Client, error) {
	name, pCfg := cfg.GetDefaultProvider()
	return generation.New(ctx, name, pCfg)
}
