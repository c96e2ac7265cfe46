package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rahul/planwright/internal/credentials"
	"github.com/rahul/planwright/internal/observability"
	"github.com/rahul/planwright/internal/planner"
	"github.com/rahul/planwright/internal/sanitize"
	"github.com/rahul/planwright/internal/secrets"
	"github.com/rahul/planwright/internal/store"
	"github.com/rahul/planwright/pkg/config"
)

// app holds everything a command needs once the config is loaded.
type app struct {
	cfg     *config.Config
	logger  *observability.Logger
	status  *observability.SystemStatus
	secrets *secrets.Store
	plans   *store.PlanStore
	history *store.HistoryStore
	planner *planner.Planner
}

func (a *app) Close() {
	if a.history != nil {
		_ = a.history.Close()
	}
	_ = a.logger.Sync()
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// openStores opens everything except the generation client.
func (o *rootOptions) openStores() (*app, error) {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	debug := o.debug || cfg.Logging.Debug
	logOpts := observability.Options{Debug: debug}
	if debug {
		logOpts.LLMLogPath = cfg.Logging.LLMLog
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.LLMLog), 0755); err != nil {
			return nil, err
		}
	}
	a := &app{
		cfg:    cfg,
		logger: observability.NewLogger(os.Stderr, logOpts),
		status: observability.NewStatus(),
	}

	var secretOpts []secrets.Option
	if cfg.Planner.MirrorEnv {
		secretOpts = append(secretOpts, secrets.WithEnvMirror())
	}
	if a.secrets, err = secrets.Open(cfg.App.EnvFile, secretOpts...); err != nil {
		return nil, fmt.Errorf("open secret store: %w", err)
	}
	if a.plans, err = store.NewPlanStore(cfg.App.TasksDir); err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}
	if a.history, err = store.NewHistoryStore(cfg.Memory.Path); err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return a, nil
}

// open also builds the generation client and the planner.
func (o *rootOptions) open(ctx context.Context) (*app, error) {
	a, err := o.openStores()
	if err != nil {
		return nil, err
	}

	client, err := o.newClient(ctx, a.cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	p := planner.New(client, a.plans, a.secrets, planner.Options{
		MaxSteps:            a.cfg.Planner.MaxSteps,
		MaxChars:            a.cfg.Planner.MaxChars,
		URLMode:             sanitize.URLMode(a.cfg.Planner.URLMode),
		IndirectIdentifiers: a.cfg.Planner.IndirectIdentifiers,
	})
	p.History = a.history
	p.Logger = a.logger
	p.Status = a.status
	p.Prompts = planner.NewPromptManager(a.cfg.App.PromptsDir)
	a.planner = p
	return a, nil
}

// prompter picks how missing credentials are obtained for terminal commands.
func (o *rootOptions) prompter(envFile string) (credentials.Prompter, error) {
	switch {
	case len(o.secrets) > 0:
		return credentials.ParseStatic(o.secrets)
	case o.nonInteractive:
		return credentials.NonInteractive{}, nil
	default:
		return credentials.NewTerminal(envFile), nil
	}
}
