package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/rahul/planwright/internal/governance"
	"github.com/rahul/planwright/internal/observability"
	"github.com/rahul/planwright/internal/plan"
)

// Step outcomes.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// StepResult reports what happened to one plan step.
type StepResult struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Options configures a Browser.
type Options struct {
	Headless       bool
	ScreenshotsDir string
	StepTimeout    time.Duration
	// StopOnError aborts the run at the first failed step.
	StopOnError bool
	// Policy vets every step before it runs. Nil allows everything.
	Policy governance.PolicyEngine
}

// Browser drives a local Chrome through chromedp. The window stays open
// between runs until Close.
type Browser struct {
	mu            sync.Mutex
	opts          Options
	resolver      Resolver
	logger        *observability.Logger
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func NewBrowser(resolver Resolver, logger *observability.Logger, opts Options) *Browser {
	if opts.ScreenshotsDir == "" {
		opts.ScreenshotsDir = "screenshots"
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = observability.NewNop()
	}
	return &Browser{opts: opts, resolver: resolver, logger: logger}
}

func (b *Browser) initBrowser() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		select {
		case <-b.browserCtx.Done():
			b.cleanup()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)

	return chromedp.Run(b.browserCtx)
}

func (b *Browser) cleanup() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.allocCtx = nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanup()
}

// Run executes every step of p in order and reports each outcome. The
// returned error is set only when the browser could not start or ctx ended.
func (b *Browser) Run(ctx context.Context, p *plan.Plan) ([]StepResult, error) {
	if err := b.initBrowser(); err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	results := make([]StepResult, 0, len(p.Steps))
	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := StepResult{Step: i + 1, Action: step.Action, Status: StatusOK}
		action, err := Translate(step, p.Task, b.resolver)
		switch {
		case err != nil:
			res.Status, res.Detail = StatusFailed, err.Error()
		case action.Kind == KindSkip:
			res.Status, res.Detail = StatusSkipped, action.Reason
		default:
			var allowed bool
			allowed, res.Detail, err = Allowed(ctx, b.opts.Policy, p.Task, step, action)
			if err != nil {
				res.Status, res.Detail = StatusFailed, err.Error()
				break
			}
			if !allowed {
				res.Status = StatusSkipped
				break
			}
			res.Detail, err = b.exec(ctx, p.Task, i+1, action)
			if err != nil {
				res.Status, res.Detail = StatusFailed, fmt.Sprintf("Browser action failed: %v", err)
			}
		}

		b.logger.LogRunnerStep(p.Task, res.Step, res.Action, res.Status)
		results = append(results, res)
		if res.Status == StatusFailed && b.opts.StopOnError {
			break
		}
	}
	return results, nil
}

func (b *Browser) exec(ctx context.Context, task string, n int, a Action) (string, error) {
	actionCtx, cancel := context.WithTimeout(b.browserCtx, b.opts.StepTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	switch a.Kind {
	case KindNavigate:
		return fmt.Sprintf("Successfully navigated to %s", a.URL),
			chromedp.Run(actionCtx, chromedp.Navigate(a.URL), chromedp.WaitReady("body", chromedp.ByQuery))

	case KindClick:
		return "Clicked element",
			chromedp.Run(actionCtx, chromedp.Click(a.XPath, chromedp.BySearch, chromedp.NodeVisible))

	case KindType:
		tasks := chromedp.Tasks{
			chromedp.Click(a.XPath, chromedp.BySearch, chromedp.NodeVisible),
			chromedp.SendKeys(a.XPath, a.Text, chromedp.BySearch),
		}
		if a.Submit {
			tasks = append(tasks, chromedp.SendKeys(a.XPath, "\r", chromedp.BySearch))
		}
		return "Typed text", chromedp.Run(actionCtx, tasks)

	case KindPress:
		return "Pressed enter", chromedp.Run(actionCtx, chromedp.KeyEvent(a.Text))

	case KindScreenshot:
		var buf []byte
		if err := chromedp.Run(actionCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
			return "", err
		}
		return b.saveScreenshot(task, n, buf)

	case KindWait:
		select {
		case <-time.After(a.Wait):
			return fmt.Sprintf("Waited for %s", a.Wait), nil
		case <-actionCtx.Done():
			return "", actionCtx.Err()
		}
	}
	return "", errors.New("invalid action")
}

func (b *Browser) saveScreenshot(task string, n int, buf []byte) (string, error) {
	if err := os.MkdirAll(b.opts.ScreenshotsDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_step%d_%d.png", plan.Slug(task), n, time.Now().Unix())
	path := filepath.Join(b.opts.ScreenshotsDir, filename)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", err
	}
	absPath, _ := filepath.Abs(path)
	return fmt.Sprintf("Screenshot saved to %s", absPath), nil
}

// Allowed asks policy whether action may run. The reason is set when it may not.
func Allowed(ctx context.Context, policy governance.PolicyEngine, task string, step plan.Step, a Action) (bool, string, error) {
	if policy == nil {
		return true, "", nil
	}
	res, err := policy.Evaluate(ctx, governance.Request{
		Task:   task,
		Action: string(a.Kind),
		URL:    a.URL,
		Target: step.Target,
	})
	if err != nil {
		return false, "", fmt.Errorf("policy evaluation failed: %w", err)
	}
	if res.Effect == governance.EffectDeny {
		return false, res.Reason, nil
	}
	return true, "", nil
}

// PrintToPDF saves the current page as a PDF next to the screenshots.
func (b *Browser) PrintToPDF(ctx context.Context, task string) (string, error) {
	if err := b.initBrowser(); err != nil {
		return "", err
	}
	actionCtx, cancel := context.WithTimeout(b.browserCtx, b.opts.StepTimeout)
	defer cancel()

	var buf []byte
	err := chromedp.Run(actionCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().Do(ctx)
		return err
	}))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(b.opts.ScreenshotsDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(b.opts.ScreenshotsDir, plan.Slug(task)+".pdf")
	return path, os.WriteFile(path, buf, 0644)
}
