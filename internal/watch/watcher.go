// Package watch regenerates stepwise text when a task's JSON document is
// edited by hand in the tasks directory.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/rahul/planwright/internal/store"
)

// Handler is called with the task whose document changed.
type Handler func(task string) error

// Watcher watches a tasks directory for *.json writes. Temp files from atomic
// writes and the side files (_steps.txt, _prompt.txt) are ignored.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	handler     Handler
	logger      *zap.Logger
	pending     map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

func New(dir string, handler Handler, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		watcher:     w,
		dir:         dir,
		handler:     handler,
		logger:      logger,
		pending:     make(map[string]time.Time),
		debounceDur: 200 * time.Millisecond, // editors save in bursts
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Unlock()
		return err
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("watching tasks directory", zap.String("path", w.dir))
	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("error closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	task, ok := store.TaskFromPath(event.Name)
	if !ok {
		return
	}
	w.mu.Lock()
	w.pending[task] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	now := time.Now()
	var ready []string

	w.mu.Lock()
	for task, at := range w.pending {
		if now.Sub(at) >= w.debounceDur {
			ready = append(ready, task)
			delete(w.pending, task)
		}
	}
	w.mu.Unlock()

	for _, task := range ready {
		if err := w.handler(task); err != nil {
			w.logger.Warn("failed to regenerate stepwise text", zap.String("task", task), zap.Error(err))
			continue
		}
		w.logger.Info("stepwise text regenerated", zap.String("task", task))
	}
}
