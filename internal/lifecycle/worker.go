// Package lifecycle hosts the three LifecycleWorkers: the expiry sweeper,
// the hot<->cold tier migrator, and the orphan chunk/session cleaner. Each
// is an independent periodic goroutine with start/stop/runOnce.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/vaultfs/vaultfs/internal/logger"
)

// worker is the shared ticker/stop/done scaffolding each lifecycle worker
// embeds, following the same start-once/stop-once shape the rest of the
// codebase uses for background goroutines.
type worker struct {
	name     string
	interval time.Duration
	runOnce  func(ctx context.Context)

	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func newWorker(name string, interval time.Duration, runOnce func(ctx context.Context)) *worker {
	return &worker{
		name:     name,
		interval: interval,
		runOnce:  runOnce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the periodic loop. Idempotent.
func (w *worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.loop(ctx)
	})
}

// Stop signals the loop to exit and waits for it to finish its current
// tick. Idempotent.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
	})
}

// RunOnce executes a single pass synchronously, outside the ticker. Used by
// tests and by an operator-triggered manual sweep.
func (w *worker) RunOnce(ctx context.Context) {
	w.runOnce(ctx)
}

func (w *worker) loop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *worker) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("lifecycle worker panicked", "worker", w.name, "panic", r)
		}
	}()
	w.runOnce(ctx)
}
