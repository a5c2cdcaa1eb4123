// Package watcher reruns collection whenever the watched document changes.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrAlreadyStarted is returned by Start on a watcher that has run before.
var ErrAlreadyStarted = errors.New("watcher: already started")

// Notifier delivers one value per batch of structural changes. The returned
// function unsubscribes; the channel need not be closed by it.
type Notifier interface {
	Subscribe(ctx context.Context) (<-chan struct{}, func() error, error)
}

// Collector is the scan the watcher reruns.
type Collector interface {
	Collect(ctx context.Context) (int, error)
}

// Watcher runs one collection pass at start and one per change batch.
type Watcher struct {
	notifier  Notifier
	collector Collector

	mu          sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	unsubscribe func() error
	done        chan struct{}

	passes atomic.Int64
}

// New creates a Watcher.
func New(n Notifier, c Collector) *Watcher {
	return &Watcher{notifier: n, collector: c}
}

// Start subscribes, runs the initial pass, and begins reacting to changes.
// A watcher can be started once.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	ch, unsubscribe, err := w.notifier.Subscribe(loopCtx)
	if err != nil {
		cancel()
		return err
	}

	w.started = true
	w.cancel = cancel
	w.unsubscribe = unsubscribe
	w.done = make(chan struct{})

	// Subscribed first so changes during the initial pass are not missed.
	w.pass(loopCtx)

	go w.loop(loopCtx, ch)
	slog.Info("watcher started")
	return nil
}

// Stop unsubscribes and waits for the current pass to finish. It is safe to
// call more than once and on a watcher that never started.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	cancel, unsubscribe, done := w.cancel, w.unsubscribe, w.done
	w.mu.Unlock()

	cancel()
	var err error
	if unsubscribe != nil {
		err = unsubscribe()
	}
	<-done
	slog.Info("watcher stopped", "passes", w.passes.Load())
	return err
}

// Passes returns how many collection passes have run.
func (w *Watcher) Passes() int64 {
	return w.passes.Load()
}

func (w *Watcher) loop(ctx context.Context, ch <-chan struct{}) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			w.pass(ctx)
		}
	}
}

func (w *Watcher) pass(ctx context.Context) {
	w.passes.Add(1)
	if _, err := w.collector.Collect(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("collection pass failed", "error", err)
	}
}
