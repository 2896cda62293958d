package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/khmm12/reachable/internal/common/logging"
	"github.com/khmm12/reachable/internal/common/tracing"
)

type Task interface {
	Execute(ctx context.Context) error
}

type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Worker runs a task on boundaries start + k*interval. Runs never overlap: a
// run that overruns boundaries makes the worker skip them instead of queueing.
type Worker struct {
	logger *slog.Logger

	interval     time.Duration
	initialDelay time.Duration
	task         Task

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	done     chan struct{}
	doneOnce sync.Once
}

func NewWorker(logger *slog.Logger, interval, initialDelay time.Duration, task Task) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		logger:       logger,
		interval:     interval,
		initialDelay: initialDelay,
		task:         task,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Start blocks until the worker is stopped.
func (w *Worker) Start() error {
	locked := w.mu.TryLock()
	if !locked {
		return fmt.Errorf("worker is already running")
	}

	defer w.mu.Unlock()
	defer w.doneOnce.Do(func() { close(w.done) })
	defer w.cancel()

	if w.interval <= 0 {
		return fmt.Errorf("worker interval must be greater than zero")
	}

	timer := time.NewTimer(max(w.initialDelay, 0))
	defer timer.Stop()

	var next time.Time

	for {
		select {
		case <-w.ctx.Done():
			return nil
		case <-timer.C:
		}

		if w.ctx.Err() != nil {
			return nil
		}

		if next.IsZero() {
			next = time.Now()
		}

		err := w.run(w.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(w.ctx, "Failed to execute task", logging.Error(err))
		}

		next = nextBoundary(next, w.interval, time.Now())
		timer.Reset(time.Until(next))
	}
}

// Stop asks the worker to exit without waiting. A running task is not
// interrupted by Stop, only the schedule is.
func (w *Worker) Stop() {
	w.cancel()
}

// Shutdown stops the worker and waits for Start to return.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.Stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Start has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run(ctx context.Context) error {
	return w.task.Execute(tracing.WithTraceID(ctx))
}

// nextBoundary returns the first boundary prev + k*interval (k >= 1) that is
// still in the future at now.
func nextBoundary(prev time.Time, interval time.Duration, now time.Time) time.Time {
	next := prev.Add(interval)
	if next.After(now) {
		return next
	}

	missed := now.Sub(next)/interval + 1

	return next.Add(missed * interval)
}
