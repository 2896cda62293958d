// Package async runs reachability checks for many targets on independent
// schedules and delivers every result to a per-target handler.
//
// Programs that only need one-off checks use reachable.Target directly and do
// not import this package.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/khmm12/reachable"
	"github.com/khmm12/reachable/internal/adapter/worker"
	"github.com/khmm12/reachable/internal/common/logging"
)

const DefaultMaxConcurrency = 64

var (
	ErrExecutorClosed  = errors.New("executor is shut down")
	ErrDuplicateTarget = errors.New("target is already registered")
	ErrInvalidTarget   = errors.New("invalid async target")
)

// Target is a registration request: check Target every Interval and hand each
// result to Handler. The first check runs after InitialDelay.
type Target struct {
	Target       reachable.Target
	Interval     time.Duration
	InitialDelay time.Duration
	Handler      Handler
}

func (t Target) validate() error {
	switch {
	case t.Target == nil:
		return fmt.Errorf("%w: missing target", ErrInvalidTarget)
	case t.Handler == nil:
		return fmt.Errorf("%w: missing handler for %s", ErrInvalidTarget, t.Target.ID())
	case t.Interval <= 0:
		return fmt.Errorf("%w: interval for %s must be greater than zero", ErrInvalidTarget, t.Target.ID())
	case t.InitialDelay < 0:
		return fmt.Errorf("%w: initial delay for %s must not be negative", ErrInvalidTarget, t.Target.ID())
	}

	return nil
}

type Options struct {
	// MaxConcurrency bounds the checks in flight across all registrations.
	MaxConcurrency int
}

type Executor struct {
	logger *slog.Logger
	sem    *semaphore.Weighted

	mu     sync.Mutex
	regs   map[reachable.Key]*Registration
	closed bool

	wg sync.WaitGroup
}

func NewExecutor(logger *slog.Logger, opts Options) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}

	return &Executor{
		logger: logger,
		sem:    semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		regs:   make(map[reachable.Key]*Registration),
	}
}

// Register schedules t and returns the handle that cancels it. A target whose
// key is already registered is rejected.
func (e *Executor) Register(t Target) (*Registration, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrExecutorClosed
	}

	key := t.Target.Key()
	if _, ok := e.regs[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTarget, key)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate registration id: %w", err)
	}

	r := &Registration{
		id:       id.String(),
		key:      key,
		spec:     t,
		executor: e,
		logger:   e.logger.With(slog.String("target", t.Target.ID()), slog.String("registration", id.String())),
	}
	r.worker = worker.NewWorker(r.logger, t.Interval, t.InitialDelay, worker.TaskFunc(r.execute))

	e.regs[key] = r
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		if err := r.worker.Start(); err != nil {
			r.logger.Error("Failed to start schedule", logging.Error(err))
		}

		r.state.Store(uint32(StateCancelled))
	}()

	r.logger.Info("Target registered",
		slog.String("strategy", key.Strategy.String()),
		slog.Duration("interval", t.Interval),
	)

	return r, nil
}

// Start registers every target. If one registration fails, the ones made by
// this call are cancelled and the error is returned.
func (e *Executor) Start(targets []Target) ([]*Registration, error) {
	regs := make([]*Registration, 0, len(targets))

	for _, t := range targets {
		r, err := e.Register(t)
		if err != nil {
			for _, r := range regs {
				r.Cancel()
			}

			return nil, err
		}

		regs = append(regs, r)
	}

	return regs, nil
}

// Registrations returns the live registrations.
func (e *Executor) Registrations() []*Registration {
	e.mu.Lock()
	defer e.mu.Unlock()

	regs := make([]*Registration, 0, len(e.regs))
	for _, r := range e.regs {
		regs = append(regs, r)
	}

	return regs
}

// Shutdown cancels every registration and waits for their schedules to exit.
// Checks already in flight run to completion; their results are discarded.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	regs := make([]*Registration, 0, len(e.regs))
	for _, r := range e.regs {
		regs = append(regs, r)
	}
	e.mu.Unlock()

	for _, r := range regs {
		r.Cancel()
	}

	done := make(chan struct{})

	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) remove(r *Registration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.regs[r.key] == r {
		delete(e.regs, r.key)
	}
}
