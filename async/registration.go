package async

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/khmm12/reachable"
	"github.com/khmm12/reachable/internal/adapter/worker"
	"github.com/khmm12/reachable/internal/common/tracing"
)

type State uint32

const (
	StateIdle State = iota
	StateResolving
	StateProbing
	StateReporting
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateProbing:
		return "probing"
	case StateReporting:
		return "reporting"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// Registration is the handle of one scheduled target.
type Registration struct {
	id       string
	key      reachable.Key
	spec     Target
	executor *Executor
	worker   *worker.Worker
	logger   *slog.Logger

	state     atomic.Uint32
	cancelled atomic.Bool

	// previous is only touched by the schedule goroutine.
	previous reachable.Status
}

func (r *Registration) ID() string {
	return r.id
}

func (r *Registration) Key() reachable.Key {
	return r.key
}

func (r *Registration) Target() reachable.Target {
	return r.spec.Target
}

func (r *Registration) State() State {
	return State(r.state.Load())
}

// Cancel stops the schedule without blocking and may be called from the
// handler. A check in flight finishes and its result is dropped, unless its
// delivery had already begun when Cancel was called. Wait on Done for the
// guarantee that the handler is not invoked again. Cancel does not affect
// other registrations.
func (r *Registration) Cancel() {
	if !r.cancelled.CompareAndSwap(false, true) {
		return
	}

	r.state.Store(uint32(StateCancelled))
	r.worker.Stop()
	r.executor.remove(r)

	r.logger.Info("Target cancelled")
}

// Done is closed when the schedule has exited. The handler is never invoked
// after Done is closed.
func (r *Registration) Done() <-chan struct{} {
	return r.worker.Done()
}

func (r *Registration) execute(ctx context.Context) error {
	if err := r.executor.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	defer r.executor.sem.Release(1)

	if r.cancelled.Load() {
		return nil
	}

	checkCtx := reachable.ContextWithPhaseObserver(context.WithoutCancel(ctx), r.observePhase)

	start := time.Now()
	status, err := r.check(checkCtx)
	duration := time.Since(start)

	if r.cancelled.Load() {
		r.logger.DebugContext(ctx, "Discarding result of cancelled target", slog.String("status", status.String()))
		return nil
	}

	r.setState(StateReporting)

	report := Report{
		Target:    r.spec.Target,
		Status:    status,
		Previous:  r.previous,
		Changed:   status != r.previous,
		Err:       err,
		CheckedAt: start,
		Duration:  duration,
		TraceID:   tracing.GetTraceID(ctx),
	}

	r.logger.DebugContext(ctx, "Check reported",
		slog.String("status", status.String()),
		slog.Bool("changed", report.Changed),
		slog.Duration("duration", duration),
	)

	r.deliver(ctx, report)
	r.previous = status
	r.setState(StateIdle)

	return nil
}

func (r *Registration) check(ctx context.Context) (status reachable.Status, err error) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.ErrorContext(ctx, "Check panicked", slog.Any("panic", v), slog.String("stack", string(debug.Stack())))
			status, err = reachable.Unavailable(reachable.ReasonUnknown), fmt.Errorf("check panicked: %v", v)
		}
	}()

	return r.spec.Target.CheckAvailability(ctx)
}

func (r *Registration) deliver(ctx context.Context, report Report) {
	if r.cancelled.Load() {
		return
	}

	defer func() {
		if v := recover(); v != nil {
			r.logger.ErrorContext(ctx, "Handler panicked", slog.Any("panic", v))
		}
	}()

	r.spec.Handler.HandleReport(ctx, report)
}

func (r *Registration) observePhase(p reachable.Phase) {
	switch p {
	case reachable.PhaseResolving:
		r.setState(StateResolving)
	case reachable.PhaseProbing:
		r.setState(StateProbing)
	}
}

// setState moves to s unless the registration is already cancelled.
func (r *Registration) setState(s State) {
	for {
		cur := r.state.Load()
		if State(cur) == StateCancelled {
			return
		}

		if r.state.CompareAndSwap(cur, uint32(s)) {
			return
		}
	}
}
