package async

import (
	"context"
	"time"

	"github.com/khmm12/reachable"
)

// Report is delivered to a Handler after every check, including checks whose
// Status equals the previous one.
type Report struct {
	Target reachable.Target
	Status reachable.Status
	// Previous is the Status of the preceding check; it is invalid for the
	// first check of a registration.
	Previous  reachable.Status
	Changed   bool
	Err       error
	CheckedAt time.Time
	Duration  time.Duration
	TraceID   string
}

// Handler receives check results. The executor owns the handler for the
// lifetime of its registration and calls it from one goroutine at a time.
type Handler interface {
	HandleReport(ctx context.Context, r Report)
}

type HandlerFunc func(ctx context.Context, r Report)

func (f HandlerFunc) HandleReport(ctx context.Context, r Report) {
	f(ctx, r)
}

// LegacyHandler adapts a callback taking the current and previous status in
// the legacy representation.
func LegacyHandler(fn func(t reachable.Target, status, previous OldStatus)) Handler {
	return HandlerFunc(func(_ context.Context, r Report) {
		fn(r.Target, LegacyStatus(r.Status), LegacyStatus(r.Previous))
	})
}
