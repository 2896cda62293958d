package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khmm12/reachable"
	"github.com/khmm12/reachable/internal/ports"
	portsm "github.com/khmm12/reachable/internal/ports/mocks"
)

func TestCheckTargetsUseCase_PublishesResultsInOrder(t *testing.T) {
	ctx := t.Context()

	publisher := portsm.NewMockStatusPublisher(t)
	uc := newTestCheckTargetsUseCase(t, publisher, 4)

	up := newTestTarget(t, "printer1.local:631", reachable.Available(), nil)
	down := newTestTarget(t, "printer2.local:631", reachable.Unavailable(reachable.ReasonTimeout), nil)

	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(results []ports.TargetResult) bool {
		return len(results) == 2 &&
			results[0].Target == "printer1.local:631" && results[0].Status == reachable.Available() &&
			results[1].Target == "printer2.local:631" && results[1].Status == reachable.Unavailable(reachable.ReasonTimeout) &&
			results[1].Strategy == reachable.StrategyTCP
	})).Return(nil)

	summary, err := uc.Execute(ctx, CheckTargetsCommand{
		Targets: []ports.TargetChecker{up, down},
	})

	require.NoError(t, err)
	require.Equal(t, CheckTargetsSummary{Total: 2, Available: 1}, summary)
	require.False(t, summary.AllAvailable())
}

func TestCheckTargetsUseCase_PublishesCheckErrors(t *testing.T) {
	ctx := t.Context()

	publisher := portsm.NewMockStatusPublisher(t)
	uc := newTestCheckTargetsUseCase(t, publisher, 4)

	checkErr := errors.New("no such host")
	target := newTestTarget(t, "missing.example:80", reachable.Unavailable(reachable.ReasonResolutionFailure), checkErr)

	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(results []ports.TargetResult) bool {
		return len(results) == 1 && errors.Is(results[0].Err, checkErr)
	})).Return(nil)

	summary, err := uc.Execute(ctx, CheckTargetsCommand{
		Targets: []ports.TargetChecker{target},
	})

	require.NoError(t, err)
	require.Equal(t, CheckTargetsSummary{Total: 1}, summary)
}

func TestCheckTargetsUseCase_ReturnsErrorWhenPublishingFails(t *testing.T) {
	ctx := t.Context()

	publisher := portsm.NewMockStatusPublisher(t)
	uc := newTestCheckTargetsUseCase(t, publisher, 4)

	target := newTestTarget(t, "printer1.local:631", reachable.Available(), nil)

	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("publish failed"))

	summary, err := uc.Execute(ctx, CheckTargetsCommand{
		Targets: []ports.TargetChecker{target},
	})

	require.ErrorContains(t, err, "failed to publish check results")
	require.True(t, summary.AllAvailable())
}

func TestCheckTargetsUseCase_DoesNotPublishWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())

	publisher := portsm.NewMockStatusPublisher(t)
	uc := newTestCheckTargetsUseCase(t, publisher, 4)

	target := portsm.NewMockTargetChecker(t)
	target.On("ID").Return("printer1.local:631")
	target.On("Key").Return(reachable.Key{Host: "printer1.local", Port: 631, Strategy: reachable.StrategyTCP}).Maybe()
	target.On("CheckAvailability", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(reachable.Unavailable(reachable.ReasonUnknown), context.Canceled)

	_, err := uc.Execute(ctx, CheckTargetsCommand{
		Targets: []ports.TargetChecker{target},
	})

	require.ErrorIs(t, err, context.Canceled)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCheckTargetsUseCase_BoundsConcurrency(t *testing.T) {
	ctx := t.Context()

	publisher := portsm.NewMockStatusPublisher(t)
	uc := newTestCheckTargetsUseCase(t, publisher, 2)

	var inFlight, peak atomic.Int32

	targets := make([]ports.TargetChecker, 6)
	for i := range targets {
		target := portsm.NewMockTargetChecker(t)
		target.On("ID").Return("host.example:80")
		target.On("Key").Return(reachable.Key{Host: "host.example", Port: 80, Strategy: reachable.StrategyTCP})
		target.On("CheckAvailability", mock.Anything).
			Run(func(mock.Arguments) {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}

				time.Sleep(10 * time.Millisecond)
				inFlight.Add(-1)
			}).
			Return(reachable.Available(), nil)

		targets[i] = target
	}

	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	summary, err := uc.Execute(ctx, CheckTargetsCommand{Targets: targets})

	require.NoError(t, err)
	require.Equal(t, 6, summary.Available)
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func newTestTarget(t *testing.T, id string, status reachable.Status, err error) *portsm.MockTargetChecker {
	t.Helper()

	addr := reachable.MustParseAddress(id)

	target := portsm.NewMockTargetChecker(t)
	target.On("ID").Return(id)
	target.On("Key").Return(reachable.Key{Host: addr.Host().String(), Port: addr.Port(), Strategy: reachable.StrategyTCP})
	target.On("CheckAvailability", mock.Anything).Return(status, err)

	return target
}

func newTestCheckTargetsUseCase(t *testing.T, publisher ports.StatusPublisher, concurrency int) *CheckTargetsUseCase {
	t.Helper()

	return NewCheckTargetsUseCase(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		publisher,
		concurrency,
	)
}
