package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/khmm12/reachable/internal/common/logging"
	"github.com/khmm12/reachable/internal/common/tracing"
	"github.com/khmm12/reachable/internal/ports"
)

type CheckTargetsUseCase struct {
	logger      *slog.Logger
	publisher   ports.StatusPublisher
	concurrency int
}

func NewCheckTargetsUseCase(logger *slog.Logger, publisher ports.StatusPublisher, concurrency int) *CheckTargetsUseCase {
	return &CheckTargetsUseCase{
		logger:      logger,
		publisher:   publisher,
		concurrency: concurrency,
	}
}

type CheckTargetsCommand struct {
	Targets []ports.TargetChecker
}

type CheckTargetsSummary struct {
	Total     int
	Available int
}

func (s CheckTargetsSummary) AllAvailable() bool {
	return s.Available == s.Total
}

// Execute checks every target and publishes all results in input order. A
// failed check is published as its Status; only cancellation and publishing
// errors abort the run.
func (u *CheckTargetsUseCase) Execute(ctx context.Context, cmd CheckTargetsCommand) (CheckTargetsSummary, error) {
	results := make([]ports.TargetResult, len(cmd.Targets))

	g, gctx := errgroup.WithContext(ctx)
	if u.concurrency > 0 {
		g.SetLimit(u.concurrency)
	}

	for i, target := range cmd.Targets {
		g.Go(func() error {
			tctx := tracing.WithTarget(gctx, target.ID())

			start := time.Now()
			status, err := target.CheckAvailability(tctx)

			if err != nil {
				u.logger.WarnContext(tctx, "Check returned an error", slog.String("status", status.String()), logging.Error(err))
			}

			results[i] = ports.TargetResult{
				Target:   target.ID(),
				Strategy: target.Key().Strategy,
				Status:   status,
				Err:      err,
				Duration: time.Since(start),
			}

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return CheckTargetsSummary{}, fmt.Errorf("check targets: %w", err)
	}

	summary := CheckTargetsSummary{Total: len(results)}
	for _, r := range results {
		if r.Status.IsAvailable() {
			summary.Available++
		}
	}

	err := u.publisher.Publish(ctx, results)
	if err != nil {
		return summary, fmt.Errorf("failed to publish check results: %w", err)
	}

	return summary, nil
}
