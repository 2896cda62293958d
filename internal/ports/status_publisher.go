package ports

import (
	"context"
	"time"

	"github.com/khmm12/reachable"
)

type TargetResult struct {
	Target   string
	Strategy reachable.Strategy
	Status   reachable.Status
	Err      error
	Duration time.Duration
}

type StatusPublisher interface {
	Publish(ctx context.Context, results []TargetResult) error
}
