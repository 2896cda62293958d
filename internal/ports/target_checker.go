package ports

import (
	"context"

	"github.com/khmm12/reachable"
)

// TargetChecker has the method set of reachable.Target.
type TargetChecker interface {
	ID() string
	Key() reachable.Key
	CheckAvailability(ctx context.Context) (reachable.Status, error)
}
