package prometheus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/khmm12/reachable/async"
	"github.com/khmm12/reachable/internal/ports"
)

var (
	_ ports.StatusPublisher = (*StatusPublisher)(nil)
	_ async.Handler         = (*StatusPublisher)(nil)
)

// StatusPublisher exports check results. It accepts whole batches through
// Publish and single async reports through HandleReport.
type StatusPublisher struct {
	logger   *slog.Logger
	exporter *Exporter

	mu sync.Mutex
	up map[seriesKey]bool
}

type seriesKey struct {
	target   string
	strategy string
}

func NewStatusPublisher(logger *slog.Logger, exporter *Exporter) *StatusPublisher {
	return &StatusPublisher{
		logger:   logger,
		exporter: exporter,
		up:       make(map[seriesKey]bool),
	}
}

func (p *StatusPublisher) Publish(ctx context.Context, results []ports.TargetResult) error {
	p.logger.DebugContext(ctx, "Publishing check results", slog.Int("targets", len(results)))

	if len(results) == 0 {
		p.logger.DebugContext(ctx, "No targets to publish")
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, r := range results {
		p.record(r)
	}

	p.updateTotals()

	return nil
}

func (p *StatusPublisher) HandleReport(ctx context.Context, r async.Report) {
	if r.Target == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.record(ports.TargetResult{
		Target:   r.Target.ID(),
		Strategy: r.Target.Key().Strategy,
		Status:   r.Status,
		Err:      r.Err,
		Duration: r.Duration,
	})

	p.updateTotals()

	if r.Changed {
		p.logger.DebugContext(ctx, "Published status change",
			slog.String("target", r.Target.ID()),
			slog.String("status", r.Status.String()),
		)
	}
}

func (p *StatusPublisher) record(r ports.TargetResult) {
	m := p.exporter.metrics
	strategy := r.Strategy.String()

	var up float64
	if r.Status.IsAvailable() {
		up = 1.0
	}

	m.targetUp.WithLabelValues(r.Target, strategy).Set(up)
	m.checksTotal.WithLabelValues(r.Target, strategy, r.Status.Reason().String()).Inc()
	m.checkDuration.WithLabelValues(strategy).Observe(r.Duration.Seconds())

	p.up[seriesKey{target: r.Target, strategy: strategy}] = r.Status.IsAvailable()
}

func (p *StatusPublisher) updateTotals() {
	var up int

	for _, ok := range p.up {
		if ok {
			up++
		}
	}

	m := p.exporter.metrics

	m.targetsTotal.Set(float64(len(p.up)))
	m.targetsUp.Set(float64(up))
}
