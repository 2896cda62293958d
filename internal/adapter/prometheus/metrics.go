package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	targetUp      *prometheus.GaugeVec
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	targetsTotal  prometheus.Gauge
	targetsUp     prometheus.Gauge
}

const (
	prefix = "reachable_"
)

func newMetrics(reg *prometheus.Registry) (*metrics, error) {
	m := &metrics{
		targetUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "target_up",
			Help: "Whether the target was available at the last check (1: available, 0: unavailable)",
		}, []string{"target", "strategy"}),
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "checks_total",
			Help: "Number of completed checks by outcome reason",
		}, []string{"target", "strategy", "reason"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "check_duration_seconds",
			Help:    "Duration of a single check including name resolution",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"strategy"}),
		targetsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "targets_total",
			Help: "Number of checked targets",
		}),
		targetsUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "targets_up",
			Help: "Number of targets available at their last check",
		}),
	}

	err := register(reg,
		m.targetUp,
		m.checksTotal,
		m.checkDuration,
		m.targetsTotal,
		m.targetsUp,
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func register(r *prometheus.Registry, cs ...prometheus.Collector) error {
	for i, c := range cs {
		if err := r.Register(c); err != nil {
			for _, c := range cs[:i] {
				r.Unregister(c)
			}

			return err
		}
	}

	return nil
}
