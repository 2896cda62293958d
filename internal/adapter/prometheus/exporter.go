package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter owns a dedicated registry, so nothing registered on the global
// default registry leaks into the scrape output.
type Exporter struct {
	reg     *prometheus.Registry
	metrics *metrics
}

type ExporterOptions struct {
	// RuntimeMetrics adds the Go runtime and process collectors.
	RuntimeMetrics bool
}

func NewExporter(opts ExporterOptions) (*Exporter, error) {
	reg := prometheus.NewRegistry()

	if opts.RuntimeMetrics {
		err := register(reg,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if err != nil {
			return nil, err
		}
	}

	metrics, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}

	return &Exporter{
		reg:     reg,
		metrics: metrics,
	}, nil
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{Registry: e.reg})
}
