package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khmm12/reachable/async"
	"github.com/khmm12/reachable/internal/adapter/httpsrv"
	"github.com/khmm12/reachable/internal/adapter/prometheus"
	"github.com/khmm12/reachable/internal/common/logging"
)

type Metrics struct {
	Addr string `name:"addr" env:"METRICS_ADDR" default:"0.0.0.0:8080" help:"HTTP Address to bind Prometheus metrics"`
	Path string `name:"path" env:"METRICS_PATH" default:"/metrics" help:"Path to serve Prometheus metrics"`
}

type Watch struct {
	Probe `embed:""`

	Interval time.Duration `name:"interval" env:"PROBE_INTERVAL" default:"30s" help:"The interval between two checks of the same target (e.g., 10s, 5m)."`
	Metrics  Metrics       `embed:"" prefix:"metrics."`
}

func (w *Watch) Validate() error {
	errs := w.Probe.validate()

	if w.Interval <= 0 {
		errs = append(errs, errors.New("--interval: must be greater than zero"))
	}

	if w.Interval <= w.Timeout {
		errs = append(errs, errors.New("--interval: must be greater than --timeout"))
	}

	if !isTCPAddr(w.Metrics.Addr) {
		errs = append(errs, errors.New("--metrics.addr: must be a valid tcp listening address (e.g. 0.0.0.0:8080)"))
	}

	if len(w.Metrics.Path) == 0 || w.Metrics.Path[0] != '/' {
		errs = append(errs, errors.New("--metrics.path: must start with /"))
	}

	return errors.Join(errs...)
}

func (w *Watch) Run(cli *CLI) error {
	ctx := context.Background()
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := newLogger(os.Stdout, cli.LogLevel)
	if err != nil {
		return err
	}

	targets, closer, err := w.buildTargets(logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build targets", logging.Error(err))
		return err
	}

	defer func() {
		logger.InfoContext(ctx, "Closing resolver")
		_ = closer.Close()
	}()

	exporter, err := prometheus.NewExporter(prometheus.ExporterOptions{RuntimeMetrics: true})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create prometheus exporter", logging.Error(err))
		return err
	}

	publisher := prometheus.NewStatusPublisher(logger, exporter)
	executor := async.NewExecutor(logger, async.Options{MaxConcurrency: w.Concurrency})

	srv := httpsrv.NewServer(w.Metrics.Addr, httpsrv.ServerOptions{
		MetricsHandler: exporter.Handler(),
		MetricsPath:    w.Metrics.Path,
		Health: func() error {
			if len(executor.Registrations()) == 0 {
				return errors.New("no targets scheduled")
			}

			return nil
		},
	})

	defer func() {
		logger.InfoContext(ctx, "Stopping...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		logger.InfoContext(ctx, "Stopping Executor...")
		serr := executor.Shutdown(shutdownCtx)
		if serr != nil {
			logger.ErrorContext(ctx, "Failed to stop Executor", logging.Error(serr))
		}

		logger.InfoContext(ctx, "Stopping HTTP Server...")
		serr = srv.Shutdown(shutdownCtx)
		if serr != nil {
			logger.ErrorContext(ctx, "Failed to stop HTTP Server", logging.Error(serr))
		}

		logger.InfoContext(ctx, "Stopped")
	}()

	handler := newReportHandler(logger, publisher)

	specs := make([]async.Target, len(targets))
	for i, t := range targets {
		specs[i] = async.Target{
			Target:   t,
			Interval: w.Interval,
			Handler:  handler,
		}
	}

	if _, err := executor.Start(specs); err != nil {
		logger.ErrorContext(ctx, "Failed to schedule targets", logging.Error(err))
		return fmt.Errorf("failed to schedule targets: %w", err)
	}

	logger.InfoContext(ctx, "Start Executor",
		slog.Int("targets", len(specs)),
		slog.Duration("interval", w.Interval),
	)

	errCh := make(chan error, 1)

	go func() {
		logger.InfoContext(ctx, "Start HTTP Server", slog.String("address", srv.ListenAddr()))

		err := srv.Start()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to start HTTP Server", logging.Error(err))
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// newReportHandler logs every status change and exports every report.
func newReportHandler(logger *slog.Logger, next async.Handler) async.Handler {
	return async.HandlerFunc(func(ctx context.Context, r async.Report) {
		attrs := []any{
			slog.String("target", r.Target.ID()),
			slog.String("status", r.Status.String()),
			slog.Duration("duration", r.Duration),
		}

		if r.Err != nil {
			attrs = append(attrs, logging.Error(r.Err))
		}

		if r.Changed {
			logger.InfoContext(ctx, "Target status changed", append(attrs, slog.String("previous", r.Previous.String()))...)
		} else {
			logger.DebugContext(ctx, "Target status unchanged", attrs...)
		}

		next.HandleReport(ctx, r)
	})
}
