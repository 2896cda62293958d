package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/khmm12/reachable/internal/common/logging"
	"github.com/khmm12/reachable/internal/ports"
	"github.com/khmm12/reachable/internal/usecase"
)

var errUnavailable = errors.New("some targets are unavailable")

type Check struct {
	Probe `embed:""`
}

func (c *Check) Validate() error {
	return errors.Join(c.Probe.validate()...)
}

func (c *Check) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the results.
	logger, err := newLogger(os.Stderr, cli.LogLevel)
	if err != nil {
		return err
	}

	targets, closer, err := c.buildTargets(logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build targets", logging.Error(err))
		return err
	}

	defer func() {
		_ = closer.Close()
	}()

	checkers := make([]ports.TargetChecker, len(targets))
	for i, t := range targets {
		checkers[i] = t
	}

	uc := usecase.NewCheckTargetsUseCase(logger, newPrinter(os.Stdout), c.Concurrency)

	summary, err := uc.Execute(ctx, usecase.CheckTargetsCommand{Targets: checkers})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to check targets", logging.Error(err))
		return err
	}

	if !summary.AllAvailable() {
		return errUnavailable
	}

	return nil
}
