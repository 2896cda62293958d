package main

import (
	"context"
	"fmt"
	"io"

	"github.com/khmm12/reachable/internal/ports"
)

var _ ports.StatusPublisher = (*printer)(nil)

// printer writes one "<target> is <status>" line per result.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) Publish(_ context.Context, results []ports.TargetResult) error {
	for _, r := range results {
		if _, err := fmt.Fprintf(p.w, "%s is %s\n", r.Target, r.Status); err != nil {
			return err
		}
	}

	return nil
}
