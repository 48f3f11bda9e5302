// Package search evaluates candidate variants concurrently until a
// repair is found, the pool drains, or the context is canceled.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/singlefault/mend/internal/fitness"
	"github.com/singlefault/mend/internal/repair"
)

// Driver fans evaluations out over a bounded worker pool. OnReport, when
// set, observes every completed evaluation together with its wall time;
// calls are serialized.
type Driver struct {
	Engine   *fitness.Engine
	Strategy string
	Parallel int
	OnReport func(fitness.Report, time.Duration)
}

// Summary aggregates one search: every completed evaluation report, and
// the first repair found, if any.
type Summary struct {
	Reports []fitness.Report
	Repair  *repair.Record
}

func (s Summary) Evaluated() int { return len(s.Reports) }

// Run evaluates the variants until the first repair. A found repair
// cancels in-flight peers through the group context; the strategies run
// each variant's cleanup before returning, so canceled peers release
// their workspaces, and their cancellation is not reported as a failure.
func (d *Driver) Run(ctx context.Context, variants []fitness.Variant) (Summary, error) {
	parallel := d.Parallel
	if parallel < 1 {
		parallel = 1
	}

	var (
		mu      sync.Mutex
		summary Summary
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, v := range variants {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			rep, err := d.Engine.Evaluate(gCtx, v, d.Strategy)
			if err != nil {
				// Peers canceled by a found repair (or by the caller)
				// are not evaluation failures.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return fmt.Errorf("evaluating %s: %w", v.ID(), err)
			}

			mu.Lock()
			summary.Reports = append(summary.Reports, rep)
			if d.OnReport != nil {
				d.OnReport(rep, time.Since(start))
			}
			mu.Unlock()

			if rep.Repair != nil {
				return &repair.Found{Record: rep.Repair}
			}
			return nil
		})
	}

	err := g.Wait()
	var found *repair.Found
	switch {
	case errors.As(err, &found):
		summary.Repair = found.Record
	case err != nil:
		return summary, err
	case ctx.Err() != nil:
		return summary, ctx.Err()
	}
	return summary, nil
}
