package fitness

import (
	"context"
	"fmt"
	"log"

	"github.com/singlefault/mend/internal/suite"
)

// EvaluateFirstFailure is the cheap binary evaluator: it stops at the first
// failing test instead of scoring the whole suite and never yields a
// numeric fitness. The accumulated partial score appears in a log line
// only. A non-nil Report.Repair means every test passed.
func (e *Engine) EvaluateFirstFailure(ctx context.Context, v Variant) (Report, error) {
	rep := Report{Variant: v.ID(), Strategy: StrategyFirstFailure}

	passed, runErr := e.runToFirstFailure(ctx, v)
	cleanupErr := v.Cleanup()
	if runErr != nil {
		return rep, runErr
	}
	if cleanupErr != nil {
		return rep, fmt.Errorf("cleanup: %w", cleanupErr)
	}
	if !passed {
		return rep, nil
	}
	return e.commit(v, rep)
}

// runToFirstFailure iterates negatives then positives, accumulating the
// scalar payload of each pass, and aborts on the first failure. Negatives
// go first: on a bad variant they are the likeliest to fail, so checking
// them first wastes the least work.
func (e *Engine) runToFirstFailure(ctx context.Context, v Variant) (bool, error) {
	if e.params.SingleFitness {
		out, err := v.RunTest(ctx, suite.Probe())
		if err != nil {
			return false, fmt.Errorf("fitness probe: %w", err)
		}
		if !out.Passed {
			log.Printf("%s: fitness probe failed (score %.2f)", v.ID(), out.Scalar())
			return false, nil
		}
		return true, nil
	}

	var score float64
	ids := append(suite.NegativeRange(e.params.NegCount), suite.PositiveRange(e.params.PosCount)...)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		out, err := v.RunTest(ctx, id)
		if err != nil {
			return false, fmt.Errorf("test %s: %w", id, err)
		}
		if !out.Passed {
			log.Printf("%s: first failure at %s (partial score %.2f)", v.ID(), id, score)
			return false, nil
		}
		score += out.Scalar()
	}
	return true, nil
}
