package fitness

import (
	"context"
	"fmt"

	"github.com/singlefault/mend/internal/suite"
)

// EvaluateWeighted scores v against the weighted suite and always returns a
// fitness so the caller can rank imperfect variants. A non-nil
// Report.Repair means v passed everything and was committed to the ledger.
func (e *Engine) EvaluateWeighted(ctx context.Context, v Variant) (Report, error) {
	if e.params.SingleFitness {
		return e.weightedSingle(ctx, v)
	}

	rep := Report{
		Variant:    v.ID(),
		Strategy:   StrategyWeighted,
		MaxFitness: e.params.MaxFitness(),
	}

	if f, ok := v.CachedFitness(); ok {
		rep.Fitness = f
		if err := v.Cleanup(); err != nil {
			return rep, fmt.Errorf("cleanup: %w", err)
		}
		// Only a cached value at the theoretical maximum can still be a
		// success; anything below is already known to be imperfect.
		if f < rep.MaxFitness {
			return rep, nil
		}
		return e.commit(v, rep)
	}

	fitness, failed, runErr := e.runWeighted(ctx, v)
	cleanupErr := v.Cleanup()
	if runErr != nil {
		return rep, runErr
	}
	if cleanupErr != nil {
		return rep, fmt.Errorf("cleanup: %w", cleanupErr)
	}
	rep.Fitness = fitness
	if failed {
		return rep, nil
	}
	return e.commit(v, rep)
}

// runWeighted runs the sampled positives, then all negatives, then the
// confirmation pass, and memoizes the resulting fitness on the variant.
// Unlike first-failure, every scheduled test runs regardless of
// intermediate failures so the score grades partial progress.
func (e *Engine) runWeighted(ctx context.Context, v Variant) (fitness float64, failed bool, err error) {
	fac := e.params.WeightFactor()

	sample := e.samplePositives()
	outs, err := e.runBatch(ctx, v, sample)
	if err != nil {
		return 0, false, fmt.Errorf("positive tests: %w", err)
	}
	for _, out := range outs {
		if out.Passed {
			fitness += 1.0
		} else {
			failed = true
		}
	}

	// Negatives are never sub-sampled: they are few, cheap, and the most
	// diagnostic part of the suite.
	outs, err = e.runBatch(ctx, v, suite.NegativeRange(e.params.NegCount))
	if err != nil {
		return 0, false, fmt.Errorf("negative tests: %w", err)
	}
	for _, out := range outs {
		if out.Passed {
			fitness += fac
		} else {
			failed = true
		}
	}

	// Confirmation pass over the unsampled positives. A failure here still
	// disqualifies the variant, but passes add nothing: the returned
	// fitness stays the lower bound computed from the sample.
	if !failed && len(sample) < e.params.PosCount {
		outs, err = e.runBatch(ctx, v, complement(sample, e.params.PosCount))
		if err != nil {
			return 0, false, fmt.Errorf("confirmation tests: %w", err)
		}
		for _, out := range outs {
			if !out.Passed {
				failed = true
			}
		}
	}

	v.SetFitness(fitness)
	return fitness, failed, nil
}

// weightedSingle collapses the evaluation into one probe run whose scalar
// payload is the fitness. The probe's pass flag alone decides success; the
// magnitude of the scalar never does.
func (e *Engine) weightedSingle(ctx context.Context, v Variant) (Report, error) {
	rep := Report{Variant: v.ID(), Strategy: StrategyWeighted}
	out, runErr := v.RunTest(ctx, suite.Probe())
	cleanupErr := v.Cleanup()
	if runErr != nil {
		return rep, fmt.Errorf("fitness probe: %w", runErr)
	}
	if cleanupErr != nil {
		return rep, fmt.Errorf("cleanup: %w", cleanupErr)
	}
	rep.Fitness = out.Scalar()
	if !out.Passed {
		return rep, nil
	}
	return e.commit(v, rep)
}
