package fitness

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/singlefault/mend/internal/repair"
	"github.com/singlefault/mend/internal/suite"
)

const (
	StrategyWeighted     = "weighted"
	StrategyFirstFailure = "first-failure"
)

// Variant is one candidate program under evaluation. The engine borrows it
// for the duration of a single evaluation call: it drives tests through it,
// memoizes the computed fitness on it, and releases its resources via
// Cleanup before returning.
type Variant interface {
	ID() string
	RunTest(ctx context.Context, id suite.TestID) (suite.Outcome, error)
	RunTests(ctx context.Context, ids []suite.TestID) ([]suite.Outcome, error)
	Cleanup() error
	CachedFitness() (float64, bool)
	SetFitness(f float64)
	PersistSource(path string) error
}

// Params fix the suite shape and the scoring knobs for one search run.
type Params struct {
	PosCount       int
	NegCount       int
	NegativeWeight float64
	SampleFraction float64
	SingleFitness  bool
	Seed           int64
}

// WeightFactor is the score contribution of one passing negative test,
// chosen so the total achievable from negatives equals NegativeWeight times
// the total achievable from positives.
func (p Params) WeightFactor() float64 {
	return float64(p.PosCount) * p.NegativeWeight / float64(p.NegCount)
}

// MaxFitness is the score of a variant passing every test. It works out to
// PosCount*(1+NegativeWeight) whatever the negative count is.
func (p Params) MaxFitness() float64 {
	return float64(p.PosCount) + float64(p.NegCount)*p.WeightFactor()
}

// Report is the tagged result of one evaluation. Repair is non-nil exactly
// when the variant passed everything and was committed to the ledger.
// Fitness and MaxFitness are populated by the weighted strategy only; the
// first-failure strategy reports its partial score in a log line and
// nothing numeric here.
type Report struct {
	Variant    string
	Strategy   string
	Fitness    float64
	MaxFitness float64
	Repair     *repair.Record
}

// Engine evaluates variants against the configured suite. Evaluation calls
// are reentrant: concurrent calls on distinct variants share only the
// repair ledger and the seeded RNG, both synchronized internally, and no
// lock is ever held across an oracle call.
type Engine struct {
	params Params
	ledger *repair.Ledger

	mu  sync.Mutex
	rng *rand.Rand
}

func New(params Params, ledger *repair.Ledger) (*Engine, error) {
	if params.PosCount < 0 || params.NegCount < 0 {
		return nil, fmt.Errorf("test counts must be nonnegative")
	}
	if !params.SingleFitness && params.NegCount < 1 {
		return nil, fmt.Errorf("at least one negative test is required")
	}
	if params.NegativeWeight <= 0 {
		return nil, fmt.Errorf("negative test weight must be positive, got %g", params.NegativeWeight)
	}
	if params.SampleFraction <= 0 || params.SampleFraction > 1 {
		return nil, fmt.Errorf("sample fraction must be in (0,1], got %g", params.SampleFraction)
	}
	if ledger == nil {
		return nil, fmt.Errorf("repair ledger is required")
	}
	seed := params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		params: params,
		ledger: ledger,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

// Params returns the engine's scoring parameters.
func (e *Engine) Params() Params { return e.params }

// Evaluate dispatches to the named strategy; the empty string selects the
// weighted default.
func (e *Engine) Evaluate(ctx context.Context, v Variant, strategy string) (Report, error) {
	switch strategy {
	case StrategyFirstFailure:
		return e.EvaluateFirstFailure(ctx, v)
	case "", StrategyWeighted:
		return e.EvaluateWeighted(ctx, v)
	default:
		return Report{}, fmt.Errorf("unknown strategy %q", strategy)
	}
}

func (e *Engine) commit(v Variant, rep Report) (Report, error) {
	record, err := e.ledger.Commit(v)
	if err != nil {
		return rep, err
	}
	rep.Repair = record
	return rep, nil
}

// runBatch drives the oracle over ids. Outcomes must come back one per
// identifier; anything else is an oracle contract violation.
func (e *Engine) runBatch(ctx context.Context, v Variant, ids []suite.TestID) ([]suite.Outcome, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	outs, err := v.RunTests(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(outs) != len(ids) {
		return nil, fmt.Errorf("oracle returned %d outcomes for %d tests", len(outs), len(ids))
	}
	return outs, nil
}
