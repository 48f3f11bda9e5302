package fitness

import (
	"math"
	"sort"

	"github.com/singlefault/mend/internal/suite"
)

// samplePositives picks the positive tests scored by one weighted
// evaluation. With sampling active the selection is the first
// floor(PosCount*SampleFraction) elements of a uniform random permutation;
// execution order is always ascending so runs stay comparable in logs.
func (e *Engine) samplePositives() []suite.TestID {
	pos := e.params.PosCount
	if e.params.SampleFraction >= 1.0 {
		return suite.PositiveRange(pos)
	}
	size := int(math.Floor(float64(pos) * e.params.SampleFraction))
	if size >= pos {
		return suite.PositiveRange(pos)
	}
	e.mu.Lock()
	perm := e.rng.Perm(pos)
	e.mu.Unlock()
	idx := perm[:size]
	sort.Ints(idx)
	ids := make([]suite.TestID, size)
	for i, n := range idx {
		ids[i] = suite.Pos(n + 1)
	}
	return ids
}

// complement returns the positive tests not in sample, ascending.
func complement(sample []suite.TestID, posCount int) []suite.TestID {
	in := make(map[int]bool, len(sample))
	for _, id := range sample {
		in[id.Index] = true
	}
	var rest []suite.TestID
	for i := 1; i <= posCount; i++ {
		if !in[i] {
			rest = append(rest, suite.Pos(i))
		}
	}
	return rest
}
