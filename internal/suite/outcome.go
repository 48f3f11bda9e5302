package suite

// Outcome is the result of running one test against a variant. Values is
// ordered and never empty: Values[0] is the scalar consumed by scoring,
// anything after it is diagnostic.
type Outcome struct {
	Passed bool
	Values []float64
}

// Scalar returns the scoring payload. An empty Values slice is a contract
// violation by the test oracle and panics rather than defaulting to zero.
func (o Outcome) Scalar() float64 {
	if len(o.Values) == 0 {
		panic("suite: test outcome carries no values")
	}
	return o.Values[0]
}
