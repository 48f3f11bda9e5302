package suite

import "fmt"

type Kind int

const (
	Positive Kind = iota
	Negative
	SingleProbe
)

func (k Kind) String() string {
	switch k {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	case SingleProbe:
		return "single-probe"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TestID names one labeled test in the repair suite. Index is 1-based for
// positive and negative tests and unused for the single fitness probe.
type TestID struct {
	Kind  Kind
	Index int
}

func Pos(i int) TestID { return TestID{Kind: Positive, Index: i} }
func Neg(i int) TestID { return TestID{Kind: Negative, Index: i} }
func Probe() TestID { return TestID{Kind: SingleProbe} }

// String renders the short form used in test commands and logs:
// p<i> for positive tests, n<i> for negative tests, s for the probe.
func (id TestID) String() string {
	switch id.Kind {
	case Positive:
		return fmt.Sprintf("p%d", id.Index)
	case Negative:
		return fmt.Sprintf("n%d", id.Index)
	case SingleProbe:
		return "s"
	default:
		return fmt.Sprintf("?%d", id.Index)
	}
}

// Validate checks the identifier against the configured suite shape before
// it is dispatched to a test command.
func (id TestID) Validate(posCount, negCount int) error {
	switch id.Kind {
	case Positive:
		if id.Index < 1 || id.Index > posCount {
			return fmt.Errorf("positive test index %d out of range [1,%d]", id.Index, posCount)
		}
	case Negative:
		if id.Index < 1 || id.Index > negCount {
			return fmt.Errorf("negative test index %d out of range [1,%d]", id.Index, negCount)
		}
	case SingleProbe:
	default:
		return fmt.Errorf("unknown test kind %d", int(id.Kind))
	}
	return nil
}

// PositiveRange returns p1..pn in order.
func PositiveRange(n int) []TestID {
	ids := make([]TestID, n)
	for i := range ids {
		ids[i] = Pos(i + 1)
	}
	return ids
}

// NegativeRange returns n1..nn in order.
func NegativeRange(n int) []TestID {
	ids := make([]TestID, n)
	for i := range ids {
		ids[i] = Neg(i + 1)
	}
	return ids
}
