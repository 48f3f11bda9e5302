package suite_test

import (
	"testing"

	"github.com/singlefault/mend/internal/suite"
)

func TestIDString(t *testing.T) {
	cases := []struct {
		id   suite.TestID
		want string
	}{
		{suite.Pos(1), "p1"},
		{suite.Pos(12), "p12"},
		{suite.Neg(3), "n3"},
		{suite.Probe(), "s"},
	}
	for _, c := range cases {
		if got := c.id.String(); got != c.want {
			t.Errorf("String: got %q, want %q", got, c.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := suite.Pos(5).Validate(5, 1); err != nil {
		t.Errorf("p5 should be valid for 5 positives: %v", err)
	}
	if err := suite.Pos(6).Validate(5, 1); err == nil {
		t.Error("p6 should be out of range for 5 positives")
	}
	if err := suite.Pos(0).Validate(5, 1); err == nil {
		t.Error("p0 should be out of range")
	}
	if err := suite.Neg(2).Validate(5, 1); err == nil {
		t.Error("n2 should be out of range for 1 negative")
	}
	if err := suite.Probe().Validate(0, 0); err != nil {
		t.Errorf("probe should always validate: %v", err)
	}
}

func TestRanges(t *testing.T) {
	pos := suite.PositiveRange(3)
	if len(pos) != 3 {
		t.Fatalf("expected 3 positive ids, got %d", len(pos))
	}
	if pos[0].String() != "p1" || pos[2].String() != "p3" {
		t.Errorf("positive range out of order: %v", pos)
	}
	if got := len(suite.NegativeRange(0)); got != 0 {
		t.Errorf("expected empty negative range, got %d ids", got)
	}
}

func TestScalarPanicsOnEmptyValues(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for empty values")
		}
	}()
	suite.Outcome{Passed: true}.Scalar()
}

func TestScalarReturnsFirstValue(t *testing.T) {
	o := suite.Outcome{Passed: true, Values: []float64{0.5, 9}}
	if got := o.Scalar(); got != 0.5 {
		t.Errorf("Scalar: got %f, want 0.5", got)
	}
}
