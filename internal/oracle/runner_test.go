package oracle_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/singlefault/mend/internal/oracle"
	"github.com/singlefault/mend/internal/suite"
)

func TestRunPassingCommand(t *testing.T) {
	r := &oracle.Runner{PosCount: 1, NegCount: 1, TestCmd: "true"}
	out, err := r.Run(context.Background(), t.TempDir(), suite.Pos(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Passed {
		t.Error("expected pass")
	}
	if out.Scalar() != 1 {
		t.Errorf("scalar = %v, want 1", out.Scalar())
	}
}

func TestRunFailingCommand(t *testing.T) {
	r := &oracle.Runner{PosCount: 1, NegCount: 1, TestCmd: "false"}
	out, err := r.Run(context.Background(), t.TempDir(), suite.Neg(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Passed {
		t.Error("expected failure")
	}
	if out.Scalar() != 0 {
		t.Errorf("scalar = %v, want 0", out.Scalar())
	}
}

func TestCommandSubstitutesTestName(t *testing.T) {
	r := &oracle.Runner{PosCount: 5, NegCount: 2, TestCmd: "./run-test.sh {test}"}

	cases := []struct {
		id   suite.TestID
		want string
	}{
		{suite.Pos(3), "./run-test.sh p3"},
		{suite.Neg(1), "./run-test.sh n1"},
		{suite.Probe(), "./run-test.sh s"},
	}
	for _, tc := range cases {
		if got := r.Command(tc.id); got != tc.want {
			t.Errorf("Command(%s) = %q, want %q", tc.id, got, tc.want)
		}
	}

	r.ProbeCmd = "./probe.sh"
	if got := r.Command(suite.Probe()); got != "./probe.sh" {
		t.Errorf("Command(s) with probe override = %q, want ./probe.sh", got)
	}
	if got := r.Command(suite.Pos(1)); got != "./run-test.sh p1" {
		t.Errorf("probe override must not affect %q", got)
	}
}

func TestRunProbeParsesScalar(t *testing.T) {
	r := &oracle.Runner{PosCount: 1, NegCount: 1, TestCmd: "false", ProbeCmd: "echo 0.75"}
	out, err := r.Run(context.Background(), t.TempDir(), suite.Probe())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Passed {
		t.Error("expected pass")
	}
	if out.Scalar() != 0.75 {
		t.Errorf("scalar = %v, want 0.75", out.Scalar())
	}
}

func TestRunUsesWorkDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "score.txt"), []byte("0.25\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &oracle.Runner{PosCount: 1, NegCount: 1, TestCmd: "cat score.txt"}
	out, err := r.Run(context.Background(), dir, suite.Pos(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Scalar() != 0.25 {
		t.Errorf("scalar = %v, want 0.25", out.Scalar())
	}
}

func TestRunRejectsUnknownTest(t *testing.T) {
	r := &oracle.Runner{PosCount: 2, NegCount: 1, TestCmd: "true"}
	if _, err := r.Run(context.Background(), t.TempDir(), suite.Pos(3)); err == nil {
		t.Error("expected error for out-of-range test")
	}
}

func TestRunTimeoutCountsAsFailure(t *testing.T) {
	r := &oracle.Runner{
		PosCount: 1,
		NegCount: 1,
		TestCmd:  "sleep 5",
		Timeout:  50 * time.Millisecond,
	}
	out, err := r.Run(context.Background(), t.TempDir(), suite.Pos(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Passed {
		t.Error("timed-out test must not pass")
	}
	if out.Scalar() != 0 {
		t.Errorf("scalar = %v, want 0", out.Scalar())
	}
}

func TestRunPropagatesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &oracle.Runner{PosCount: 1, NegCount: 1, TestCmd: "true"}
	_, err := r.Run(ctx, t.TempDir(), suite.Pos(1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunAllPreservesOrder(t *testing.T) {
	r := &oracle.Runner{PosCount: 2, NegCount: 1, TestCmd: "echo {test} | grep -c p"}
	ids := []suite.TestID{suite.Pos(1), suite.Neg(1), suite.Pos(2)}
	outcomes, err := r.RunAll(context.Background(), t.TempDir(), ids)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	// grep -c prints the match count and fails on zero matches, so the
	// negative case fails and both positives pass.
	if !outcomes[0].Passed || outcomes[1].Passed || !outcomes[2].Passed {
		t.Errorf("pass pattern = %v %v %v, want true false true",
			outcomes[0].Passed, outcomes[1].Passed, outcomes[2].Passed)
	}
}

func TestParseOutcome(t *testing.T) {
	cases := []struct {
		name     string
		output   string
		exitCode int
		passed   bool
		values   []float64
	}{
		{"pass no output", "", 0, true, []float64{1}},
		{"fail no output", "", 1, false, []float64{0}},
		{"pass with scalar", "0.5\n", 0, true, []float64{0.5}},
		{"fail with scalar", "12\n", 1, false, []float64{12}},
		{"scalar from last numeric line", "3\n0.1\n", 0, true, []float64{0.1, 3}},
		{"values among noise", "building...\n0.9\nall done\n", 0, true, []float64{0.9}},
		{"framed container line", "\x01\x00\x00\x00\x00\x00\x00\x050.25\n", 0, true, []float64{0.25}},
		{"negative value", "-1.5\n", 0, true, []float64{-1.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := oracle.ParseOutcome([]byte(tc.output), tc.exitCode)
			if out.Passed != tc.passed {
				t.Errorf("passed = %v, want %v", out.Passed, tc.passed)
			}
			if len(out.Values) != len(tc.values) {
				t.Fatalf("values = %v, want %v", out.Values, tc.values)
			}
			for i := range tc.values {
				if out.Values[i] != tc.values[i] {
					t.Errorf("values[%d] = %v, want %v", i, out.Values[i], tc.values[i])
				}
			}
		})
	}
}
