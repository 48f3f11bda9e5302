package oracle

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/singlefault/mend/internal/sandbox"
	"github.com/singlefault/mend/internal/suite"
)

const testPlaceholder = "{test}"

// Runner adjudicates a candidate workspace against the test suite. Each
// test is a shell command built from TestCmd with {test} replaced by the
// case name (p1, n3, s). ProbeCmd, when set, overrides the command for
// the fitness probe. A nil Sandbox runs commands directly on the host.
type Runner struct {
	PosCount int
	NegCount int
	TestCmd  string
	ProbeCmd string
	Timeout  time.Duration
	Sandbox  *sandbox.Runner
}

// Run executes one test case in workDir. A failing test is a normal
// outcome, not an error; errors mean the oracle itself could not run.
// A test that exceeds Timeout counts as failed with a zero score.
func (r *Runner) Run(ctx context.Context, workDir string, id suite.TestID) (suite.Outcome, error) {
	if err := id.Validate(r.PosCount, r.NegCount); err != nil {
		return suite.Outcome{}, err
	}

	output, exitCode, timedOut, err := r.exec(ctx, workDir, r.Command(id))
	if err != nil {
		return suite.Outcome{}, fmt.Errorf("test %s: %w", id, err)
	}
	if timedOut {
		log.Printf("warning: test %s timed out after %s", id, r.Timeout)
		return suite.Outcome{Passed: false, Values: []float64{0}}, nil
	}
	return ParseOutcome(output, exitCode), nil
}

// RunAll executes a batch of test cases in order.
func (r *Runner) RunAll(ctx context.Context, workDir string, ids []suite.TestID) ([]suite.Outcome, error) {
	outcomes := make([]suite.Outcome, 0, len(ids))
	for _, id := range ids {
		out, err := r.Run(ctx, workDir, id)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// Exec runs an arbitrary shell command under the oracle's execution
// policy, using the same sandbox and timeout as test runs. Candidate
// build steps use it. A timed-out command reports exit 124.
func (r *Runner) Exec(ctx context.Context, workDir, cmdStr string) ([]byte, int, error) {
	out, exitCode, timedOut, err := r.exec(ctx, workDir, cmdStr)
	if timedOut {
		return out, 124, err
	}
	return out, exitCode, err
}

// Command returns the shell command for a test case.
func (r *Runner) Command(id suite.TestID) string {
	if id.Kind == suite.SingleProbe && r.ProbeCmd != "" {
		return r.ProbeCmd
	}
	return strings.ReplaceAll(r.TestCmd, testPlaceholder, id.String())
}

func (r *Runner) exec(ctx context.Context, workDir, cmdStr string) ([]byte, int, bool, error) {
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if r.Sandbox != nil {
		res, err := r.Sandbox.Exec(runCtx, workDir, cmdStr)
		// The sandbox cannot tell a deadline from a caller cancellation;
		// only the former counts as a timed-out test.
		if ctx.Err() != nil {
			return nil, 0, false, ctx.Err()
		}
		if err != nil {
			return nil, 0, false, err
		}
		return res.Output, res.ExitCode, res.TimedOut, nil
	}

	cmd := exec.CommandContext(runCtx, "sh", "-c", cmdStr)
	cmd.Dir = workDir
	// Child processes can hold the output pipe open past the kill;
	// WaitDelay bounds how long that stalls collection.
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return nil, 0, false, ctx.Err()
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return out, 124, true, nil
	}
	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, 0, false, fmt.Errorf("running command: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return out, exitCode, false, nil
}

// ParseOutcome interprets a test command's output and exit status. Exit 0
// passes, anything else fails. Lines holding a single number become the
// outcome values; the scalar comes from the last numeric line (test
// scripts print their score last), earlier numeric lines follow as
// diagnostics. A command that prints no numbers gets 1 for a pass and 0
// for a failure, so probe consumers always see a scalar.
func ParseOutcome(output []byte, exitCode int) suite.Outcome {
	passed := exitCode == 0
	values := parseValues(output)
	switch n := len(values); {
	case n == 0 && passed:
		values = []float64{1}
	case n == 0:
		values = []float64{0}
	case n > 1:
		values = append([]float64{values[n-1]}, values[:n-1]...)
	}
	return suite.Outcome{Passed: passed, Values: values}
}

func parseValues(output []byte) []float64 {
	var values []float64
	for _, line := range strings.Split(string(output), "\n") {
		// Container log streams prefix each line with a binary frame
		// header; strip it along with surrounding whitespace.
		line = strings.TrimFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || !unicode.IsPrint(r)
		})
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}
