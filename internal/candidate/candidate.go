package candidate

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/singlefault/mend/internal/gitops"
	"github.com/singlefault/mend/internal/oracle"
	"github.com/singlefault/mend/internal/suite"
)

// Config carries the shared staging parameters for one run. SubjectDir is
// a pristine copy of the program under repair, TargetFile the path of the
// defective source file relative to it.
type Config struct {
	SubjectDir string
	TargetFile string
	BuildCmd   string
	WorkRoot   string
	Oracle     *oracle.Runner
}

// Variant is one candidate program: a source file that replaces the
// subject's defective file inside a private workspace. Staging is lazy;
// the workspace is created on the first test run and removed by Cleanup.
type Variant struct {
	name       string
	sourcePath string
	cfg        Config

	mu          sync.Mutex
	workDir     string
	buildFailed bool
	fitness     float64
	memoized    bool
}

// New builds a variant from a candidate source file.
func New(sourcePath string, cfg Config) (*Variant, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("candidate: source path required")
	}
	if cfg.SubjectDir == "" {
		return nil, fmt.Errorf("candidate: subject dir required")
	}
	if cfg.TargetFile == "" {
		return nil, fmt.Errorf("candidate: target file required")
	}
	if cfg.WorkRoot == "" {
		return nil, fmt.Errorf("candidate: work root required")
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("candidate: oracle required")
	}
	base := filepath.Base(sourcePath)
	return &Variant{
		name:       strings.TrimSuffix(base, filepath.Ext(base)),
		sourcePath: sourcePath,
		cfg:        cfg,
	}, nil
}

// LoadDir builds one variant per regular file in dir, in name order.
// Hidden files are skipped.
func LoadDir(dir string, cfg Config) ([]*Variant, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading candidates dir: %w", err)
	}
	var variants []*Variant
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		v, err := New(filepath.Join(dir, entry.Name()), cfg)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i].name < variants[j].name })
	if len(variants) == 0 {
		return nil, fmt.Errorf("no candidate files in %s", dir)
	}
	return variants, nil
}

func (v *Variant) ID() string { return v.name }

// SourcePath returns the candidate file this variant was loaded from.
func (v *Variant) SourcePath() string { return v.sourcePath }

// RunTest stages the workspace if needed and executes one test case.
// A variant whose build failed fails every test without consulting the
// oracle.
func (v *Variant) RunTest(ctx context.Context, id suite.TestID) (suite.Outcome, error) {
	broken, workDir, err := v.ensureStaged(ctx)
	if err != nil {
		return suite.Outcome{}, err
	}
	if broken {
		return suite.Outcome{Passed: false, Values: []float64{0}}, nil
	}
	return v.cfg.Oracle.Run(ctx, workDir, id)
}

// RunTests executes a batch of test cases in order.
func (v *Variant) RunTests(ctx context.Context, ids []suite.TestID) ([]suite.Outcome, error) {
	outcomes := make([]suite.Outcome, 0, len(ids))
	for _, id := range ids {
		out, err := v.RunTest(ctx, id)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// ensureStaged copies the subject into a fresh workspace, swaps in the
// candidate source and runs the build command. It is idempotent until
// Cleanup removes the workspace.
func (v *Variant) ensureStaged(ctx context.Context) (broken bool, workDir string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.workDir != "" {
		return v.buildFailed, v.workDir, nil
	}

	if err := os.MkdirAll(v.cfg.WorkRoot, 0o755); err != nil {
		return false, "", fmt.Errorf("creating work root: %w", err)
	}
	dir, err := os.MkdirTemp(v.cfg.WorkRoot, v.name+"-")
	if err != nil {
		return false, "", fmt.Errorf("creating workspace: %w", err)
	}
	if err := gitops.CopyTree(v.cfg.SubjectDir, dir); err != nil {
		os.RemoveAll(dir)
		return false, "", fmt.Errorf("staging subject: %w", err)
	}
	source, err := os.ReadFile(v.sourcePath)
	if err != nil {
		os.RemoveAll(dir)
		return false, "", fmt.Errorf("reading candidate source: %w", err)
	}
	target := filepath.Join(dir, v.cfg.TargetFile)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		os.RemoveAll(dir)
		return false, "", fmt.Errorf("staging candidate: %w", err)
	}
	if err := os.WriteFile(target, source, 0o644); err != nil {
		os.RemoveAll(dir)
		return false, "", fmt.Errorf("staging candidate: %w", err)
	}

	failed := false
	if v.cfg.BuildCmd != "" {
		out, exitCode, err := v.cfg.Oracle.Exec(ctx, dir, v.cfg.BuildCmd)
		if err != nil {
			os.RemoveAll(dir)
			return false, "", fmt.Errorf("building %s: %w", v.name, err)
		}
		if exitCode != 0 {
			log.Printf("%s: build failed (exit %d): %s", v.name, exitCode, lastLine(out))
			failed = true
		}
	}

	v.workDir = dir
	v.buildFailed = failed
	return failed, dir, nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// Cleanup removes the workspace. Safe to call repeatedly; a later test
// run stages a fresh workspace.
func (v *Variant) Cleanup() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.workDir == "" {
		return nil
	}
	dir := v.workDir
	v.workDir = ""
	v.buildFailed = false
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing workspace: %w", err)
	}
	return nil
}

// CachedFitness returns the memoized fitness from an earlier complete
// evaluation.
func (v *Variant) CachedFitness() (float64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fitness, v.memoized
}

func (v *Variant) SetFitness(f float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fitness = f
	v.memoized = true
}

// PersistSource writes the candidate source to path, byte for byte.
func (v *Variant) PersistSource(path string) error {
	source, err := os.ReadFile(v.sourcePath)
	if err != nil {
		return fmt.Errorf("reading candidate source: %w", err)
	}
	if err := os.WriteFile(path, source, 0o644); err != nil {
		return fmt.Errorf("writing repair source: %w", err)
	}
	return nil
}
