package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/singlefault/mend/internal/archive"
	"github.com/singlefault/mend/internal/candidate"
	"github.com/singlefault/mend/internal/config"
	"github.com/singlefault/mend/internal/fitness"
	"github.com/singlefault/mend/internal/gitops"
	"github.com/singlefault/mend/internal/oracle"
	"github.com/singlefault/mend/internal/repair"
	"github.com/singlefault/mend/internal/report"
	"github.com/singlefault/mend/internal/result"
	"github.com/singlefault/mend/internal/sandbox"
	"github.com/singlefault/mend/internal/search"
)

var (
	flagCandidates        string
	flagStrategy          string
	flagParallel          int
	flagSampleFraction    float64
	flagNegativeWeight    float64
	flagSingleFitness     bool
	flagCleanupAggressive bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate candidate patches until one repairs the subject",
		RunE:  runSearch,
	}
	cmd.Flags().StringVar(&flagCandidates, "candidates", "", "directory of candidate source files")
	cmd.Flags().StringVar(&flagStrategy, "strategy", "", "evaluation strategy (weighted, first-failure)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "max concurrent evaluations")
	cmd.Flags().Float64Var(&flagSampleFraction, "sample-fraction", 0, "fraction of positive tests sampled per evaluation")
	cmd.Flags().Float64Var(&flagNegativeWeight, "negative-weight", 0, "total weight of negative tests relative to positives")
	cmd.Flags().BoolVar(&flagSingleFitness, "single-fitness", false, "score variants with the single probe command")
	cmd.Flags().BoolVar(&flagCleanupAggressive, "cleanup-aggressive", false, "prune mend-labeled Docker containers after the run")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyRunFlags(cfg)
	switch cfg.Fitness.Strategy {
	case fitness.StrategyWeighted, fitness.StrategyFirstFailure:
	default:
		return fmt.Errorf("unknown strategy %q", cfg.Fitness.Strategy)
	}
	if cfg.Candidates == "" {
		return fmt.Errorf("no candidates directory (set candidates in config or pass --candidates)")
	}
	// Resolve the seed now so run.json records a value that reproduces the
	// sampling order.
	if cfg.Fitness.Seed == 0 {
		cfg.Fitness.Seed = time.Now().UnixNano()
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Run directory: %s\n", runDir)

	subjectDir, workRoot, cleanup, err := stageSubject(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	orc := newOracle(cfg)
	ledger := repair.NewLedger(runDir, cfg.Results.Ext, cfg.Results.Suffix)
	params := fitnessParams(cfg)
	engine, err := fitness.New(params, ledger)
	if err != nil {
		return err
	}

	variants, err := candidate.LoadDir(cfg.Candidates, candidate.Config{
		SubjectDir: subjectDir,
		TargetFile: cfg.Subject.TargetFile,
		BuildCmd:   cfg.Subject.BuildCmd,
		WorkRoot:   workRoot,
		Oracle:     orc,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d candidates from %s\n", len(variants), cfg.Candidates)

	store, err := archive.Open(filepath.Join(cfg.Results.Dir, "archive.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	startedAt := time.Now().UTC()
	meta := &result.RunMeta{
		RunID:          uuid.NewString(),
		StartedAt:      startedAt,
		Strategy:       cfg.Fitness.Strategy,
		PosCount:       cfg.Suite.PosCount,
		NegCount:       cfg.Suite.NegCount,
		NegativeWeight: cfg.Fitness.NegativeWeight,
		SampleFraction: cfg.Fitness.SampleFraction,
		SingleFitness:  cfg.Fitness.SingleFitness,
		Seed:           cfg.Fitness.Seed,
		Candidates:     len(variants),
	}
	if !cfg.Fitness.SingleFitness {
		meta.MaxFitness = params.MaxFitness()
	}
	if err := store.RecordRun(ctx, meta); err != nil {
		log.Printf("warning: archiving run: %v", err)
	}

	driver := &search.Driver{
		Engine:   engine,
		Strategy: cfg.Fitness.Strategy,
		Parallel: cfg.Search.Parallel,
		OnReport: func(rep fitness.Report, dur time.Duration) {
			switch {
			case rep.Repair != nil:
				fmt.Printf("  %s: repair (%.1fs)\n", rep.Variant, dur.Seconds())
			case rep.Strategy == fitness.StrategyFirstFailure:
				fmt.Printf("  %s: rejected (%.1fs)\n", rep.Variant, dur.Seconds())
			default:
				fmt.Printf("  %s: fitness %s (%.1fs)\n", rep.Variant, fitnessLabel(rep), dur.Seconds())
			}
			ev := archive.Evaluation{
				RunID:      meta.RunID,
				Variant:    rep.Variant,
				Strategy:   rep.Strategy,
				Fitness:    rep.Fitness,
				MaxFitness: rep.MaxFitness,
				Success:    rep.Repair != nil,
				DurationMS: dur.Milliseconds(),
			}
			if err := store.RecordEvaluation(ctx, ev); err != nil {
				log.Printf("warning: archiving evaluation of %s: %v", rep.Variant, err)
			}
		},
	}

	fmt.Printf("Evaluating with strategy %s (parallel %d)...\n", cfg.Fitness.Strategy, cfg.Search.Parallel)
	summary, err := driver.Run(ctx, toFitnessVariants(variants))
	if err != nil {
		return err
	}

	for _, rep := range summary.Reports {
		if rep.Repair == nil {
			continue
		}
		if err := writeRepairArtifacts(cfg, subjectDir, rep); err != nil {
			return err
		}
	}

	meta.DurationS = int(time.Since(startedAt).Seconds())
	meta.Evaluated = summary.Evaluated()
	meta.Repairs = ledger.Count()
	if err := result.WriteRunMeta(runDir, meta); err != nil {
		return err
	}
	if err := store.RecordRun(ctx, meta); err != nil {
		log.Printf("warning: archiving run: %v", err)
	}

	if flagCleanupAggressive {
		cleanupContainers()
	}

	if summary.Repair != nil {
		fmt.Printf("\nRepair found: %s (variant %s)\n", summary.Repair.Path, summary.Repair.Variant)
	} else {
		fmt.Printf("\nNo repair found after %d evaluations\n", summary.Evaluated())
	}

	fmt.Println("\n--- Results ---")
	return report.GenerateRun(ctx, store, meta.RunID, "table", os.Stdout)
}

func applyRunFlags(cfg *config.Config) {
	if flagCandidates != "" {
		cfg.Candidates = flagCandidates
	}
	if flagStrategy != "" {
		cfg.Fitness.Strategy = flagStrategy
	}
	if flagParallel > 0 {
		cfg.Search.Parallel = flagParallel
	}
	if flagSampleFraction > 0 {
		cfg.Fitness.SampleFraction = flagSampleFraction
	}
	if flagNegativeWeight > 0 {
		cfg.Fitness.NegativeWeight = flagNegativeWeight
	}
	if flagSingleFitness {
		cfg.Fitness.SingleFitness = true
	}
}

func fitnessParams(cfg *config.Config) fitness.Params {
	return fitness.Params{
		PosCount:       cfg.Suite.PosCount,
		NegCount:       cfg.Suite.NegCount,
		NegativeWeight: cfg.Fitness.NegativeWeight,
		SampleFraction: cfg.Fitness.SampleFraction,
		SingleFitness:  cfg.Fitness.SingleFitness,
		Seed:           cfg.Fitness.Seed,
	}
}

func newOracle(cfg *config.Config) *oracle.Runner {
	r := &oracle.Runner{
		PosCount: cfg.Suite.PosCount,
		NegCount: cfg.Suite.NegCount,
		TestCmd:  cfg.Suite.TestCmd,
		ProbeCmd: cfg.Suite.ProbeCmd,
		Timeout:  time.Duration(cfg.Suite.TimeoutSeconds) * time.Second,
	}
	if cfg.Sandbox.Enabled {
		r.Sandbox = &sandbox.Runner{
			Image:       cfg.Sandbox.Image,
			User:        cfg.Sandbox.User,
			CPULimit:    cfg.Sandbox.CPULimit,
			MemoryLimit: cfg.Sandbox.MemoryMB * 1024 * 1024,
		}
	}
	return r
}

// stageSubject materializes a pristine snapshot of the subject for the run,
// next to a scratch root for candidate workspaces. Cloned subjects stay git
// repos so repair diffs can be captured repo-relative; plain directories are
// snapshotted without git metadata.
func stageSubject(cfg *config.Config) (subjectDir, workRoot string, cleanup func(), err error) {
	tmp, err := os.MkdirTemp("", "mend-")
	if err != nil {
		return "", "", nil, fmt.Errorf("creating staging dir: %w", err)
	}
	cleanup = func() { os.RemoveAll(tmp) }
	subjectDir = filepath.Join(tmp, "subject")
	workRoot = filepath.Join(tmp, "work")
	if cfg.Subject.Repo != "" {
		fmt.Printf("Cloning subject %s@%s\n", cfg.Subject.Repo, cfg.Subject.Tag)
		err = gitops.CloneAndCheckout(cfg.Subject.Repo, cfg.Subject.Tag, subjectDir)
	} else {
		err = gitops.CopyTree(cfg.Subject.Dir, subjectDir)
	}
	if err != nil {
		cleanup()
		return "", "", nil, fmt.Errorf("staging subject: %w", err)
	}
	return subjectDir, workRoot, cleanup, nil
}

func writeRepairArtifacts(cfg *config.Config, subjectDir string, rep fitness.Report) error {
	rec := rep.Repair
	meta := &result.RepairMeta{
		Index:      rec.Index,
		Variant:    rec.Variant,
		Fitness:    rep.Fitness,
		MaxFitness: rep.MaxFitness,
		FoundAt:    time.Now().UTC(),
		SourceFile: filepath.Base(rec.Path),
	}
	patch, err := captureDiff(cfg, subjectDir, rec)
	if err != nil {
		log.Printf("warning: capturing diff for %s: %v", rec.Variant, err)
	} else if len(patch) > 0 {
		patchPath := filepath.Join(rec.Dir, "diff.patch")
		if err := os.WriteFile(patchPath, patch, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", patchPath, err)
		}
		meta.PatchFile = "diff.patch"
	}
	return result.WriteRepairMeta(rec.Dir, meta)
}

// captureDiff renders a committed repair as a patch against the pristine
// subject. A cloned subject yields a repo-relative patch that applies with
// git apply; a directory subject falls back to a two-file diff.
func captureDiff(cfg *config.Config, subjectDir string, rec *repair.Record) ([]byte, error) {
	target := filepath.Join(subjectDir, cfg.Subject.TargetFile)
	if !gitops.IsGitRepo(subjectDir) {
		return gitops.DiffFiles(target, rec.Path)
	}
	repaired, err := os.ReadFile(rec.Path)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(target, repaired, 0o644); err != nil {
		return nil, err
	}
	return gitops.CaptureChanges(subjectDir)
}

func toFitnessVariants(vs []*candidate.Variant) []fitness.Variant {
	out := make([]fitness.Variant, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func fitnessLabel(rep fitness.Report) string {
	if rep.MaxFitness > 0 {
		return fmt.Sprintf("%.2f/%.2f", rep.Fitness, rep.MaxFitness)
	}
	return fmt.Sprintf("%.2f", rep.Fitness)
}

// cleanupContainers is a best-effort prune of sandbox containers left
// behind by interrupted runs.
func cleanupContainers() {
	fmt.Println("Pruning sandbox containers...")
	cmd := exec.Command("docker", "container", "prune", "-f", "--filter", "label=mend=true")
	cmd.Run()
}
