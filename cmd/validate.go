package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/singlefault/mend/internal/candidate"
	"github.com/singlefault/mend/internal/config"
	"github.com/singlefault/mend/internal/fitness"
	"github.com/singlefault/mend/internal/repair"
	"github.com/singlefault/mend/internal/result"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [run-dir]",
		Short: "Re-evaluate persisted repairs against the full suite",
		Long: "Resolve a run directory (a path, a run stamp under runs/, or latest), " +
			"stage each persisted repair artifact over a fresh subject snapshot, and " +
			"re-run the complete test suite with sampling disabled, reporting each " +
			"repair as confirmed or rejected.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			name := "latest"
			if len(args) > 0 {
				name = args[0]
			}
			runDir, err := result.ResolveRunDir(cfg.Results.Dir, name)
			if err != nil {
				return err
			}
			repairDirs, err := result.RepairDirs(runDir)
			if err != nil {
				return err
			}
			if len(repairDirs) == 0 {
				return fmt.Errorf("no repairs found in %s", runDir)
			}

			subjectDir, workRoot, cleanup, err := stageSubject(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			// Full-suite re-evaluation: sampling off, repairs re-committed to a
			// scratch ledger so the original run directory stays untouched.
			cfg.Fitness.SampleFraction = 1.0
			ledger := repair.NewLedger(filepath.Join(workRoot, "confirm"), cfg.Results.Ext, cfg.Results.Suffix)
			engine, err := fitness.New(fitnessParams(cfg), ledger)
			if err != nil {
				return err
			}
			candidateCfg := candidate.Config{
				SubjectDir: subjectDir,
				TargetFile: cfg.Subject.TargetFile,
				BuildCmd:   cfg.Subject.BuildCmd,
				WorkRoot:   workRoot,
				Oracle:     newOracle(cfg),
			}

			ctx := context.Background()
			fmt.Printf("Validating %d repairs from %s\n", len(repairDirs), runDir)

			rejected := 0
			for _, dir := range repairDirs {
				label := filepath.Base(dir)
				src := filepath.Join(dir, ledger.FileName())
				if _, err := os.Stat(src); err != nil {
					log.Printf("skipping %s: %v", label, err)
					continue
				}
				v, err := candidate.New(src, candidateCfg)
				if err != nil {
					return err
				}
				rep, err := engine.Evaluate(ctx, v, fitness.StrategyWeighted)
				if err != nil {
					return fmt.Errorf("re-evaluating %s: %w", label, err)
				}
				if rep.Repair != nil {
					fmt.Printf("  %s: confirmed (fitness %s)\n", label, fitnessLabel(rep))
				} else {
					rejected++
					fmt.Printf("  %s: REJECTED (fitness %s)\n", label, fitnessLabel(rep))
				}
			}
			if rejected > 0 {
				return fmt.Errorf("%d of %d repairs failed re-evaluation", rejected, len(repairDirs))
			}
			fmt.Printf("All %d repairs confirmed\n", len(repairDirs))
			return nil
		},
	}
}
