package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/singlefault/mend/internal/config"
	"github.com/singlefault/mend/internal/suite"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the effective test suite and engine parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			orc := newOracle(cfg)

			fmt.Println("Suite:")
			if cfg.Fitness.SingleFitness {
				id := suite.Probe()
				fmt.Printf("  - %s: %s\n", id, orc.Command(id))
			} else {
				for _, id := range suite.PositiveRange(cfg.Suite.PosCount) {
					fmt.Printf("  - %s: %s\n", id, orc.Command(id))
				}
				for _, id := range suite.NegativeRange(cfg.Suite.NegCount) {
					fmt.Printf("  - %s: %s\n", id, orc.Command(id))
				}
			}

			fmt.Println("\nEngine:")
			fmt.Printf("  strategy:        %s\n", cfg.Fitness.Strategy)
			if cfg.Fitness.SingleFitness {
				fmt.Println("  mode:            single-fitness probe")
			} else {
				params := fitnessParams(cfg)
				fmt.Printf("  negative weight: %g (%.2f per negative test)\n", cfg.Fitness.NegativeWeight, params.WeightFactor())
				fmt.Printf("  sample fraction: %g\n", cfg.Fitness.SampleFraction)
				fmt.Printf("  max fitness:     %g\n", params.MaxFitness())
			}
			fmt.Printf("  parallel:        %d\n", cfg.Search.Parallel)
			fmt.Printf("  test timeout:    %ds\n", cfg.Suite.TimeoutSeconds)
			if cfg.Sandbox.Enabled {
				fmt.Printf("  sandbox image:   %s\n", cfg.Sandbox.Image)
			}
			return nil
		},
	}
}
