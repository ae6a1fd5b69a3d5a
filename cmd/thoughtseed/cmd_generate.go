package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/thoughtseed/internal/lifecycle"
	"github.com/nvandessel/thoughtseed/internal/report"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a thoughtseed population and save its network",
		Long: `Sample a new thoughtseed population, connect every pair with a tiered
valence weight and a complexity weight, normalize, and save the network
as the current snapshot.

Examples:
  thoughtseed generate                    # Use configured size and seed
  thoughtseed generate --count 200 --seed 42
  thoughtseed generate --sample 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			count, _ := cmd.Flags().GetInt("count")
			seed, _ := cmd.Flags().GetUint64("seed")
			sample, _ := cmd.Flags().GetInt("sample")

			env, err := openEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if cmd.Flags().Changed("count") {
				if err := env.cfg.Network.CheckCount(count); err != nil {
					return fmt.Errorf("--count: %w", err)
				}
				env.cfg.Network.NumThoughtseeds = count
			}
			if cmd.Flags().Changed("seed") {
				env.cfg.Network.RandomSeed = seed
			}

			res, err := lifecycle.Generate(context.Background(), env.cfg, env.store, sample, env.logger, env.decisions)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Generated network %s\n", res.NetworkID)
			fmt.Fprintf(w, "  Thoughtseeds: %d\n", res.Nodes)
			fmt.Fprintf(w, "  Edges:        %d\n", res.Edges)
			fmt.Fprintln(w)
			report.WriteSample(w, res.Sample)
			fmt.Fprintln(w)
			report.WriteHistogram(w, "Energy levels", res.Histogram)
			return nil
		},
	}

	cmd.Flags().Int("count", 0, "Number of thoughtseeds (default: configured num_thoughtseeds)")
	cmd.Flags().Uint64("seed", 0, "Random seed; 0 seeds from the clock (default: configured random_seed)")
	cmd.Flags().Int("sample", report.DefaultSampleSize, "Number of thoughtseeds to display")

	return cmd
}
