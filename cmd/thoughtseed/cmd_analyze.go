package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/thoughtseed/internal/lifecycle"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute centrality, PageRank and communities of the saved network",
		Long: `Load the saved network, compute degree centrality and PageRank, detect
communities, describe every community with at least
analytics.large_community_size members, and save the results.

Examples:
  thoughtseed analyze
  thoughtseed analyze --algorithm modularity --resolution 1.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			algorithm, _ := cmd.Flags().GetString("algorithm")
			resolution, _ := cmd.Flags().GetFloat64("resolution")

			env, err := openEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if algorithm != "" {
				env.cfg.Analytics.Algorithm = algorithm
			}
			if cmd.Flags().Changed("resolution") {
				if resolution < 0 {
					return fmt.Errorf("--resolution must be non-negative, got %v", resolution)
				}
				env.cfg.Analytics.Resolution = resolution
			}

			res, err := lifecycle.Analyze(context.Background(), env.cfg, env.store,
				lifecycle.NewRNG(env.cfg.Network.RandomSeed), env.logger)
			if errors.Is(err, lifecycle.ErrNoNetwork) {
				return fmt.Errorf("%w: run 'thoughtseed generate' first", err)
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Analytics %s for network %s\n", res.AnalyticsID, res.NetworkID)
			fmt.Fprintf(w, "  Algorithm:   %s (resolution %.3f)\n", res.Result.Algorithm, res.Result.Resolution)
			fmt.Fprintf(w, "  Modularity:  %.4f\n", res.Result.Modularity)
			fmt.Fprintf(w, "  Communities: %d (%d with at least %d members)\n",
				len(res.Communities), res.LargeCommunities, env.cfg.Analytics.LargeCommunitySize)
			fmt.Fprintln(w)

			fmt.Fprintf(w, "%-10s %6s %8s %9s %12s\n", "COMMUNITY", "SIZE", "DENSITY", "DIAMETER", "AVG PATH")
			for _, c := range res.Communities {
				if c.Description == nil {
					continue
				}
				d := c.Description
				fmt.Fprintf(w, "%-10d %6d %8.3f %9d %12.3f\n", c.ID, d.Size, d.Density, d.Diameter, d.AveragePathLength)
			}
			return nil
		},
	}

	cmd.Flags().String("algorithm", "", "Community detection algorithm: louvain or modularity (default: configured)")
	cmd.Flags().Float64("resolution", 0, "Modularity resolution; 0 selects the algorithm default")

	return cmd
}
