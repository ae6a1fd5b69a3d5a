package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/thoughtseed/internal/lifecycle"
	"github.com/nvandessel/thoughtseed/internal/report"
)

func newSproutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sprout",
		Short: "Sweep the saved population into thought pools",
		Long: `Load the saved population and sweep it: every activated thoughtseed
becomes a thoughtsprout, is assigned a valence tier and is placed in the
first pool of that tier with room. A new pool is opened when every
pool of the tier is full.

Pools live for the duration of the command; --sweeps runs several sweeps
over the same pools.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			sweeps, _ := cmd.Flags().GetInt("sweeps")
			if sweeps < 1 {
				return fmt.Errorf("--sweeps must be at least 1, got %d", sweeps)
			}

			env, err := openEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			m, err := lifecycle.NewManager(env.cfg, env.store, env.logger, env.decisions)
			if err != nil {
				return err
			}

			ctx := context.Background()
			results := make([]*lifecycle.SproutResult, 0, sweeps)
			for i := 0; i < sweeps; i++ {
				res, err := m.RunSprouts(ctx)
				if errors.Is(err, lifecycle.ErrNoNetwork) {
					return fmt.Errorf("%w: run 'thoughtseed generate' first", err)
				}
				if err != nil {
					return err
				}
				results = append(results, res)
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), results)
			}

			w := cmd.OutOrStdout()
			for i, res := range results {
				fmt.Fprintf(w, "Sweep %d: %d considered, %d sprouted, %d skipped\n",
					i+1, res.Summary.Considered, res.Summary.Sprouted, res.Summary.Skipped)
			}
			last := results[len(results)-1]
			fmt.Fprintln(w)
			report.WritePoolStatus(w, last.Pools)
			fmt.Fprintln(w)
			report.WriteTrackerStatus(w, last.Tracker)
			return nil
		},
	}

	cmd.Flags().Int("sweeps", 1, "Number of sweeps to run over the same pools")

	return cmd
}
