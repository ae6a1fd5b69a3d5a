package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/thoughtseed/internal/snapshot"
)

func newPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old networks from the sqlite store",
		Long: `Delete saved networks and their analytics. A network survives if any of
the given rules keeps it; the newest network is always kept.

Examples:
  thoughtseed prune --keep 3
  thoughtseed prune --older-than 2w
  thoughtseed prune --keep 1 --older-than 7d --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			keep, _ := cmd.Flags().GetInt("keep")
			olderThan, _ := cmd.Flags().GetString("older-than")
			maxEdges, _ := cmd.Flags().GetInt("max-edges")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			var policies []snapshot.RetentionPolicy
			if cmd.Flags().Changed("keep") {
				if keep < 1 {
					return fmt.Errorf("--keep must be at least 1, got %d", keep)
				}
				policies = append(policies, &snapshot.CountPolicy{MaxCount: keep})
			}
			if olderThan != "" {
				age, err := snapshot.ParseDuration(olderThan)
				if err != nil {
					return fmt.Errorf("--older-than: %w", err)
				}
				policies = append(policies, &snapshot.AgePolicy{MaxAge: age})
			}
			if maxEdges > 0 {
				policies = append(policies, &snapshot.EdgeBudgetPolicy{MaxEdges: maxEdges})
			}
			if len(policies) == 0 {
				return fmt.Errorf("at least one of --keep, --older-than or --max-edges is required")
			}
			policy := &snapshot.CompositePolicy{Policies: policies}

			env, err := openEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			pruner, ok := env.store.(snapshot.Pruner)
			if !ok {
				return fmt.Errorf("the %s backend keeps only the latest network; nothing to prune", env.cfg.Persistence.Backend)
			}

			ctx := context.Background()
			var deleted []string
			if dryRun {
				networks, err := pruner.ListNetworks(ctx)
				if err != nil {
					return err
				}
				kept := map[string]bool{}
				for _, n := range policy.Apply(networks) {
					kept[n.ID] = true
				}
				for i, n := range networks {
					if i > 0 && !kept[n.ID] {
						deleted = append(deleted, n.ID)
					}
				}
			} else {
				deleted, err = pruner.Prune(ctx, policy)
				if err != nil {
					return err
				}
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"deleted": deleted,
					"dry_run": dryRun,
				})
			}

			verb := "Deleted"
			if dryRun {
				verb = "Would delete"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d network(s)\n", verb, len(deleted))
			for _, id := range deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().Int("keep", 0, "Keep the N most recent networks")
	cmd.Flags().String("older-than", "", "Keep networks newer than this age (e.g. 72h, 7d, 2w)")
	cmd.Flags().Int("max-edges", 0, "Keep recent networks up to this combined edge count")
	cmd.Flags().Bool("dry-run", false, "List what would be deleted without deleting")

	return cmd
}
