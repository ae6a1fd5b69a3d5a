package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/thoughtseed/internal/snapshot"
)

type statusOutput struct {
	HasNetwork   bool      `json:"has_network"`
	NetworkID    string    `json:"network_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	Nodes        int       `json:"nodes"`
	Edges        int       `json:"edges"`
	HasAnalytics bool      `json:"has_analytics"`
	AnalyticsID  string    `json:"analytics_id,omitempty"`
	AnalyticsFor string    `json:"analytics_network_id,omitempty"`
	Backend      string    `json:"backend"`
	Path         string    `json:"path"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved network and analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			env, err := openEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := context.Background()
			out := statusOutput{Backend: env.cfg.Persistence.Backend, Path: env.cfg.StorePath(env.root)}

			snap, err := env.store.LoadNetwork(ctx)
			switch {
			case err == nil:
				out.HasNetwork = true
				out.NetworkID = snap.ID
				out.CreatedAt = snap.CreatedAt
				out.Nodes = len(snap.Thoughtseeds)
				out.Edges = snap.EdgeCount()
			case !errors.Is(err, snapshot.ErrNotFound):
				return err
			}

			as, err := env.store.LoadAnalytics(ctx)
			switch {
			case err == nil:
				out.HasAnalytics = true
				out.AnalyticsID = as.ID
				out.AnalyticsFor = as.NetworkID
			case !errors.Is(err, snapshot.ErrNotFound):
				return err
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Store: %s (%s)\n", out.Path, out.Backend)
			if !out.HasNetwork {
				fmt.Fprintln(w, "No network saved. Run 'thoughtseed generate'.")
				return nil
			}
			fmt.Fprintf(w, "Network:   %s (%d thoughtseeds, %d edges, %s)\n",
				out.NetworkID, out.Nodes, out.Edges, out.CreatedAt.Format(time.RFC3339))
			switch {
			case !out.HasAnalytics:
				fmt.Fprintln(w, "Analytics: none")
			case out.AnalyticsFor != out.NetworkID:
				fmt.Fprintf(w, "Analytics: %s (stale, computed for %s)\n", out.AnalyticsID, out.AnalyticsFor)
			default:
				fmt.Fprintf(w, "Analytics: %s\n", out.AnalyticsID)
			}
			return nil
		},
	}
}
