package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/thoughtseed/internal/lifecycle"
	"github.com/nvandessel/thoughtseed/internal/network"
	"github.com/nvandessel/thoughtseed/internal/pathutil"
	"github.com/nvandessel/thoughtseed/internal/shutdown"
	"github.com/nvandessel/thoughtseed/internal/snapshot"
	"github.com/nvandessel/thoughtseed/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Visualize the saved network",
		Long: `Output the saved network in DOT (Graphviz), JSON, or interactive HTML format.
Only edges whose composite weight exceeds --threshold are drawn. Nodes are
coloured by community when analytics exist for the saved network.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			output, _ := cmd.Flags().GetString("output")
			noOpen, _ := cmd.Flags().GetBool("no-open")
			serve, _ := cmd.Flags().GetBool("serve")

			f, err := visualization.ParseFormat(format)
			if err != nil {
				return err
			}
			if serve {
				f = visualization.FormatHTML
			}

			env, err := openEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := context.Background()
			n, opts, err := loadGraph(ctx, env, threshold)
			if err != nil {
				return err
			}

			switch f {
			case visualization.FormatDOT:
				fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(n, opts))

			case visualization.FormatJSON:
				if err := printJSON(cmd.OutOrStdout(), visualization.BuildGraph(n, opts)); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}

			case visualization.FormatHTML:
				if serve {
					return runGraphServer(cmd, ctx, n, opts, noOpen)
				}
				return writeStaticHTML(cmd, env.root, n, opts, output, noOpen)
			}
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot, json, or html")
	cmd.Flags().Float64("threshold", visualization.DefaultThreshold, "Only draw edges with composite weight above this value")
	cmd.Flags().StringP("output", "o", "", "Output file path (html format only)")
	cmd.Flags().Bool("no-open", false, "Don't open browser after generating HTML")
	cmd.Flags().Bool("serve", false, "Start a local server with a thoughtseed lookup API")

	return cmd
}

// loadGraph restores the saved network and pairs it with analytics computed
// for that same network, if any.
func loadGraph(ctx context.Context, env *environment, threshold float64) (*network.Network, visualization.Options, error) {
	opts := visualization.Options{Threshold: threshold}

	loader := snapshot.NewLoader(env.store, env.logger)
	snap := loader.Network(ctx)
	if snap == nil {
		return nil, opts, fmt.Errorf("%w: run 'thoughtseed generate' first", lifecycle.ErrNoNetwork)
	}
	n, err := snap.Network(env.logger)
	if err != nil {
		return nil, opts, err
	}
	if as := loader.Analytics(ctx); as != nil && as.NetworkID == snap.ID {
		opts.Analytics = as.Result
	}
	return n, opts, nil
}

// writeStaticHTML renders the graph to a self-contained HTML file.
func writeStaticHTML(cmd *cobra.Command, root string, n *network.Network, opts visualization.Options, output string, noOpen bool) error {
	htmlBytes, err := visualization.RenderHTML(n, opts)
	if err != nil {
		return fmt.Errorf("render HTML: %w", err)
	}

	outPath := output
	if outPath == "" {
		outPath = filepath.Join(os.TempDir(), "thoughtseed-graph.html")
	}
	if err := pathutil.ValidatePath(outPath, pathutil.OutputDirs(root)); err != nil {
		return err
	}

	if err := os.WriteFile(outPath, htmlBytes, 0644); err != nil {
		return fmt.Errorf("write HTML file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Graph written to %s\n", outPath)

	if !noOpen {
		if err := visualization.OpenBrowser(outPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, outPath)
		}
	}
	return nil
}

// runGraphServer starts a local HTTP server and blocks until Ctrl-C.
func runGraphServer(cmd *cobra.Command, ctx context.Context, n *network.Network, opts visualization.Options, noOpen bool) error {
	srv := visualization.NewServer(n, opts)

	srvCtx, stop := shutdown.Context(ctx)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if srv.Addr() != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	addr := srv.Addr()
	if addr == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Graph server running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
