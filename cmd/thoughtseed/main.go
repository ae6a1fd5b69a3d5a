package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/snapshot"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "thoughtseed",
		Short: "Thoughtseed network - simulate activation and sprouting of thoughts",
		Long: `thoughtseed generates populations of thoughtseeds, connects them into a
weighted network, and sweeps them into valence-tiered thought pools.

Networks are saved under .thoughtseed/ so that analyze, sprout and graph
can work on the same population across invocations.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ~/.thoughtseed/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newGenerateCmd(),
		newSproutCmd(),
		newAnalyzeCmd(),
		newGraphCmd(),
		newStatusCmd(),
		newPruneCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

// loadSettings loads and validates the configuration selected by --config.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
		if err == nil {
			config.ApplyEnvOverrides(cfg)
		}
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// environment bundles what every pipeline command needs.
type environment struct {
	root      string
	cfg       *config.Config
	store     snapshot.Store
	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

func openEnvironment(cmd *cobra.Command) (*environment, error) {
	root, _ := cmd.Flags().GetString("root")
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	store, err := snapshot.Open(cfg, root)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &environment{
		root:      root,
		cfg:       cfg,
		store:     store,
		logger:    logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		decisions: logging.NewDecisionLogger(filepath.Join(root, config.DirName), cfg.Logging.Level),
	}, nil
}

func (e *environment) Close() error {
	e.decisions.Close()
	return e.store.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
