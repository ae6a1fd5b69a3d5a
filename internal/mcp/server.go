package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/lifecycle"
	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/ratelimit"
	"github.com/nvandessel/thoughtseed/internal/shutdown"
	"github.com/nvandessel/thoughtseed/internal/snapshot"
)

// Server wraps the MCP SDK server and provides thoughtseed tools.
type Server struct {
	server       *sdk.Server
	settings     *config.Config
	store        snapshot.Store
	root         string
	logger       *slog.Logger
	decisions    *logging.DecisionLogger
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger

	// manager holds pools and tracker across thoughtseed_sprout calls. It is
	// discarded whenever a new network is generated.
	mu      sync.Mutex
	manager *lifecycle.Manager
}

// Config holds server configuration.
type Config struct {
	Name     string         // Server name (e.g., "thoughtseed")
	Version  string         // Server version
	Root     string         // Project root directory
	Settings *config.Config // nil loads the default configuration
	Logger   *slog.Logger
}

// NewServer creates a new MCP server with thoughtseed tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		settings = loaded
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := snapshot.Open(settings, cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	logger := logging.OrDiscard(cfg.Logger)
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		settings:     settings,
		store:        store,
		root:         cfg.Root,
		logger:       logger,
		decisions:    logging.NewDecisionLogger(filepath.Join(cfg.Root, config.DirName), settings.Logging.Level),
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(cfg.Root),
	}

	if err := s.registerTools(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := shutdown.Context(ctx)
	defer stop()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.Close()
	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	s.decisions.Close()
	s.auditLogger.Close()
	return s.store.Close()
}
