// Package snapshot persists built networks and analytics results.
//
// Two backends are provided: FileStore writes gzip-compressed JSON files
// behind a checksummed header line, and SQLiteStore keeps every snapshot in
// a SQLite database. Both return the most recent snapshot on load.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/thoughtseed/internal/analytics"
	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/network"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

var (
	// ErrNotFound is returned when no snapshot has been saved.
	ErrNotFound = errors.New("snapshot not found")

	// ErrVersionMismatch is returned when a snapshot was written in an
	// unsupported format version.
	ErrVersionMismatch = errors.New("snapshot format version mismatch")

	// ErrChecksumMismatch is returned when a snapshot file fails verification.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)

// NetworkSnapshot is the persisted form of a built network.
type NetworkSnapshot struct {
	ID                string                     `json:"id"`
	CreatedAt         time.Time                  `json:"created_at"`
	ValenceMu         float64                    `json:"valence_mu"`
	ValenceSigma      float64                    `json:"valence_sigma"`
	GlobalEnergyValue float64                    `json:"global_energy_value"`
	Thoughtseeds      []*thoughtseed.Thoughtseed `json:"thoughtseeds"`

	// Edge attributes in (u, v) lexical order, u < v.
	ValenceWeights    []float64 `json:"valence_weights"`
	ComplexityWeights []float64 `json:"complexity_weights"`
	Weights           []float64 `json:"weights"`
}

// FromNetwork captures n. The slices are shared with n, not copied.
func FromNetwork(n *network.Network, globalEnergyValue float64) *NetworkSnapshot {
	mu, sigma := n.ValenceParams()
	vw, cw, w := n.PackedWeights()
	return &NetworkSnapshot{
		ID:                uuid.NewString(),
		CreatedAt:         time.Now().UTC(),
		ValenceMu:         mu,
		ValenceSigma:      sigma,
		GlobalEnergyValue: globalEnergyValue,
		Thoughtseeds:      n.Thoughtseeds(),
		ValenceWeights:    vw,
		ComplexityWeights: cw,
		Weights:           w,
	}
}

// Network rebuilds the network the snapshot was taken from.
func (s *NetworkSnapshot) Network(logger *slog.Logger) (*network.Network, error) {
	return network.Restore(s.ValenceMu, s.ValenceSigma, s.Thoughtseeds,
		s.ValenceWeights, s.ComplexityWeights, s.Weights, logger)
}

// EdgeCount returns the number of persisted edges.
func (s *NetworkSnapshot) EdgeCount() int { return len(s.Weights) }

func (s *NetworkSnapshot) validate() error {
	m := network.EdgeCountFor(len(s.Thoughtseeds))
	if len(s.ValenceWeights) != m || len(s.ComplexityWeights) != m || len(s.Weights) != m {
		return fmt.Errorf("snapshot %s: %d seeds need %d edges, got %d/%d/%d", s.ID,
			len(s.Thoughtseeds), m, len(s.ValenceWeights), len(s.ComplexityWeights), len(s.Weights))
	}
	return nil
}

// AnalyticsSnapshot is the persisted form of an analytics run.
type AnalyticsSnapshot struct {
	ID        string            `json:"id"`
	NetworkID string            `json:"network_id"`
	CreatedAt time.Time         `json:"created_at"`
	Result    *analytics.Result `json:"result"`
}

// NewAnalyticsSnapshot wraps res for the network snapshot networkID.
func NewAnalyticsSnapshot(networkID string, res *analytics.Result) *AnalyticsSnapshot {
	return &AnalyticsSnapshot{
		ID:        uuid.NewString(),
		NetworkID: networkID,
		CreatedAt: time.Now().UTC(),
		Result:    res,
	}
}

// Store saves and loads snapshots.
type Store interface {
	SaveNetwork(ctx context.Context, s *NetworkSnapshot) error
	// LoadNetwork returns the latest network snapshot, or ErrNotFound.
	LoadNetwork(ctx context.Context) (*NetworkSnapshot, error)
	SaveAnalytics(ctx context.Context, s *AnalyticsSnapshot) error
	// LoadAnalytics returns the latest analytics snapshot, or ErrNotFound.
	LoadAnalytics(ctx context.Context) (*AnalyticsSnapshot, error)
	Close() error
}

// Open returns the store selected by cfg.Persistence, with relative paths
// resolved against root.
func Open(cfg *config.Config, root string) (Store, error) {
	path := cfg.StorePath(root)
	switch cfg.Persistence.Backend {
	case config.BackendFile:
		return NewFileStore(path), nil
	case config.BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown persistence backend: %s", cfg.Persistence.Backend)
	}
}

// Loader reads snapshots for callers that treat "nothing loaded" as a normal
// outcome. Failures are logged and reported as nil.
type Loader struct {
	store  Store
	logger *slog.Logger
}

// NewLoader wraps store.
func NewLoader(store Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: store, logger: logger}
}

// Network returns the latest network snapshot, or nil.
func (l *Loader) Network(ctx context.Context) *NetworkSnapshot {
	s, err := l.store.LoadNetwork(ctx)
	if err != nil {
		l.logger.Error("failed to load network snapshot", "error", err)
		return nil
	}
	return s
}

// Thoughtseeds returns the population of the latest network snapshot, or nil.
func (l *Loader) Thoughtseeds(ctx context.Context) []*thoughtseed.Thoughtseed {
	s := l.Network(ctx)
	if s == nil {
		return nil
	}
	return s.Thoughtseeds
}

// Analytics returns the latest analytics snapshot, or nil.
func (l *Loader) Analytics(ctx context.Context) *AnalyticsSnapshot {
	s, err := l.store.LoadAnalytics(ctx)
	if err != nil {
		l.logger.Error("failed to load analytics snapshot", "error", err)
		return nil
	}
	return s
}
