package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/pool"
	"github.com/nvandessel/thoughtseed/internal/report"
	"github.com/nvandessel/thoughtseed/internal/snapshot"
	"github.com/nvandessel/thoughtseed/internal/sprout"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// SproutResult is the outcome of one sprout sweep.
type SproutResult struct {
	Summary sprout.Summary       `json:"summary"`
	Pools   []report.TierStatus  `json:"pools"`
	Tracker report.TrackerStatus `json:"tracker"`
}

// Manager runs the sprouting pipeline over a persisted population. Pools and
// the tracker live as long as the Manager, so repeated sweeps accumulate.
type Manager struct {
	loader       *snapshot.Loader
	assigner     *pool.Assigner
	tracker      *sprout.Tracker
	orchestrator *sprout.Orchestrator
	logger       *slog.Logger
}

// NewManager creates a manager reading thoughtseeds from store.
func NewManager(cfg *config.Config, store snapshot.Store, logger *slog.Logger, dl *logging.DecisionLogger) (*Manager, error) {
	logger = logging.OrDiscard(logger)
	assigner, err := pool.NewAssigner(cfg.Features, cfg.Pools.Capacity, logger)
	if err != nil {
		return nil, err
	}
	assigner.SetDecisionLogger(dl)
	tracker := sprout.NewTracker()
	return &Manager{
		loader:       snapshot.NewLoader(store, logger),
		assigner:     assigner,
		tracker:      tracker,
		orchestrator: sprout.NewOrchestrator(assigner, tracker, cfg.Pools, logger),
		logger:       logger,
	}, nil
}

// SetClock replaces the sprout activation timestamp source.
func (m *Manager) SetClock(now func() time.Time) {
	m.orchestrator.SetClock(now)
}

// RunSprouts loads the persisted population and sweeps it.
func (m *Manager) RunSprouts(ctx context.Context) (*SproutResult, error) {
	snap := m.loader.Network(ctx)
	if snap == nil {
		return nil, ErrNoNetwork
	}
	m.checkValence(snap)
	return m.Sweep(ctx, snap.Thoughtseeds)
}

// checkValence warns when snap was built against a different valence mean or
// standard deviation than the pools classify with.
func (m *Manager) checkValence(snap *snapshot.NetworkSnapshot) {
	mu, sigma := m.assigner.ValenceParams()
	if mu == snap.ValenceMu && sigma == snap.ValenceSigma {
		return
	}
	m.logger.Warn("configured valence differs from the saved network; pools and edges are tiered against different parameters",
		"network", snap.ID,
		"network_mu", snap.ValenceMu, "network_sigma", snap.ValenceSigma,
		"pool_mu", mu, "pool_sigma", sigma)
}

// Sweep orchestrates seeds and reports pool and tracker status.
func (m *Manager) Sweep(ctx context.Context, seeds []*thoughtseed.Thoughtseed) (*SproutResult, error) {
	summary, err := m.orchestrator.Orchestrate(ctx, seeds)
	if err != nil {
		return nil, err
	}
	return &SproutResult{
		Summary: summary,
		Pools:   report.PoolStatus(m.assigner),
		Tracker: report.TrackerStatusOf(m.tracker),
	}, nil
}

// Assigner returns the manager's pool assigner.
func (m *Manager) Assigner() *pool.Assigner { return m.assigner }

// Tracker returns the manager's sprout tracker.
func (m *Manager) Tracker() *sprout.Tracker { return m.tracker }
