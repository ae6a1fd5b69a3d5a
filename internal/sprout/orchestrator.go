// Package sprout turns activated thoughtseeds into thoughtsprouts, routes
// them into thought pools and records their provenance.
package sprout

import (
	"context"
	"log/slog"
	"time"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/pool"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// tierAdjustments is the energy delta applied after a sprout lands in a tier.
var tierAdjustments = map[pool.Tier]float64{
	pool.TierPositive:         0.1,
	pool.TierNegative:         -0.1,
	pool.TierNeutral:          0,
	pool.TierPositiveSaliency: 0.2,
	pool.TierNegativeSaliency: -0.2,
}

// TierAdjustment returns the energy delta for tier.
func TierAdjustment(tier pool.Tier) float64 {
	return tierAdjustments[tier]
}

// Summary describes one orchestration sweep.
type Summary struct {
	Considered int               `json:"considered"`
	Sprouted   int               `json:"sprouted"`
	Skipped    int               `json:"skipped"`
	ByTier     map[pool.Tier]int `json:"by_tier"`
}

// Orchestrator sweeps a population once. A thoughtseed that is activated
// becomes a sprout, is assigned a tier, receives the tier's energy adjustment
// and is tracked. Everything else is left untouched.
type Orchestrator struct {
	assigner     *pool.Assigner
	tracker      *Tracker
	threshold    float64
	energyChange float64
	now          func() time.Time
	logger       *slog.Logger
}

// NewOrchestrator creates an orchestrator using the activation threshold and
// sprout energy change from cfg.
func NewOrchestrator(assigner *pool.Assigner, tracker *Tracker, cfg config.PoolConfig, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		assigner:     assigner,
		tracker:      tracker,
		threshold:    cfg.ActivationThreshold,
		energyChange: cfg.SproutEnergyChange,
		now:          time.Now,
		logger:       logging.OrDiscard(logger),
	}
}

// SetClock replaces the timestamp source.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Orchestrate sweeps seeds in order. The activation check caches each seed's
// ActivationStatus. A sprout that cannot be assigned is logged and skipped.
func (o *Orchestrator) Orchestrate(ctx context.Context, seeds []*thoughtseed.Thoughtseed) (Summary, error) {
	summary := Summary{ByTier: make(map[pool.Tier]int, len(pool.Tiers))}
	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Considered++
		if !seed.IsActivatedAt(o.threshold) {
			continue
		}

		sp := thoughtseed.NewThoughtsprout(seed, o.energyChange, o.now())
		tier, err := o.assigner.Assign(sp)
		if err != nil {
			summary.Skipped++
			o.logger.Warn("skipping thoughtsprout", "sprout", sp.ID, "error", err)
			continue
		}
		sp.AdjustEnergy(TierAdjustment(tier))
		o.tracker.Track(sp)

		summary.Sprouted++
		summary.ByTier[tier]++
	}

	o.logger.Info("orchestration complete",
		"considered", summary.Considered,
		"sprouted", summary.Sprouted,
		"skipped", summary.Skipped)
	return summary, nil
}
