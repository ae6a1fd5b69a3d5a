package pool

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// tierPools is one tier's pool list and the lock guarding it.
type tierPools struct {
	mu    sync.Mutex
	pools []*ThoughtPool
}

// Assigner owns every thought pool. Assign is safe for concurrent use;
// calls for the same tier are serialized.
type Assigner struct {
	mu       float64
	sigma    float64
	capacity int
	tiers    map[Tier]*tierPools

	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// NewAssigner creates an assigner with one empty pool per tier. The Valence
// feature must carry a mean and standard deviation.
func NewAssigner(features config.FeatureConfig, capacity int, logger *slog.Logger) (*Assigner, error) {
	mu, sigma, err := features.Valence()
	if err != nil {
		return nil, err
	}
	if capacity < 1 {
		capacity = constants.DefaultPoolCapacity
	}
	a := &Assigner{
		mu:       mu,
		sigma:    sigma,
		capacity: capacity,
		tiers:    make(map[Tier]*tierPools, len(Tiers)),
		logger:   logging.OrDiscard(logger),
	}
	for _, t := range Tiers {
		a.tiers[t] = &tierPools{pools: []*ThoughtPool{NewThoughtPool(t, capacity)}}
	}
	return a, nil
}

// SetDecisionLogger attaches a decision trace for tier assignments.
func (a *Assigner) SetDecisionLogger(dl *logging.DecisionLogger) {
	a.decisions = dl
}

// Classify maps a valence to its tier. Saliency is checked first, so an
// outlier beyond two standard deviations never lands in positive or negative.
func (a *Assigner) Classify(valence float64) Tier {
	d := valence - a.mu
	switch {
	case math.Abs(d) > 2*a.sigma:
		if d > 0 {
			return TierPositiveSaliency
		}
		return TierNegativeSaliency
	case math.Abs(d) < a.sigma:
		return TierNeutral
	case d > a.sigma:
		return TierPositive
	default:
		return TierNegative
	}
}

// ValenceParams returns the valence mean and standard deviation tiers are
// classified against.
func (a *Assigner) ValenceParams() (mu, sigma float64) {
	return a.mu, a.sigma
}

// Assign classifies s and inserts it into the first pool of its tier with
// free capacity, appending a new pool when all are full. It returns the tier used.
func (a *Assigner) Assign(s *thoughtseed.Thoughtsprout) (Tier, error) {
	valence, ok := s.FeatureValues.Get(constants.FeatureValence)
	if !ok {
		return "", fmt.Errorf("assigning sprout %s: %w: %s", s.ID, thoughtseed.ErrMissingFeatureValue, constants.FeatureValence)
	}
	tier := a.Classify(valence)

	tp := a.tiers[tier]
	tp.mu.Lock()
	defer tp.mu.Unlock()

	idx := -1
	for i, p := range tp.pools {
		if !p.Full() {
			idx = i
			break
		}
	}
	if idx < 0 {
		tp.pools = append(tp.pools, NewThoughtPool(tier, a.capacity))
		idx = len(tp.pools) - 1
		a.logger.Debug("opened thought pool", "tier", tier, "pools", len(tp.pools))
	}

	// Only a pool with free capacity is chosen above, so nothing is evicted
	// here; BoundedOrderedPool.Add evicts only when forced past capacity.
	var evictedEnergy *float64
	if evicted := tp.pools[idx].AddSprout(s); evicted != nil {
		e := evicted.EnergyLevel
		evictedEnergy = &e
	}
	a.logger.Log(context.Background(), logging.LevelTrace, "sprout assigned", "sprout", s.ID, "tier", tier, "pool", idx)
	a.decisions.TierAssigned(s.ID, string(tier), idx, s.EnergyLevel, evictedEnergy)
	return tier, nil
}

// Pools returns the tier's pools. The slice is a copy; the pools are live and
// must not be read while Assign runs for the same tier.
func (a *Assigner) Pools(tier Tier) []*ThoughtPool {
	tp, ok := a.tiers[tier]
	if !ok {
		return nil
	}
	tp.mu.Lock()
	defer tp.mu.Unlock()
	out := make([]*ThoughtPool, len(tp.pools))
	copy(out, tp.pools)
	return out
}

// Capacity returns the per-pool capacity.
func (a *Assigner) Capacity() int { return a.capacity }
