// Package pool routes activated thoughtsprouts into valence-tiered,
// capacity-bounded thought pools.
package pool

import (
	"fmt"

	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// Tier is a valence classification shared by a list of pools.
type Tier string

const (
	TierPositive         Tier = "positive"
	TierNegative         Tier = "negative"
	TierNeutral          Tier = "neutral"
	TierPositiveSaliency Tier = "positive_saliency"
	TierNegativeSaliency Tier = "negative_saliency"
)

// Tiers lists every tier in reporting order.
var Tiers = []Tier{
	TierPositive,
	TierNegative,
	TierNeutral,
	TierPositiveSaliency,
	TierNegativeSaliency,
}

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	for _, t := range Tiers {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// ThoughtPool holds the thoughtsprouts of one tier, ordered by ascending
// energy at insertion time.
type ThoughtPool struct {
	Tier    Tier
	sprouts *BoundedOrderedPool[*thoughtseed.Thoughtsprout]
}

// NewThoughtPool creates an empty pool.
func NewThoughtPool(tier Tier, capacity int) *ThoughtPool {
	return &ThoughtPool{
		Tier: tier,
		sprouts: NewBoundedOrderedPool(capacity, func(s *thoughtseed.Thoughtsprout) float64 {
			return s.EnergyLevel
		}),
	}
}

// AddSprout inserts s. A full pool first gives up its lowest-energy sprout,
// which is returned; otherwise the result is nil.
func (p *ThoughtPool) AddSprout(s *thoughtseed.Thoughtsprout) *thoughtseed.Thoughtsprout {
	evicted, ok := p.sprouts.Add(s)
	if !ok {
		return nil
	}
	return evicted
}

// Len returns the number of sprouts in the pool.
func (p *ThoughtPool) Len() int { return p.sprouts.Len() }

// Cap returns the pool capacity.
func (p *ThoughtPool) Cap() int { return p.sprouts.Cap() }

// Full reports whether the pool is at capacity.
func (p *ThoughtPool) Full() bool { return p.sprouts.Full() }

// Sprouts returns the members in ascending insertion-time energy.
func (p *ThoughtPool) Sprouts() []*thoughtseed.Thoughtsprout { return p.sprouts.Items() }
