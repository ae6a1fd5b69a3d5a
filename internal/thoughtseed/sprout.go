package thoughtseed

import (
	"time"

	"github.com/google/uuid"
)

// Thoughtsprout is a thoughtseed that crossed the activation threshold.
// Only EnergyLevel changes after creation, through the pool-tier adjustment.
type Thoughtsprout struct {
	Thoughtseed

	// ID identifies the sprout across logs and snapshots.
	ID string `json:"id"`

	// Sequence is the creation order within a sweep, set by the tracker.
	Sequence int `json:"sequence"`

	TimeActivated time.Time `json:"time_activated"`
}

// NewThoughtsprout copies parent's features and memory pattern and adds
// energyChange to its energy.
func NewThoughtsprout(parent *Thoughtseed, energyChange float64, at time.Time) *Thoughtsprout {
	return &Thoughtsprout{
		Thoughtseed: Thoughtseed{
			FeatureValues: parent.FeatureValues.Clone(),
			MemoryPattern: parent.MemoryPattern,
			EnergyLevel:   parent.EnergyLevel + energyChange,
		},
		ID:            uuid.NewString(),
		TimeActivated: at,
	}
}

// AdjustEnergy applies a one-off energy delta.
func (s *Thoughtsprout) AdjustEnergy(delta float64) {
	s.EnergyLevel += delta
}
