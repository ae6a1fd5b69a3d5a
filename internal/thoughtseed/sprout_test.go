package thoughtseed

import (
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/thoughtseed/internal/constants"
)

func TestNewThoughtsprout(t *testing.T) {
	parent := New(testValues(0.3, 1.2, 0.4, 0.5), strings.Repeat("01", 16))
	parent.EnergyLevel = 2.0
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sp := NewThoughtsprout(parent, 0.1, at)

	if sp.EnergyLevel != 2.1 {
		t.Errorf("EnergyLevel = %v, want 2.1", sp.EnergyLevel)
	}
	if sp.MemoryPattern != parent.MemoryPattern {
		t.Error("memory pattern not copied")
	}
	if !sp.TimeActivated.Equal(at) {
		t.Errorf("TimeActivated = %v, want %v", sp.TimeActivated, at)
	}
	if sp.ID == "" {
		t.Error("expected an ID")
	}

	// The sprout owns its feature values.
	sp.FeatureValues.Set(constants.FeatureValence, -5)
	if parent.FeatureValues.Value(constants.FeatureValence) != 1.2 {
		t.Error("mutating the sprout changed the parent")
	}
	if parent.EnergyLevel != 2.0 {
		t.Error("parent energy changed")
	}
}

func TestThoughtsprout_AdjustEnergy(t *testing.T) {
	sp := NewThoughtsprout(New(testValues(0, 0, 0, 0), ""), 0.1, time.Now())
	sp.AdjustEnergy(-0.2)
	if diff := sp.EnergyLevel - 0.4; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("EnergyLevel = %v, want 0.4", sp.EnergyLevel)
	}
}

func TestThoughtsprout_UniqueIDs(t *testing.T) {
	parent := New(testValues(0, 0, 0, 0), "")
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := NewThoughtsprout(parent, 0.1, time.Now()).ID
		if seen[id] {
			t.Fatalf("duplicate ID %s", id)
		}
		seen[id] = true
	}
}
