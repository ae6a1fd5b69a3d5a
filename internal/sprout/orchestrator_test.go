package sprout

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/pool"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

func seedWith(valence, energy float64) *thoughtseed.Thoughtseed {
	fv := thoughtseed.NewFeatureValues(1)
	fv.Set(constants.FeatureValence, valence)
	s := thoughtseed.New(fv, "")
	s.EnergyLevel = energy
	return s
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *pool.Assigner, *Tracker) {
	t.Helper()
	cfg := config.Default()
	a, err := pool.NewAssigner(cfg.Features, cfg.Pools.Capacity, nil)
	if err != nil {
		t.Fatalf("NewAssigner() error: %v", err)
	}
	tr := NewTracker()
	o := NewOrchestrator(a, tr, cfg.Pools, nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	o.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	return o, a, tr
}

func TestTierAdjustment(t *testing.T) {
	tests := []struct {
		tier pool.Tier
		want float64
	}{
		{pool.TierPositive, 0.1},
		{pool.TierNegative, -0.1},
		{pool.TierNeutral, 0},
		{pool.TierPositiveSaliency, 0.2},
		{pool.TierNegativeSaliency, -0.2},
	}
	for _, tt := range tests {
		if got := TierAdjustment(tt.tier); got != tt.want {
			t.Errorf("TierAdjustment(%s) = %v, want %v", tt.tier, got, tt.want)
		}
	}
}

func TestOrchestrate_SaliencyOutlier(t *testing.T) {
	o, a, tr := newTestOrchestrator(t)

	seed := seedWith(3.5, 2.0)
	summary, err := o.Orchestrate(context.Background(), []*thoughtseed.Thoughtseed{seed})
	if err != nil {
		t.Fatalf("Orchestrate() error: %v", err)
	}
	if summary.Sprouted != 1 || summary.ByTier[pool.TierPositiveSaliency] != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	entries := tr.Entries()
	if len(entries) != 1 {
		t.Fatalf("tracked %d, want 1", len(entries))
	}
	// 2.0 parent + 0.1 sprout bump + 0.2 saliency adjustment.
	if got := entries[0].Sprout.EnergyLevel; math.Abs(got-2.3) > 1e-12 {
		t.Errorf("sprout energy = %v, want 2.3", got)
	}
	if pools := a.Pools(pool.TierPositiveSaliency); pools[0].Len() != 1 {
		t.Error("sprout not in positive_saliency pool")
	}
	if pools := a.Pools(pool.TierPositive); pools[0].Len() != 0 {
		t.Error("saliency outlier leaked into positive pool")
	}
	if seed.EnergyLevel != 2.0 {
		t.Errorf("parent energy changed to %v", seed.EnergyLevel)
	}
}

func TestOrchestrate_OnlyActivatedSprout(t *testing.T) {
	o, _, tr := newTestOrchestrator(t)

	seeds := []*thoughtseed.Thoughtseed{
		seedWith(0, 0.5),  // sigmoid 0.62
		seedWith(0, 1.5),  // sigmoid 0.82
		seedWith(1.5, -1), // sigmoid 0.27
		seedWith(-1.5, 3), // sigmoid 0.95
	}
	summary, err := o.Orchestrate(context.Background(), seeds)
	if err != nil {
		t.Fatalf("Orchestrate() error: %v", err)
	}
	if summary.Considered != 4 || summary.Sprouted != 2 {
		t.Errorf("summary = %+v, want 4 considered and 2 sprouted", summary)
	}

	wantActive := []bool{false, true, false, true}
	for i, s := range seeds {
		if s.ActivationStatus != wantActive[i] {
			t.Errorf("seed %d ActivationStatus = %v, want %v", i, s.ActivationStatus, wantActive[i])
		}
	}

	entries := tr.Entries()
	if len(entries) != 2 {
		t.Fatalf("tracked %d, want 2", len(entries))
	}
	if v := entries[0].Sprout.FeatureValues.Value(constants.FeatureValence); v != 0 {
		t.Errorf("first tracked valence = %v, want 0 (population order)", v)
	}
	if entries[1].Sprout.FeatureValues.Value(constants.FeatureValence) != -1.5 {
		t.Error("second tracked sprout out of order")
	}
	if math.Abs(entries[1].Sprout.EnergyLevel-3.0) > 1e-12 {
		t.Errorf("negative tier energy = %v, want 3.0", entries[1].Sprout.EnergyLevel)
	}
}

func TestOrchestrate_TrackerOrderAndTimestamps(t *testing.T) {
	o, _, tr := newTestOrchestrator(t)

	seeds := []*thoughtseed.Thoughtseed{seedWith(0, 5), seedWith(0, 2), seedWith(0, 9)}
	if _, err := o.Orchestrate(context.Background(), seeds); err != nil {
		t.Fatal(err)
	}

	entries := tr.Entries()
	for i, e := range entries {
		if e.Sprout.Sequence != i {
			t.Errorf("entry %d Sequence = %d", i, e.Sprout.Sequence)
		}
		if !e.Timestamp.Equal(e.Sprout.TimeActivated) {
			t.Errorf("entry %d timestamp mismatch", i)
		}
		if i > 0 && !e.Timestamp.After(entries[i-1].Timestamp) {
			t.Errorf("entry %d timestamp not after previous", i)
		}
	}
	// Tracking follows population order, not energy.
	if math.Abs(entries[0].Sprout.EnergyLevel-5.1) > 1e-12 || math.Abs(entries[2].Sprout.EnergyLevel-9.1) > 1e-12 {
		t.Errorf("tracker not in population order: %v, %v", entries[0].Sprout.EnergyLevel, entries[2].Sprout.EnergyLevel)
	}
}

func TestOrchestrate_SkipsUnassignable(t *testing.T) {
	o, _, tr := newTestOrchestrator(t)
	bad := thoughtseed.New(thoughtseed.NewFeatureValues(0), "")
	bad.EnergyLevel = 4

	summary, err := o.Orchestrate(context.Background(), []*thoughtseed.Thoughtseed{bad, seedWith(0, 4)})
	if err != nil {
		t.Fatalf("Orchestrate() error: %v", err)
	}
	if summary.Skipped != 1 || summary.Sprouted != 1 || tr.Len() != 1 {
		t.Errorf("summary = %+v, tracked %d", summary, tr.Len())
	}
}

func TestOrchestrate_Cancelled(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Orchestrate(ctx, []*thoughtseed.Thoughtseed{seedWith(0, 4)}); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestTracker_Timestamps(t *testing.T) {
	tr := NewTracker()
	at := time.Unix(100, 0)
	tr.Track(thoughtseed.NewThoughtsprout(seedWith(0, 1), 0.1, at))
	ts := tr.Timestamps()
	if len(ts) != 1 || !ts[0].Equal(at) {
		t.Errorf("Timestamps() = %v", ts)
	}
}
