package pool

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/sampler"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

func sproutWith(valence, energy float64) *thoughtseed.Thoughtsprout {
	fv := thoughtseed.NewFeatureValues(1)
	fv.Set(constants.FeatureValence, valence)
	parent := thoughtseed.New(fv, "")
	parent.EnergyLevel = energy
	return thoughtseed.NewThoughtsprout(parent, 0, time.Unix(0, 0))
}

func newTestAssigner(t *testing.T) *Assigner {
	t.Helper()
	a, err := NewAssigner(config.DefaultFeatures(), 7, nil)
	if err != nil {
		t.Fatalf("NewAssigner() error: %v", err)
	}
	return a
}

func TestNewAssigner_RequiresLocatedValence(t *testing.T) {
	fc := config.DefaultFeatures()
	fc.AddDistribution(constants.FeatureValence, sampler.Beta{Alpha: 1, Beta: 1}, nil)
	if _, err := NewAssigner(fc, 7, nil); !errors.Is(err, config.ErrMissingValence) {
		t.Fatalf("expected ErrMissingValence, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	a := newTestAssigner(t)

	tests := []struct {
		valence float64
		want    Tier
	}{
		{0, TierNeutral},
		{0.99, TierNeutral},
		{-0.99, TierNeutral},
		{1.5, TierPositive},
		{-1.5, TierNegative},
		{2.0, TierPositive},
		{2.01, TierPositiveSaliency},
		{3.5, TierPositiveSaliency},
		{-2.01, TierNegativeSaliency},
		// Exactly one sigma away is neither neutral nor strictly above: negative.
		{1.0, TierNegative},
		{-1.0, TierNegative},
	}

	for _, tt := range tests {
		if got := a.Classify(tt.valence); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.valence, got, tt.want)
		}
	}
}

func TestClassify_SaliencyNeverPositive(t *testing.T) {
	a := newTestAssigner(t)
	for v := 2.001; v < 10; v += 0.25 {
		if got := a.Classify(v); got != TierPositiveSaliency {
			t.Fatalf("Classify(%v) = %s, want positive_saliency", v, got)
		}
	}
}

func TestAssign_OverflowOpensNewPool(t *testing.T) {
	a := newTestAssigner(t)
	for i := 0; i < 15; i++ {
		tier, err := a.Assign(sproutWith(0.1, float64(i)))
		if err != nil {
			t.Fatalf("Assign() error: %v", err)
		}
		if tier != TierNeutral {
			t.Fatalf("tier = %s, want neutral", tier)
		}
	}

	pools := a.Pools(TierNeutral)
	if len(pools) != 3 {
		t.Fatalf("len(pools) = %d, want 3", len(pools))
	}
	sizes := []int{pools[0].Len(), pools[1].Len(), pools[2].Len()}
	if sizes[0] != 7 || sizes[1] != 7 || sizes[2] != 1 {
		t.Errorf("pool sizes = %v, want [7 7 1]", sizes)
	}
	for _, tier := range []Tier{TierPositive, TierNegative, TierPositiveSaliency, TierNegativeSaliency} {
		if p := a.Pools(tier); len(p) != 1 || p[0].Len() != 0 {
			t.Errorf("tier %s should have one empty pool", tier)
		}
	}
}

func TestAssign_NeverEvicts(t *testing.T) {
	dir := t.TempDir()
	dl := logging.NewDecisionLogger(dir, "debug")
	defer dl.Close()
	a := newTestAssigner(t)
	a.SetDecisionLogger(dl)

	// Falling energies would displace members if a full pool were ever chosen.
	for i := 15; i > 0; i-- {
		if _, err := a.Assign(sproutWith(0.1, float64(i))); err != nil {
			t.Fatalf("Assign() error: %v", err)
		}
	}

	total := 0
	for _, p := range a.Pools(TierNeutral) {
		total += p.Len()
	}
	if total != 15 {
		t.Errorf("neutral tier holds %d sprouts, want all 15", total)
	}

	data, err := os.ReadFile(filepath.Join(dir, logging.DecisionsFile))
	if err != nil {
		t.Fatalf("read decisions: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		if _, ok := entry["evicted_energy"]; ok {
			t.Errorf("Assign evicted a member: %v", entry)
		}
	}
}

func TestAssigner_ValenceParams(t *testing.T) {
	fc := config.DefaultFeatures()
	fc.AddDistribution(constants.FeatureValence, sampler.Normal{Mu: 0.25, Sigma: 0.5}, nil)
	a, err := NewAssigner(fc, 7, nil)
	if err != nil {
		t.Fatalf("NewAssigner() error: %v", err)
	}
	if mu, sigma := a.ValenceParams(); mu != 0.25 || sigma != 0.5 {
		t.Errorf("ValenceParams() = (%v, %v), want (0.25, 0.5)", mu, sigma)
	}
}

func TestAssign_MissingValence(t *testing.T) {
	a := newTestAssigner(t)
	s := thoughtseed.NewThoughtsprout(thoughtseed.New(thoughtseed.NewFeatureValues(0), ""), 0.1, time.Now())
	if _, err := a.Assign(s); !errors.Is(err, thoughtseed.ErrMissingFeatureValue) {
		t.Errorf("expected ErrMissingFeatureValue, got %v", err)
	}
}

func TestAssign_Concurrent(t *testing.T) {
	a := newTestAssigner(t)
	valences := []float64{0, 1.5, -1.5, 2.5, -2.5}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := a.Assign(sproutWith(valences[i%len(valences)], float64(i))); err != nil {
					t.Errorf("Assign() error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, tier := range Tiers {
		for _, p := range a.Pools(tier) {
			if p.Len() > p.Cap() {
				t.Errorf("tier %s pool exceeds capacity: %d", tier, p.Len())
			}
			total += p.Len()
		}
	}
	if total != 400 {
		t.Errorf("total sprouts = %d, want 400", total)
	}
}

func TestThoughtPool_EvictsLowestEnergy(t *testing.T) {
	p := NewThoughtPool(TierPositive, 7)
	energies := []float64{1.3, 0.9, 1.1, 1.7, 0.95, 1.2, 1.05}
	for _, e := range energies {
		if ev := p.AddSprout(sproutWith(1.5, e)); ev != nil {
			t.Fatalf("unexpected eviction at energy %v", e)
		}
	}

	evicted := p.AddSprout(sproutWith(1.5, 1.0))
	if evicted == nil || evicted.EnergyLevel != 0.9 {
		t.Fatalf("evicted %v, want the 0.9 sprout", evicted)
	}
	if p.Len() != 7 {
		t.Errorf("Len() = %d, want 7", p.Len())
	}
	prev := -1.0
	for _, s := range p.Sprouts() {
		if s.EnergyLevel < prev {
			t.Fatal("sprouts not in ascending energy order")
		}
		prev = s.EnergyLevel
	}
}

func TestParseTier(t *testing.T) {
	if tier, err := ParseTier("negative_saliency"); err != nil || tier != TierNegativeSaliency {
		t.Errorf("ParseTier() = %s, %v", tier, err)
	}
	if _, err := ParseTier("ecstatic"); err == nil {
		t.Error("expected error for unknown tier")
	}
}
