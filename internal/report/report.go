// Package report summarizes pools, the sprout tracker and thoughtseed
// populations for display.
package report

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nvandessel/thoughtseed/internal/pool"
	"github.com/nvandessel/thoughtseed/internal/sprout"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// DefaultHistogramBins is the number of energy histogram bins.
const DefaultHistogramBins = 10

// DefaultSampleSize is the number of seeds shown after generation.
const DefaultSampleSize = 20

// Spread is min/max/mean/sample standard deviation of a set of values.
// All fields are zero for an empty set; StdDev is zero below two values.
type Spread struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// NewSpread summarizes xs.
func NewSpread(xs []float64) Spread {
	if len(xs) == 0 {
		return Spread{}
	}
	s := Spread{
		Count: len(xs),
		Min:   floats.Min(xs),
		Max:   floats.Max(xs),
		Mean:  stat.Mean(xs, nil),
	}
	if len(xs) > 1 {
		s.StdDev = stat.StdDev(xs, nil)
	}
	return s
}

// TierStatus describes the pools of one tier.
type TierStatus struct {
	Tier        pool.Tier `json:"tier"`
	Pools       int       `json:"pools"`
	AvgPoolSize float64   `json:"avg_pool_size"`
	PoolSizeStd float64   `json:"pool_size_std"`
	Energy      Spread    `json:"energy"`
}

// PoolStatus summarizes every tier of a in reporting order.
func PoolStatus(a *pool.Assigner) []TierStatus {
	out := make([]TierStatus, 0, len(pool.Tiers))
	for _, tier := range pool.Tiers {
		out = append(out, TierStatusOf(tier, a.Pools(tier)))
	}
	return out
}

// TierStatusOf summarizes one tier's pools.
func TierStatusOf(tier pool.Tier, pools []*pool.ThoughtPool) TierStatus {
	ts := TierStatus{Tier: tier, Pools: len(pools)}
	if len(pools) == 0 {
		return ts
	}
	sizes := make([]float64, len(pools))
	var energies []float64
	for i, p := range pools {
		sizes[i] = float64(p.Len())
		for _, s := range p.Sprouts() {
			energies = append(energies, s.EnergyLevel)
		}
	}
	sz := NewSpread(sizes)
	ts.AvgPoolSize = sz.Mean
	ts.PoolSizeStd = sz.StdDev
	ts.Energy = NewSpread(energies)
	return ts
}

// TrackerStatus summarizes the tracked activation times.
type TrackerStatus struct {
	Tracked int       `json:"tracked"`
	First   time.Time `json:"first,omitzero"`
	Last    time.Time `json:"last,omitzero"`
	Mean    time.Time `json:"mean,omitzero"`
}

// TrackerStatusOf summarizes t.
func TrackerStatusOf(t *sprout.Tracker) TrackerStatus {
	return TimestampStatus(t.Timestamps())
}

// TimestampStatus summarizes a list of activation times.
func TimestampStatus(ts []time.Time) TrackerStatus {
	st := TrackerStatus{Tracked: len(ts)}
	if len(ts) == 0 {
		return st
	}
	// Offsets from the first timestamp keep the mean inside float64 precision.
	base := ts[0]
	offsets := make([]float64, len(ts))
	for i, t := range ts {
		offsets[i] = float64(t.Sub(base))
	}
	st.First = base.Add(time.Duration(floats.Min(offsets)))
	st.Last = base.Add(time.Duration(floats.Max(offsets)))
	st.Mean = base.Add(time.Duration(math.Round(stat.Mean(offsets, nil))))
	return st
}

// Histogram is a fixed-bin count of values. Bin i covers
// [Edges[i], Edges[i+1]); the last bin also holds the maximum.
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []float64 `json:"counts"`
}

// EnergyHistogram bins the energy levels of seeds.
func EnergyHistogram(seeds []*thoughtseed.Thoughtseed, bins int) Histogram {
	xs := make([]float64, len(seeds))
	for i, s := range seeds {
		xs[i] = s.EnergyLevel
	}
	return NewHistogram(xs, bins)
}

// NewHistogram bins xs into equal-width bins over [min, max]. When every
// value is equal the range is widened by 0.5 on each side.
func NewHistogram(xs []float64, bins int) Histogram {
	if bins < 1 {
		bins = DefaultHistogramBins
	}
	h := Histogram{Counts: make([]float64, bins), Edges: make([]float64, bins+1)}
	if len(xs) == 0 {
		floats.Span(h.Edges, 0, 1)
		return h
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	floats.Span(h.Edges, lo, hi)

	dividers := make([]float64, len(h.Edges))
	copy(dividers, h.Edges)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	stat.Histogram(h.Counts, dividers, sorted, nil)
	return h
}

// Total returns the number of binned values.
func (h Histogram) Total() float64 {
	return floats.Sum(h.Counts)
}

// SampleEntry is one displayed thoughtseed with its decoded memory pattern.
type SampleEntry struct {
	Index    int                      `json:"index"`
	Seed     *thoughtseed.Thoughtseed `json:"seed"`
	Location int                      `json:"location"`
	TimeSlot int                      `json:"time_slot"`
	Activity int                      `json:"activity"`
	Emotion  int                      `json:"emotion"`
	Error    string                   `json:"error,omitempty"`
}

// Sample picks k distinct seeds at random, ordered by population index.
// k is capped at len(seeds).
func Sample(seeds []*thoughtseed.Thoughtseed, k int, rng *rand.Rand) []SampleEntry {
	k = max(0, min(k, len(seeds)))
	picked := rng.Perm(len(seeds))[:k]
	sort.Ints(picked)

	out := make([]SampleEntry, 0, k)
	for _, i := range picked {
		e := SampleEntry{Index: i, Seed: seeds[i]}
		loc, slot, act, emo, err := seeds[i].DecodeMemoryPattern()
		if err != nil {
			e.Error = err.Error()
		} else {
			e.Location, e.TimeSlot, e.Activity, e.Emotion = loc, slot, act, emo
		}
		out = append(out, e)
	}
	return out
}
