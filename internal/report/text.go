package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nvandessel/thoughtseed/internal/constants"
)

// histogramBarWidth is the width of the longest histogram bar.
const histogramBarWidth = 40

// WritePoolStatus prints one line per tier.
func WritePoolStatus(w io.Writer, tiers []TierStatus) {
	fmt.Fprintf(w, "Thought Pools\n")
	fmt.Fprintf(w, "=============\n\n")
	fmt.Fprintf(w, "%-18s %5s %8s %8s %8s %8s %8s %8s\n",
		"Tier", "Pools", "AvgSize", "SizeStd", "EMin", "EMax", "EMean", "EStd")
	for _, t := range tiers {
		fmt.Fprintf(w, "%-18s %5d %8.2f %8.2f %8.3f %8.3f %8.3f %8.3f\n",
			t.Tier, t.Pools, t.AvgPoolSize, t.PoolSizeStd,
			t.Energy.Min, t.Energy.Max, t.Energy.Mean, t.Energy.StdDev)
	}
	fmt.Fprintln(w)
}

// WriteTrackerStatus prints the tracker summary.
func WriteTrackerStatus(w io.Writer, st TrackerStatus) {
	fmt.Fprintf(w, "Sprout Tracker\n")
	fmt.Fprintf(w, "==============\n\n")
	fmt.Fprintf(w, "  Tracked: %d\n", st.Tracked)
	if st.Tracked > 0 {
		fmt.Fprintf(w, "  First:   %s\n", st.First.Format(time.RFC3339Nano))
		fmt.Fprintf(w, "  Last:    %s\n", st.Last.Format(time.RFC3339Nano))
		fmt.Fprintf(w, "  Mean:    %s\n", st.Mean.Format(time.RFC3339Nano))
	}
	fmt.Fprintln(w)
}

// WriteHistogram prints h as a horizontal bar chart.
func WriteHistogram(w io.Writer, title string, h Histogram) {
	fmt.Fprintf(w, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	peak := 0.0
	for _, c := range h.Counts {
		peak = max(peak, c)
	}
	for i, c := range h.Counts {
		bar := 0
		if peak > 0 {
			bar = int(c / peak * histogramBarWidth)
		}
		fmt.Fprintf(w, "[%8.3f, %8.3f) %6.0f %s\n", h.Edges[i], h.Edges[i+1], c, strings.Repeat("#", bar))
	}
	fmt.Fprintln(w)
}

// WriteSample prints sampled seeds with their key features and decoded
// memory pattern.
func WriteSample(w io.Writer, entries []SampleEntry) {
	fmt.Fprintf(w, "Sampled Thoughtseeds\n")
	fmt.Fprintf(w, "====================\n\n")
	fmt.Fprintf(w, "%6s %8s %8s %8s  %-32s %4s %4s %4s %4s\n",
		"Index", "Energy", "Valence", "Complex", "Memory", "Loc", "Time", "Act", "Emo")
	for _, e := range entries {
		fv := e.Seed.FeatureValues
		fmt.Fprintf(w, "%6d %8.3f %8.3f %8.3f  %-32s ",
			e.Index, e.Seed.EnergyLevel,
			fv.Value(constants.FeatureValence), fv.Value(constants.FeatureComplexity),
			e.Seed.MemoryPattern)
		if e.Error != "" {
			fmt.Fprintf(w, "(%s)\n", e.Error)
			continue
		}
		fmt.Fprintf(w, "%4d %4d %4d %4d\n", e.Location, e.TimeSlot, e.Activity, e.Emotion)
	}
	fmt.Fprintln(w)
}
