// Package lifecycle wires the thoughtseed pipelines together: building and
// persisting a network, sweeping a persisted population into thought pools,
// and running analytics over a persisted network.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nvandessel/thoughtseed/internal/analytics"
	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/network"
	"github.com/nvandessel/thoughtseed/internal/report"
	"github.com/nvandessel/thoughtseed/internal/snapshot"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// ErrNoNetwork is returned when a pipeline needs a persisted network and
// none could be loaded.
var ErrNoNetwork = errors.New("no persisted network; run generate first")

// NewRNG returns a PCG generator seeded with seed, or from the clock when
// seed is zero.
func NewRNG(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// BuildNetwork generates cfg.Network.NumThoughtseeds thoughtseeds and builds
// the normalized network over them.
func BuildNetwork(ctx context.Context, cfg *config.Config, rng *rand.Rand, logger *slog.Logger, dl *logging.DecisionLogger) (*network.Network, error) {
	gen, err := thoughtseed.NewGenerator(cfg.Features, cfg.Network.NumThoughtseeds, rng, logger)
	if err != nil {
		return nil, err
	}
	gen.SetDecisionLogger(dl)

	n, err := network.New(cfg.Features, logger)
	if err != nil {
		return nil, err
	}
	if err := n.Initialize(ctx, gen); err != nil {
		return nil, err
	}
	return n, nil
}

// GenerateResult is the outcome of the generate pipeline.
type GenerateResult struct {
	Network   *network.Network          `json:"-"`
	NetworkID string                    `json:"network_id"`
	Nodes     int                       `json:"nodes"`
	Edges     int                       `json:"edges"`
	Sample    []report.SampleEntry      `json:"sample"`
	Histogram report.Histogram          `json:"energy_histogram"`
	Snapshot  *snapshot.NetworkSnapshot `json:"-"`
}

// Generate builds a network, saves it to store and summarizes the
// population. sampleSize seeds are drawn for display.
func Generate(ctx context.Context, cfg *config.Config, store snapshot.Store, sampleSize int, logger *slog.Logger, dl *logging.DecisionLogger) (*GenerateResult, error) {
	logger = logging.OrDiscard(logger)
	if err := cfg.Network.CheckCount(cfg.Network.NumThoughtseeds); err != nil {
		return nil, err
	}
	rng := NewRNG(cfg.Network.RandomSeed)

	n, err := BuildNetwork(ctx, cfg, rng, logger, dl)
	if err != nil {
		return nil, fmt.Errorf("building network: %w", err)
	}

	snap := snapshot.FromNetwork(n, cfg.Network.GlobalEnergyValue)
	if err := store.SaveNetwork(ctx, snap); err != nil {
		return nil, fmt.Errorf("saving network: %w", err)
	}
	logger.Info("network saved", "id", snap.ID, "nodes", n.NodeCount(), "edges", n.EdgeCount())

	if p, ok := store.(snapshot.Pruner); ok && cfg.Persistence.Keep > 0 {
		deleted, err := p.Prune(ctx, &snapshot.CountPolicy{MaxCount: cfg.Persistence.Keep})
		if err != nil {
			logger.Warn("pruning old networks failed", "error", err)
		} else if len(deleted) > 0 {
			logger.Debug("pruned old networks", "deleted", len(deleted), "keep", cfg.Persistence.Keep)
		}
	}

	seeds := n.Thoughtseeds()
	return &GenerateResult{
		Network:   n,
		NetworkID: snap.ID,
		Nodes:     n.NodeCount(),
		Edges:     n.EdgeCount(),
		Sample:    report.Sample(seeds, sampleSize, rng),
		Histogram: report.EnergyHistogram(seeds, report.DefaultHistogramBins),
		Snapshot:  snap,
	}, nil
}

// CommunityReport describes one community.
type CommunityReport struct {
	ID          int                             `json:"id"`
	Nodes       []int                           `json:"nodes"`
	Description *analytics.CommunityDescription `json:"description,omitempty"`
}

// AnalyzeResult is the outcome of the analyze pipeline.
type AnalyzeResult struct {
	NetworkID        string            `json:"network_id"`
	AnalyticsID      string            `json:"analytics_id"`
	Result           *analytics.Result `json:"result"`
	Communities      []CommunityReport `json:"communities"`
	LargeCommunities int               `json:"large_communities"`
	Network          *network.Network  `json:"-"`
}

// Analyze loads the latest network from store, computes analytics, describes
// every community of at least cfg.Analytics.LargeCommunitySize members and
// saves the result. src drives community detection.
func Analyze(ctx context.Context, cfg *config.Config, store snapshot.Store, src rand.Source, logger *slog.Logger) (*AnalyzeResult, error) {
	logger = logging.OrDiscard(logger)

	snap := snapshot.NewLoader(store, logger).Network(ctx)
	if snap == nil {
		return nil, ErrNoNetwork
	}
	n, err := snap.Network(logger)
	if err != nil {
		return nil, err
	}

	res, err := analytics.NewAnalyzer(cfg.Analytics, src, logger).Analyze(ctx, n)
	if err != nil {
		return nil, err
	}

	minSize := cfg.Analytics.LargeCommunitySize
	g := analytics.Graph(n)
	groups := analytics.GroupCommunities(res.Communities)
	out := &AnalyzeResult{
		NetworkID:        snap.ID,
		Result:           res,
		LargeCommunities: analytics.CountLargeCommunities(res.Communities, minSize),
		Network:          n,
	}
	for _, id := range analytics.CommunityIDs(res.Communities) {
		desc, err := analytics.DescribeCommunity(g, groups[id], minSize)
		if err != nil {
			logger.Warn("failed to describe community", "community", id, "error", err)
		}
		out.Communities = append(out.Communities, CommunityReport{ID: id, Nodes: groups[id], Description: desc})
	}

	as := snapshot.NewAnalyticsSnapshot(snap.ID, res)
	if err := store.SaveAnalytics(ctx, as); err != nil {
		return nil, fmt.Errorf("saving analytics: %w", err)
	}
	out.AnalyticsID = as.ID
	return out, nil
}
