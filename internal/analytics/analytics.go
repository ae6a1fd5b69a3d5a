// Package analytics computes centrality, PageRank and community structure
// over a built thoughtseed network.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/network"
)

// ErrUnknownAlgorithm is returned for an unsupported community detection algorithm.
var ErrUnknownAlgorithm = errors.New("unknown community detection algorithm")

// Result holds per-node scores indexed by node index.
type Result struct {
	Algorithm        string    `json:"algorithm"`
	Resolution       float64   `json:"resolution"`
	DegreeCentrality []float64 `json:"degree_centrality"`
	PageRank         []float64 `json:"pagerank"`
	Communities      []int     `json:"communities"`
	Modularity       float64   `json:"modularity"`
}

// Provider computes analytics for a network.
type Provider interface {
	Analyze(ctx context.Context, n *network.Network) (*Result, error)
}

// Analyzer is the gonum-backed Provider.
type Analyzer struct {
	cfg    config.AnalyticsConfig
	src    rand.Source
	logger *slog.Logger
}

var _ Provider = (*Analyzer)(nil)

// NewAnalyzer creates an analyzer. src drives community detection; nil uses
// a clock-seeded source.
func NewAnalyzer(cfg config.AnalyticsConfig, src rand.Source, logger *slog.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, src: src, logger: logging.OrDiscard(logger)}
}

// Analyze computes degree centrality, PageRank and communities.
func (a *Analyzer) Analyze(ctx context.Context, n *network.Network) (*Result, error) {
	g := Graph(n)

	pr := DefaultPageRankConfig()
	if a.cfg.Damping > 0 {
		pr.DampingFactor = a.cfg.Damping
	}
	ranks, err := PageRank(ctx, n, pr)
	if err != nil {
		return nil, err
	}

	communities, q, err := a.DetectCommunities(ctx, g, a.cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Algorithm:        a.cfg.Algorithm,
		Resolution:       a.resolution(a.cfg.Algorithm),
		DegreeCentrality: DegreeCentrality(g),
		PageRank:         ranks,
		Communities:      communities,
		Modularity:       q,
	}
	a.logger.Info("analytics complete",
		"nodes", n.NodeCount(),
		"algorithm", res.Algorithm,
		"communities", len(GroupCommunities(communities)),
		"modularity", q)
	return res, nil
}

func (a *Analyzer) resolution(algorithm string) float64 {
	if a.cfg.Resolution > 0 {
		return a.cfg.Resolution
	}
	if algorithm == config.AlgorithmLouvain {
		return constants.DefaultLouvainResolution
	}
	return 1.0
}

// Graph converts n to a weighted undirected gonum graph. Node IDs are
// population indexes and edge weights are the composite weights.
func Graph(n *network.Network) *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < n.NodeCount(); i++ {
		g.AddNode(simple.Node(i))
	}
	n.EachEdge(func(e network.Edge) bool {
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(e.U), T: simple.Node(e.V), W: e.Weight})
		return true
	})
	return g
}

// DegreeCentrality returns degree/(n-1) for each node. A single node scores 1.
func DegreeCentrality(g *simple.WeightedUndirectedGraph) []float64 {
	n := g.Nodes().Len()
	out := make([]float64, n)
	if n == 1 {
		out[0] = 1
		return out
	}
	for i := range out {
		out[i] = float64(g.From(int64(i)).Len()) / float64(n-1)
	}
	return out
}

func validateAlgorithm(algorithm string) error {
	switch algorithm {
	case config.AlgorithmLouvain, config.AlgorithmModularity:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: louvain, modularity)", ErrUnknownAlgorithm, algorithm)
	}
}
