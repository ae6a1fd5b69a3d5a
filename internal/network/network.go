// Package network builds the complete weighted graph over a thoughtseed
// population. Edge attributes live in packed arrays indexed by unordered
// node pair, so a population of n seeds costs three float64 slices of
// n(n-1)/2 entries and no per-edge objects.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// Node is a graph vertex carrying a snapshot of one thoughtseed.
type Node struct {
	Index         int                       `json:"index"`
	FeatureValues thoughtseed.FeatureValues `json:"feature_values"`
	MemoryPattern string                    `json:"memory_pattern"`
}

// Edge is an undirected edge with U < V.
type Edge struct {
	U                int     `json:"u"`
	V                int     `json:"v"`
	ValenceWeight    float64 `json:"valence_weight"`
	ComplexityWeight float64 `json:"complexity_weight"`
	Weight           float64 `json:"weight"`
}

// Network is a complete graph over a thoughtseed population. It is built once
// and is read-only afterwards apart from the single normalization pass.
type Network struct {
	valenceMu    float64
	valenceSigma float64
	logger       *slog.Logger

	seeds []*thoughtseed.Thoughtseed
	nodes []Node

	valenceWeights    []float64
	complexityWeights []float64
	weights           []float64
}

// New creates an empty network. The Valence feature must carry a mean and
// standard deviation; without them edges cannot be tiered.
func New(features config.FeatureConfig, logger *slog.Logger) (*Network, error) {
	mu, sigma, err := features.Valence()
	if err != nil {
		return nil, err
	}
	return &Network{
		valenceMu:    mu,
		valenceSigma: sigma,
		logger:       logging.OrDiscard(logger),
	}, nil
}

// Initialize generates the population and builds the normalized graph.
func (n *Network) Initialize(ctx context.Context, gen *thoughtseed.Generator) error {
	seeds, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generating thoughtseeds: %w", err)
	}
	n.SetThoughtseeds(seeds)
	n.AddNodes()
	if err := n.AddEdges(ctx); err != nil {
		return err
	}
	n.NormalizeWeights()
	n.logger.Info("network initialized", "nodes", n.NodeCount(), "edges", n.EdgeCount())
	return nil
}

// SetThoughtseeds replaces the population the graph is built from.
func (n *Network) SetThoughtseeds(seeds []*thoughtseed.Thoughtseed) {
	n.seeds = seeds
}

// Thoughtseeds returns the population.
func (n *Network) Thoughtseeds() []*thoughtseed.Thoughtseed {
	return n.seeds
}

// AddNodes adds one node per thoughtseed, addressed by population index.
func (n *Network) AddNodes() {
	n.nodes = make([]Node, len(n.seeds))
	for i, s := range n.seeds {
		n.nodes[i] = Node{
			Index:         i,
			FeatureValues: s.FeatureValues.Clone(),
			MemoryPattern: s.MemoryPattern,
		}
	}
}

// AddEdges connects every pair of distinct nodes and computes the raw valence
// and complexity weights. Rows are spread across GOMAXPROCS workers; each row
// writes a disjoint range of the packed arrays.
func (n *Network) AddEdges(ctx context.Context) error {
	size := len(n.nodes)
	m := EdgeCountFor(size)
	n.valenceWeights = make([]float64, m)
	n.complexityWeights = make([]float64, m)
	n.weights = make([]float64, m)
	if m == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < size-1; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			si := n.seeds[i]
			base := pairIndex(i, i+1, size)
			for j := i + 1; j < size; j++ {
				vw, cw := n.AssignEdgeWeights(si, n.seeds[j])
				k := base + (j - i - 1)
				n.valenceWeights[k] = vw
				n.complexityWeights[k] = cw
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("building edges: %w", err)
	}
	n.logger.Debug("edges built", "edges", m)
	return nil
}

// AssignEdgeWeights returns the tiered valence weight and the complexity
// weight of the edge between a and b.
func (n *Network) AssignEdgeWeights(a, b *thoughtseed.Thoughtseed) (valenceWeight, complexityWeight float64) {
	v1 := a.FeatureValues.Value(constants.FeatureValence)
	v2 := b.FeatureValues.Value(constants.FeatureValence)
	c1 := a.FeatureValues.Value(constants.FeatureComplexity)
	c2 := b.FeatureValues.Value(constants.FeatureComplexity)

	valenceWeight = TierValenceWeight(v1, v2, n.valenceMu, n.valenceSigma)
	c := math.Max(c1, c2)
	return valenceWeight, c * c
}

// TierValenceWeight applies the valence tiering table to a pair of valences.
func TierValenceWeight(v1, v2, mu, sigma float64) float64 {
	d1 := math.Abs(v1 - mu)
	d2 := math.Abs(v2 - mu)
	same := (v1-mu)*(v2-mu) > 0

	switch {
	case d1 > 2*sigma && d2 > 2*sigma:
		if same {
			return constants.ValenceWeightBothExtremeSame
		}
		return constants.ValenceWeightBothExtremeOpposite
	case (d1 > 2*sigma && d2 > sigma) || (d2 > 2*sigma && d1 > sigma):
		if same {
			return constants.ValenceWeightOneExtremeSame
		}
		return constants.ValenceWeightOneExtremeOpposite
	case d1 > sigma || d2 > sigma:
		return constants.ValenceWeightEitherOutlier
	default:
		return constants.ValenceWeightBaseline
	}
}

// NormalizeWeights min-max scales the valence and complexity weights
// independently into [0, 1] and blends them into the composite weight.
// An attribute whose max equals its min normalizes to 0.
func (n *Network) NormalizeWeights() {
	if len(n.weights) == 0 {
		return
	}
	vMin, vMax := minMax(n.valenceWeights)
	cMin, cMax := minMax(n.complexityWeights)
	for k := range n.weights {
		nv := scale(n.valenceWeights[k], vMin, vMax)
		nc := scale(n.complexityWeights[k], cMin, cMax)
		n.weights[k] = constants.CompositeValenceShare*nv + constants.CompositeComplexityShare*nc
	}
}

func minMax(xs []float64) (lo, hi float64) {
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func scale(x, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (x - lo) / (hi - lo)
}

// NodeCount returns the number of nodes.
func (n *Network) NodeCount() int { return len(n.nodes) }

// EdgeCount returns the number of edges.
func (n *Network) EdgeCount() int { return len(n.weights) }

// Nodes returns the nodes in index order.
func (n *Network) Nodes() []Node { return n.nodes }

// ValenceParams returns the valence mean and standard deviation the network
// was tiered with.
func (n *Network) ValenceParams() (mu, sigma float64) {
	return n.valenceMu, n.valenceSigma
}

// Edge returns the edge between u and v in either order.
func (n *Network) Edge(u, v int) (Edge, bool) {
	size := len(n.nodes)
	if u == v || u < 0 || v < 0 || u >= size || v >= size {
		return Edge{}, false
	}
	if u > v {
		u, v = v, u
	}
	k := pairIndex(u, v, size)
	return Edge{
		U:                u,
		V:                v,
		ValenceWeight:    n.valenceWeights[k],
		ComplexityWeight: n.complexityWeights[k],
		Weight:           n.weights[k],
	}, true
}

// EachEdge calls fn for every edge in (u, v) lexical order until fn returns false.
func (n *Network) EachEdge(fn func(Edge) bool) {
	size := len(n.nodes)
	k := 0
	for u := 0; u < size-1; u++ {
		for v := u + 1; v < size; v++ {
			if !fn(Edge{
				U:                u,
				V:                v,
				ValenceWeight:    n.valenceWeights[k],
				ComplexityWeight: n.complexityWeights[k],
				Weight:           n.weights[k],
			}) {
				return
			}
			k++
		}
	}
}

// Edges materializes every edge. Prefer EachEdge for large populations.
func (n *Network) Edges() []Edge {
	out := make([]Edge, 0, len(n.weights))
	n.EachEdge(func(e Edge) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Restore rebuilds a network from persisted state. The weight slices must
// hold EdgeCountFor(len(seeds)) entries in (u, v) lexical order.
func Restore(mu, sigma float64, seeds []*thoughtseed.Thoughtseed, valenceWeights, complexityWeights, weights []float64, logger *slog.Logger) (*Network, error) {
	m := EdgeCountFor(len(seeds))
	if len(valenceWeights) != m || len(complexityWeights) != m || len(weights) != m {
		return nil, fmt.Errorf("restoring network: %d seeds need %d edges, got %d/%d/%d",
			len(seeds), m, len(valenceWeights), len(complexityWeights), len(weights))
	}
	n := &Network{
		valenceMu:         mu,
		valenceSigma:      sigma,
		logger:            logging.OrDiscard(logger),
		valenceWeights:    valenceWeights,
		complexityWeights: complexityWeights,
		weights:           weights,
	}
	n.SetThoughtseeds(seeds)
	n.AddNodes()
	return n, nil
}

// PackedWeights exposes the packed edge arrays for persistence.
func (n *Network) PackedWeights() (valenceWeights, complexityWeights, weights []float64) {
	return n.valenceWeights, n.complexityWeights, n.weights
}

// EdgeCountFor returns n(n-1)/2, the edge count of a complete graph on n nodes.
func EdgeCountFor(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// pairIndex maps u < v to its slot in the packed upper triangle.
func pairIndex(u, v, n int) int {
	return u*n - u*(u+1)/2 + (v - u - 1)
}
