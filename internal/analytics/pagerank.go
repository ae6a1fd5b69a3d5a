package analytics

import (
	"context"
	"fmt"
	"math"

	"github.com/nvandessel/thoughtseed/internal/network"
)

// PageRankConfig holds configuration for PageRank computation.
type PageRankConfig struct {
	// DampingFactor (d) is the probability of following an edge vs. teleporting.
	// Standard value: 0.85.
	DampingFactor float64

	// MaxIterations is the maximum number of power iteration steps. Default: 100.
	MaxIterations int

	// Tolerance is the per-node convergence threshold. Default: 1e-6.
	Tolerance float64
}

// DefaultPageRankConfig returns the default PageRank configuration.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{
		DampingFactor: 0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// PageRank computes weighted PageRank over the composite edge weights.
// Scores sum to 1.
//
// Algorithm: power iteration
//  1. Initialize all nodes with score = 1/N
//  2. For each iteration:
//     PR(v) = (1-d)/N + d * (sum(PR(u) * w(u,v) / W(u)) + dangling/N)
//     where W(u) is u's total edge weight and dangling is the score held
//     by nodes with W(u) = 0
//  3. Converge when the L1 change drops below N * Tolerance
//
// Every undirected edge is followed in both directions.
func PageRank(ctx context.Context, n *network.Network, config PageRankConfig) ([]float64, error) {
	size := n.NodeCount()
	if size == 0 {
		return []float64{}, nil
	}

	_, _, weights := n.PackedWeights()

	// Out-strength per node.
	strength := make([]float64, size)
	k := 0
	for u := 0; u < size-1; u++ {
		for v := u + 1; v < size; v++ {
			strength[u] += weights[k]
			strength[v] += weights[k]
			k++
		}
	}

	d := config.DampingFactor
	nf := float64(size)
	scores := make([]float64, size)
	for i := range scores {
		scores[i] = 1.0 / nf
	}

	next := make([]float64, size)
	for iter := 0; iter < config.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("computing pagerank: %w", err)
		}

		dangling := 0.0
		for u, s := range strength {
			if s == 0 {
				dangling += scores[u]
			}
		}
		base := (1.0-d)/nf + d*dangling/nf
		for i := range next {
			next[i] = base
		}

		k = 0
		for u := 0; u < size-1; u++ {
			for v := u + 1; v < size; v++ {
				w := weights[k]
				k++
				if w == 0 {
					continue
				}
				next[v] += d * scores[u] * w / strength[u]
				next[u] += d * scores[v] * w / strength[v]
			}
		}

		delta := 0.0
		for i := range next {
			delta += math.Abs(next[i] - scores[i])
		}
		scores, next = next, scores

		if delta < nf*config.Tolerance {
			break
		}
	}

	return scores, nil
}
