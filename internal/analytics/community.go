package analytics

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// ErrDisconnected is returned when path statistics are requested for a
// community whose induced subgraph is not connected.
var ErrDisconnected = errors.New("community is not connected")

// DetectCommunities partitions g with the named algorithm and returns each
// node's community id plus the partition's modularity. Ids are numbered in
// order of each community's lowest node index.
//
// "louvain" runs Louvain modularity optimization at resolution 1.125 (or the
// configured resolution); "modularity" runs it at resolution 1.
func (a *Analyzer) DetectCommunities(ctx context.Context, g *simple.WeightedUndirectedGraph, algorithm string) ([]int, float64, error) {
	if err := validateAlgorithm(algorithm); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	n := g.Nodes().Len()
	if n == 0 {
		return []int{}, 0, nil
	}
	resolution := a.resolution(algorithm)

	// Modularity is undefined with no edge weight; every node stands alone.
	if totalWeight(g) == 0 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, 0, nil
	}

	src := a.src
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed+1)
	}

	reduced := community.Modularize(g, resolution, src)
	groups := reduced.Communities()
	q := community.Q(g, groups, resolution)

	return relabel(groups, n), q, nil
}

func totalWeight(g *simple.WeightedUndirectedGraph) float64 {
	total := 0.0
	edges := g.WeightedEdges()
	for edges.Next() {
		total += edges.WeightedEdge().Weight()
	}
	return total
}

// relabel turns community groups into a node-indexed id slice.
func relabel(groups [][]graph.Node, n int) []int {
	type group struct {
		min   int64
		nodes []graph.Node
	}
	ordered := make([]group, 0, len(groups))
	for _, nodes := range groups {
		if len(nodes) == 0 {
			continue
		}
		m := nodes[0].ID()
		for _, nd := range nodes[1:] {
			m = min(m, nd.ID())
		}
		ordered = append(ordered, group{min: m, nodes: nodes})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].min < ordered[j].min })

	out := make([]int, n)
	for id, grp := range ordered {
		for _, nd := range grp.nodes {
			out[nd.ID()] = id
		}
	}
	return out
}

// GroupCommunities maps each community id to its sorted node indexes.
func GroupCommunities(communities []int) map[int][]int {
	groups := make(map[int][]int)
	for node, id := range communities {
		groups[id] = append(groups[id], node)
	}
	return groups
}

// CommunityIDs returns the community ids in ascending order.
func CommunityIDs(communities []int) []int {
	groups := GroupCommunities(communities)
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CountLargeCommunities counts communities with at least minSize members.
func CountLargeCommunities(communities []int, minSize int) int {
	count := 0
	for _, nodes := range GroupCommunities(communities) {
		if len(nodes) >= minSize {
			count++
		}
	}
	return count
}

// CommunityDescription summarizes a community's induced subgraph. Path
// statistics count hops and ignore weights.
type CommunityDescription struct {
	Size              int     `json:"size"`
	Density           float64 `json:"density"`
	Diameter          int     `json:"diameter"`
	AveragePathLength float64 `json:"average_path_length"`
}

// DescribeCommunity describes the subgraph of g induced by nodes. It returns
// nil for communities smaller than minSize.
func DescribeCommunity(g graph.Undirected, nodes []int, minSize int) (*CommunityDescription, error) {
	if len(nodes) < minSize || len(nodes) == 0 {
		return nil, nil
	}

	sub := simple.NewUndirectedGraph()
	for _, id := range nodes {
		sub.AddNode(simple.Node(id))
	}
	edges := 0
	for i, u := range nodes {
		for _, v := range nodes[i+1:] {
			if g.HasEdgeBetween(int64(u), int64(v)) {
				sub.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
				edges++
			}
		}
	}

	size := len(nodes)
	desc := &CommunityDescription{Size: size}
	if size < 2 {
		return desc, nil
	}
	desc.Density = float64(2*edges) / float64(size*(size-1))

	diameter, totalDist := 0, 0
	for _, id := range nodes {
		reached := 0
		var bfs traverse.BreadthFirst
		bfs.Walk(sub, simple.Node(id), func(_ graph.Node, depth int) bool {
			reached++
			totalDist += depth
			diameter = max(diameter, depth)
			return false
		})
		if reached != size {
			return nil, fmt.Errorf("%w: %d of %d nodes reachable from %d", ErrDisconnected, reached, size, id)
		}
	}
	desc.Diameter = diameter
	desc.AveragePathLength = float64(totalDist) / float64(size*(size-1))
	return desc, nil
}
