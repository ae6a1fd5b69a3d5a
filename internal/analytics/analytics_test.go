package analytics

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/network"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// twoClusters builds a network of two valence camps. Edges inside a camp
// carry the full valence weight; edges across camps weigh nothing.
func twoClusters(t *testing.T, perSide int) *network.Network {
	t.Helper()
	seeds := make([]*thoughtseed.Thoughtseed, 0, 2*perSide)
	for i := 0; i < 2*perSide; i++ {
		v := 3.0
		if i%2 == 1 {
			v = -3.0
		}
		fv := thoughtseed.NewFeatureValues(2)
		fv.Set(constants.FeatureComplexity, 0.5)
		fv.Set(constants.FeatureValence, v)
		seeds = append(seeds, thoughtseed.New(fv, ""))
	}
	return buildNetwork(t, seeds)
}

func buildNetwork(t *testing.T, seeds []*thoughtseed.Thoughtseed) *network.Network {
	t.Helper()
	n, err := network.New(config.DefaultFeatures(), nil)
	if err != nil {
		t.Fatalf("network.New() error: %v", err)
	}
	n.SetThoughtseeds(seeds)
	n.AddNodes()
	if err := n.AddEdges(context.Background()); err != nil {
		t.Fatalf("AddEdges() error: %v", err)
	}
	n.NormalizeWeights()
	return n
}

func testAnalyzer(algorithm string) *Analyzer {
	cfg := config.Default().Analytics
	cfg.Algorithm = algorithm
	return NewAnalyzer(cfg, rand.NewPCG(1, 2), nil)
}

func TestDegreeCentrality_CompleteGraph(t *testing.T) {
	g := Graph(twoClusters(t, 4))
	for i, c := range DegreeCentrality(g) {
		if c != 1.0 {
			t.Errorf("node %d centrality = %v, want 1.0", i, c)
		}
	}
}

func TestDegreeCentrality_SingleNode(t *testing.T) {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	g.AddNode(simple.Node(0))
	if got := DegreeCentrality(g); len(got) != 1 || got[0] != 1 {
		t.Errorf("DegreeCentrality() = %v, want [1]", got)
	}
}

func TestPageRank_SumsToOne(t *testing.T) {
	fc := config.DefaultFeatures()
	gen, err := thoughtseed.NewGenerator(fc, 60, rand.New(rand.NewPCG(5, 6)), nil)
	if err != nil {
		t.Fatal(err)
	}
	seeds, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	n := buildNetwork(t, seeds)

	scores, err := PageRank(context.Background(), n, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("PageRank() error: %v", err)
	}
	sum := 0.0
	for _, s := range scores {
		if s <= 0 {
			t.Errorf("non-positive score %v", s)
		}
		sum += s
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("scores sum to %v, want 1", sum)
	}
}

func TestPageRank_SymmetricClustersAreUniform(t *testing.T) {
	n := twoClusters(t, 5)
	scores, err := PageRank(context.Background(), n, DefaultPageRankConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range scores {
		if math.Abs(s-0.1) > 1e-6 {
			t.Errorf("node %d score = %v, want 0.1", i, s)
		}
	}
}

func TestPageRank_AllZeroWeights(t *testing.T) {
	seeds := make([]*thoughtseed.Thoughtseed, 4)
	for i := range seeds {
		fv := thoughtseed.NewFeatureValues(2)
		fv.Set(constants.FeatureComplexity, 0.5)
		fv.Set(constants.FeatureValence, 0)
		seeds[i] = thoughtseed.New(fv, "")
	}
	scores, err := PageRank(context.Background(), buildNetwork(t, seeds), DefaultPageRankConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range scores {
		if math.Abs(s-0.25) > 1e-9 {
			t.Errorf("node %d score = %v, want 0.25", i, s)
		}
	}
}

func TestPageRank_Empty(t *testing.T) {
	scores, err := PageRank(context.Background(), buildNetwork(t, nil), DefaultPageRankConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 0 {
		t.Errorf("expected no scores, got %d", len(scores))
	}
}

func TestDetectCommunities_SplitsCamps(t *testing.T) {
	for _, algorithm := range []string{config.AlgorithmLouvain, config.AlgorithmModularity} {
		t.Run(algorithm, func(t *testing.T) {
			n := twoClusters(t, 6)
			a := testAnalyzer(algorithm)
			communities, q, err := a.DetectCommunities(context.Background(), Graph(n), algorithm)
			if err != nil {
				t.Fatalf("DetectCommunities() error: %v", err)
			}
			if len(communities) != 12 {
				t.Fatalf("len(communities) = %d, want 12", len(communities))
			}
			for i, c := range communities {
				if c != i%2 {
					t.Fatalf("communities = %v, want alternating 0/1", communities)
				}
			}
			if q <= 0 {
				t.Errorf("modularity = %v, want positive", q)
			}
		})
	}
}

func TestDetectCommunities_UnknownAlgorithm(t *testing.T) {
	a := testAnalyzer("leiden")
	_, _, err := a.DetectCommunities(context.Background(), Graph(twoClusters(t, 2)), "leiden")
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestDetectCommunities_ZeroWeightSingletons(t *testing.T) {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < 3; i++ {
		g.AddNode(simple.Node(i))
	}
	g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(0), T: simple.Node(1), W: 0})
	communities, _, err := testAnalyzer(config.AlgorithmLouvain).DetectCommunities(context.Background(), g, config.AlgorithmLouvain)
	if err != nil {
		t.Fatal(err)
	}
	if communities[0] != 0 || communities[1] != 1 || communities[2] != 2 {
		t.Errorf("communities = %v, want singletons", communities)
	}
}

func TestAnalyze(t *testing.T) {
	n := twoClusters(t, 4)
	res, err := testAnalyzer(config.AlgorithmLouvain).Analyze(context.Background(), n)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if len(res.DegreeCentrality) != 8 || len(res.PageRank) != 8 || len(res.Communities) != 8 {
		t.Errorf("result lengths = %d/%d/%d, want 8", len(res.DegreeCentrality), len(res.PageRank), len(res.Communities))
	}
	if res.Resolution != constants.DefaultLouvainResolution {
		t.Errorf("Resolution = %v, want %v", res.Resolution, constants.DefaultLouvainResolution)
	}
}

func TestGroupAndCountCommunities(t *testing.T) {
	communities := []int{0, 1, 0, 2, 1, 0, 1}
	groups := GroupCommunities(communities)
	if len(groups[0]) != 3 || len(groups[1]) != 3 || len(groups[2]) != 1 {
		t.Errorf("GroupCommunities() = %v", groups)
	}
	if got := CountLargeCommunities(communities, 3); got != 2 {
		t.Errorf("CountLargeCommunities() = %d, want 2", got)
	}
	ids := CommunityIDs(communities)
	if len(ids) != 3 || ids[0] != 0 || ids[2] != 2 {
		t.Errorf("CommunityIDs() = %v", ids)
	}
}

func TestDescribeCommunity(t *testing.T) {
	g := Graph(twoClusters(t, 3))

	desc, err := DescribeCommunity(g, []int{0, 2, 4}, 3)
	if err != nil {
		t.Fatalf("DescribeCommunity() error: %v", err)
	}
	if desc.Size != 3 || desc.Density != 1 || desc.Diameter != 1 || desc.AveragePathLength != 1 {
		t.Errorf("complete community = %+v", desc)
	}

	if desc, _ := DescribeCommunity(g, []int{0, 2}, 3); desc != nil {
		t.Errorf("small community should be nil, got %+v", desc)
	}
}

func TestDescribeCommunity_Path(t *testing.T) {
	g := simple.NewUndirectedGraph()
	g.SetEdge(simple.Edge{F: simple.Node(0), T: simple.Node(1)})
	g.SetEdge(simple.Edge{F: simple.Node(1), T: simple.Node(2)})

	desc, err := DescribeCommunity(g, []int{0, 1, 2}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Diameter != 2 {
		t.Errorf("Diameter = %d, want 2", desc.Diameter)
	}
	if math.Abs(desc.Density-2.0/3.0) > 1e-12 {
		t.Errorf("Density = %v, want 2/3", desc.Density)
	}
	if math.Abs(desc.AveragePathLength-4.0/3.0) > 1e-12 {
		t.Errorf("AveragePathLength = %v, want 4/3", desc.AveragePathLength)
	}
}

func TestDescribeCommunity_Disconnected(t *testing.T) {
	g := simple.NewUndirectedGraph()
	g.SetEdge(simple.Edge{F: simple.Node(0), T: simple.Node(1)})
	g.AddNode(simple.Node(2))

	if _, err := DescribeCommunity(g, []int{0, 1, 2}, 3); !errors.Is(err, ErrDisconnected) {
		t.Errorf("expected ErrDisconnected, got %v", err)
	}
}
