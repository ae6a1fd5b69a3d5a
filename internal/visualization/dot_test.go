package visualization

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nvandessel/thoughtseed/internal/analytics"
	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/network"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// testNetwork builds four seeds where (1,2) is the only strongly weighted pair.
func testNetwork(t *testing.T) *network.Network {
	t.Helper()
	values := [][2]float64{{0.1, 0.2}, {2.5, 1.0}, {2.6, 0.9}, {-0.3, 0.0}}
	seeds := make([]*thoughtseed.Thoughtseed, len(values))
	for i, v := range values {
		fv := thoughtseed.NewFeatureValues(2)
		fv.Set(constants.FeatureValence, v[0])
		fv.Set(constants.FeatureComplexity, v[1])
		seeds[i] = thoughtseed.New(fv, "00000000000000000000000000000000")
	}
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

func testAnalytics() *analytics.Result {
	return &analytics.Result{
		Communities: []int{0, 1, 1, 0},
		PageRank:    []float64{0.2, 0.3, 0.3, 0.2},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"dot", "JSON", "html"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) error: %v", s, err)
		}
	}
	if _, err := ParseFormat("png"); err == nil {
		t.Error("expected error for png")
	}
}

func TestCommunityColor(t *testing.T) {
	if CommunityColor(-1) != "lightgray" {
		t.Errorf("CommunityColor(-1) = %q", CommunityColor(-1))
	}
	if CommunityColor(0) != CommunityColor(len(communityColors)) {
		t.Error("colours should cycle")
	}
}

func TestBuildGraph_Threshold(t *testing.T) {
	n := testNetwork(t)

	all := BuildGraph(n, Options{Threshold: -1})
	if all.EdgeCount != 6 || all.NodeCount != 4 {
		t.Errorf("threshold -1: nodes=%d edges=%d, want 4 and 6", all.NodeCount, all.EdgeCount)
	}

	strong := BuildGraph(n, Options{Threshold: 0.99})
	if strong.EdgeCount != 1 {
		t.Fatalf("threshold 0.99: edges=%d, want 1", strong.EdgeCount)
	}
	if e := strong.Edges[0]; e.Source != 1 || e.Target != 2 {
		t.Errorf("strongest edge = %+v, want (1,2)", e)
	}
}

func TestBuildGraph_Communities(t *testing.T) {
	n := testNetwork(t)

	plain := BuildGraph(n, Options{})
	for _, node := range plain.Nodes {
		if node.Community != -1 || node.Color != "lightgray" {
			t.Errorf("node %d without analytics = %+v", node.Index, node)
		}
	}

	coloured := BuildGraph(n, Options{Analytics: testAnalytics()})
	if coloured.Nodes[1].Community != 1 || coloured.Nodes[1].Color != CommunityColor(1) {
		t.Errorf("node 1 = %+v", coloured.Nodes[1])
	}
	if coloured.Nodes[0].PageRank != 0.2 {
		t.Errorf("node 0 PageRank = %v", coloured.Nodes[0].PageRank)
	}

	// Analytics for a different population are ignored.
	stale := BuildGraph(n, Options{Analytics: &analytics.Result{Communities: []int{0}, PageRank: []float64{1}}})
	if stale.Nodes[0].Community != -1 {
		t.Error("mismatched analytics should be ignored")
	}
}

func TestRenderDOT(t *testing.T) {
	dot := RenderDOT(testNetwork(t), Options{Threshold: 0.99, Analytics: testAnalytics()})

	if !strings.HasPrefix(dot, "graph thoughtseed {") {
		t.Errorf("unexpected header: %q", dot[:min(len(dot), 40)])
	}
	if !strings.Contains(dot, "1 -- 2") {
		t.Error("expected edge 1 -- 2")
	}
	if strings.Contains(dot, "0 -- 3") {
		t.Error("edge 0 -- 3 should be below threshold")
	}
	if !strings.Contains(dot, `fillcolor="tomato"`) {
		t.Error("expected community 1 colour")
	}
	if !strings.HasSuffix(dot, "}\n") {
		t.Error("DOT output should end with closing brace")
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := RenderJSON(testNetwork(t), Options{Threshold: -1})
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.NodeCount != 4 || g.EdgeCount != 6 || len(g.Edges) != 6 {
		t.Errorf("graph = %d nodes, %d edges", g.NodeCount, g.EdgeCount)
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(testNetwork(t), Options{Threshold: DefaultThreshold})
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}
	out := string(html)
	if !strings.Contains(out, "<svg") {
		t.Error("expected svg element")
	}
	if !strings.Contains(out, `"node_count":4`) {
		t.Error("expected embedded graph JSON")
	}
}
