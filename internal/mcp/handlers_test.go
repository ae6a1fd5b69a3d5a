package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/thoughtseed/internal/analytics"
	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/lifecycle"
	"github.com/nvandessel/thoughtseed/internal/ratelimit"
	"github.com/nvandessel/thoughtseed/internal/visualization"
)

func testSettings() *config.Config {
	cfg := config.Default()
	cfg.Network.NumThoughtseeds = 30
	cfg.Network.RandomSeed = 42
	return cfg
}

func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	tmpDir := t.TempDir()

	server, err := NewServer(&Config{
		Name:     "test-server",
		Version:  "v1.0.0",
		Root:     tmpDir,
		Settings: testSettings(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server, tmpDir
}

func generate(t *testing.T, server *Server, args GenerateInput) GenerateOutput {
	t.Helper()
	_, out, err := server.handleGenerate(context.Background(), &sdk.CallToolRequest{}, args)
	if err != nil {
		t.Fatalf("handleGenerate failed: %v", err)
	}
	return out
}

func TestHandleStatus_Empty(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, out, err := server.handleStatus(context.Background(), &sdk.CallToolRequest{}, StatusInput{})
	if err != nil {
		t.Fatalf("handleStatus failed: %v", err)
	}
	if out.HasNetwork || out.HasAnalytics {
		t.Errorf("expected empty status, got %+v", out)
	}
	if out.Tracked != 0 {
		t.Errorf("Tracked = %d, want 0", out.Tracked)
	}
}

func TestHandleGenerate(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	out := generate(t, server, GenerateInput{})
	if out.Nodes != 30 || out.Edges != 435 {
		t.Errorf("nodes=%d edges=%d, want 30 and 435", out.Nodes, out.Edges)
	}
	if out.NetworkID == "" {
		t.Error("expected a network ID")
	}
	if len(out.Sample) != 20 {
		t.Errorf("len(Sample) = %d, want 20", len(out.Sample))
	}
	for i := 1; i < len(out.Sample); i++ {
		if out.Sample[i-1].Index >= out.Sample[i].Index {
			t.Errorf("sample not ordered by index at %d", i)
		}
	}
	for _, s := range out.Sample {
		if len(s.MemoryPattern) != 32 {
			t.Errorf("seed %d memory pattern %q is not 32 bits", s.Index, s.MemoryPattern)
		}
		if _, ok := s.Features[constants.FeatureValence]; !ok {
			t.Errorf("seed %d missing valence feature: %v", s.Index, s.Features)
		}
	}

	var total float64
	for _, c := range out.Histogram.Counts {
		total += c
	}
	if total != 30 {
		t.Errorf("histogram total = %v, want 30", total)
	}

	_, status, err := server.handleStatus(context.Background(), &sdk.CallToolRequest{}, StatusInput{})
	if err != nil {
		t.Fatalf("handleStatus failed: %v", err)
	}
	if !status.HasNetwork || status.NetworkID != out.NetworkID {
		t.Errorf("status = %+v, want network %s", status, out.NetworkID)
	}
	if status.Nodes != 30 || status.Edges != 435 {
		t.Errorf("status nodes=%d edges=%d", status.Nodes, status.Edges)
	}
}

func TestHandleGenerate_Overrides(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	out := generate(t, server, GenerateInput{Count: 10, RandomSeed: 9, Sample: 3})
	if out.Nodes != 10 || out.Edges != 45 {
		t.Errorf("nodes=%d edges=%d, want 10 and 45", out.Nodes, out.Edges)
	}
	if len(out.Sample) != 3 {
		t.Errorf("len(Sample) = %d, want 3", len(out.Sample))
	}
	if server.settings.Network.NumThoughtseeds != 30 {
		t.Errorf("server settings mutated: num_thoughtseeds = %d", server.settings.Network.NumThoughtseeds)
	}
}

func TestHandleGenerate_Invalid(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	tests := []struct {
		name    string
		args    GenerateInput
		wantErr error
	}{
		{"negative count", GenerateInput{Count: -1}, nil},
		{"negative sample", GenerateInput{Sample: -5}, nil},
		{"count above max", GenerateInput{Count: server.settings.Network.MaxThoughtseeds + 1}, config.ErrTooManyThoughtseeds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server.toolLimiters = ratelimit.NewToolLimiters()
			_, _, err := server.handleGenerate(context.Background(), &sdk.CallToolRequest{}, tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ratelimit.ErrRateLimited) {
				t.Fatalf("rejected by the rate limiter instead of validation: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	_, status, err := server.handleStatus(context.Background(), &sdk.CallToolRequest{}, StatusInput{})
	if err != nil {
		t.Fatalf("handleStatus failed: %v", err)
	}
	if status.HasNetwork {
		t.Error("rejected generate calls must not save a network")
	}
}

func TestHandleSprout_NoNetwork(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, _, err := server.handleSprout(context.Background(), &sdk.CallToolRequest{}, SproutInput{})
	if !errors.Is(err, lifecycle.ErrNoNetwork) {
		t.Errorf("expected ErrNoNetwork, got %v", err)
	}
}

func TestHandleSprout_Accumulates(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	generate(t, server, GenerateInput{})

	ctx := context.Background()
	_, first, err := server.handleSprout(ctx, &sdk.CallToolRequest{}, SproutInput{})
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if first.Considered != 30 {
		t.Errorf("Considered = %d, want 30", first.Considered)
	}
	if first.Tracked != first.Sprouted {
		t.Errorf("Tracked = %d, want %d", first.Tracked, first.Sprouted)
	}
	if len(first.Pools) == 0 {
		t.Error("expected pool status per tier")
	}

	_, second, err := server.handleSprout(ctx, &sdk.CallToolRequest{}, SproutInput{})
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if second.Tracked != first.Sprouted+second.Sprouted {
		t.Errorf("Tracked = %d, want %d", second.Tracked, first.Sprouted+second.Sprouted)
	}

	_, reset, err := server.handleSprout(ctx, &sdk.CallToolRequest{}, SproutInput{Reset: true})
	if err != nil {
		t.Fatalf("reset sweep failed: %v", err)
	}
	if reset.Tracked != reset.Sprouted {
		t.Errorf("after reset Tracked = %d, want %d", reset.Tracked, reset.Sprouted)
	}

	_, status, err := server.handleStatus(ctx, &sdk.CallToolRequest{}, StatusInput{})
	if err != nil {
		t.Fatalf("handleStatus failed: %v", err)
	}
	if status.Tracked != reset.Tracked {
		t.Errorf("status Tracked = %d, want %d", status.Tracked, reset.Tracked)
	}

	// A new population discards the pools.
	generate(t, server, GenerateInput{})
	_, status, err = server.handleStatus(ctx, &sdk.CallToolRequest{}, StatusInput{})
	if err != nil {
		t.Fatalf("handleStatus failed: %v", err)
	}
	if status.Tracked != 0 {
		t.Errorf("status Tracked after generate = %d, want 0", status.Tracked)
	}
}

func TestHandleAnalyze(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	gen := generate(t, server, GenerateInput{})

	ctx := context.Background()
	_, out, err := server.handleAnalyze(ctx, &sdk.CallToolRequest{}, AnalyzeInput{Top: 5})
	if err != nil {
		t.Fatalf("handleAnalyze failed: %v", err)
	}
	if out.NetworkID != gen.NetworkID {
		t.Errorf("NetworkID = %q, want %q", out.NetworkID, gen.NetworkID)
	}
	if out.AnalyticsID == "" {
		t.Error("expected an analytics ID")
	}
	if out.CommunityCount < 1 {
		t.Errorf("CommunityCount = %d, want >= 1", out.CommunityCount)
	}
	if len(out.TopPageRank) != 5 {
		t.Fatalf("len(TopPageRank) = %d, want 5", len(out.TopPageRank))
	}
	for i := 1; i < len(out.TopPageRank); i++ {
		if out.TopPageRank[i-1].PageRank < out.TopPageRank[i].PageRank {
			t.Errorf("TopPageRank not descending at %d", i)
		}
	}

	_, status, err := server.handleStatus(ctx, &sdk.CallToolRequest{}, StatusInput{})
	if err != nil {
		t.Fatalf("handleStatus failed: %v", err)
	}
	if !status.HasAnalytics || status.AnalyticsID != out.AnalyticsID {
		t.Errorf("status = %+v, want analytics %s", status, out.AnalyticsID)
	}
}

func TestHandleAnalyze_Errors(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	if _, _, err := server.handleAnalyze(ctx, &sdk.CallToolRequest{}, AnalyzeInput{}); !errors.Is(err, lifecycle.ErrNoNetwork) {
		t.Errorf("expected ErrNoNetwork, got %v", err)
	}

	generate(t, server, GenerateInput{})
	if _, _, err := server.handleAnalyze(ctx, &sdk.CallToolRequest{}, AnalyzeInput{Algorithm: "leiden"}); !errors.Is(err, analytics.ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}
	server.toolLimiters = ratelimit.NewToolLimiters()
	if _, _, err := server.handleAnalyze(ctx, &sdk.CallToolRequest{}, AnalyzeInput{Resolution: -1}); err == nil {
		t.Error("expected error for negative resolution")
	}
}

func TestTopPageRank(t *testing.T) {
	res := &analytics.Result{
		PageRank:    []float64{0.1, 0.4, 0.2, 0.4},
		Communities: []int{0, 1, 0, 1},
	}
	got := topPageRank(res, 3)
	wantIdx := []int{1, 3, 2}
	if len(got) != len(wantIdx) {
		t.Fatalf("len = %d, want %d", len(got), len(wantIdx))
	}
	for i, idx := range wantIdx {
		if got[i].Index != idx {
			t.Errorf("rank %d index = %d, want %d", i, got[i].Index, idx)
		}
	}
	if got[0].Community != 1 {
		t.Errorf("community = %d, want 1", got[0].Community)
	}
	if all := topPageRank(res, 10); len(all) != 4 {
		t.Errorf("len = %d, want 4", len(all))
	}
}

func TestHandleGraph(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	if _, _, err := server.handleGraph(ctx, &sdk.CallToolRequest{}, GraphInput{}); !errors.Is(err, lifecycle.ErrNoNetwork) {
		t.Errorf("expected ErrNoNetwork, got %v", err)
	}

	generate(t, server, GenerateInput{})

	t.Run("json", func(t *testing.T) {
		_, out, err := server.handleGraph(ctx, &sdk.CallToolRequest{}, GraphInput{})
		if err != nil {
			t.Fatalf("handleGraph failed: %v", err)
		}
		if out.Format != string(visualization.FormatJSON) {
			t.Errorf("Format = %q, want json", out.Format)
		}
		g, ok := out.Graph.(visualization.Graph)
		if !ok {
			t.Fatalf("Graph is %T, want visualization.Graph", out.Graph)
		}
		if out.NodeCount != 30 || len(g.Nodes) != 30 {
			t.Errorf("node count = %d/%d, want 30", out.NodeCount, len(g.Nodes))
		}
		if g.Threshold != visualization.DefaultThreshold {
			t.Errorf("Threshold = %v, want default", g.Threshold)
		}
	})

	t.Run("dot", func(t *testing.T) {
		_, out, err := server.handleGraph(ctx, &sdk.CallToolRequest{}, GraphInput{Format: "dot", Threshold: 0.9})
		if err != nil {
			t.Fatalf("handleGraph failed: %v", err)
		}
		dot, ok := out.Graph.(string)
		if !ok || !strings.HasPrefix(dot, "graph thoughtseed {") {
			t.Errorf("unexpected DOT output: %v", out.Graph)
		}
	})

	t.Run("html", func(t *testing.T) {
		_, out, err := server.handleGraph(ctx, &sdk.CallToolRequest{}, GraphInput{Format: "html"})
		if err != nil {
			t.Fatalf("handleGraph failed: %v", err)
		}
		html, ok := out.Graph.(string)
		if !ok || !strings.Contains(html, "<html") {
			t.Error("expected an HTML document")
		}
	})

	t.Run("bad format", func(t *testing.T) {
		if _, _, err := server.handleGraph(ctx, &sdk.CallToolRequest{}, GraphInput{Format: "svg"}); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestHandleGraph_UsesMatchingAnalytics(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	generate(t, server, GenerateInput{})
	if _, _, err := server.handleAnalyze(ctx, &sdk.CallToolRequest{}, AnalyzeInput{}); err != nil {
		t.Fatalf("handleAnalyze failed: %v", err)
	}

	communityOf := func() int {
		_, out, err := server.handleGraph(ctx, &sdk.CallToolRequest{}, GraphInput{})
		if err != nil {
			t.Fatalf("handleGraph failed: %v", err)
		}
		return out.Graph.(visualization.Graph).Nodes[0].Community
	}
	if c := communityOf(); c < 0 {
		t.Errorf("community = %d, want analytics applied", c)
	}

	// Analytics of the previous network must not color the new one.
	generate(t, server, GenerateInput{RandomSeed: 99})
	if c := communityOf(); c != -1 {
		t.Errorf("community = %d, want -1 for stale analytics", c)
	}
}

func TestHandlers_RateLimited(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	var err error
	for i := 0; i < 20 && err == nil; i++ {
		_, _, err = server.handleStatus(context.Background(), &sdk.CallToolRequest{}, StatusInput{})
	}
	if !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}
