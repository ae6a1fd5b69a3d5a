package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/thoughtseed/internal/analytics"
	"github.com/nvandessel/thoughtseed/internal/lifecycle"
	"github.com/nvandessel/thoughtseed/internal/ratelimit"
	"github.com/nvandessel/thoughtseed/internal/report"
	"github.com/nvandessel/thoughtseed/internal/snapshot"
	"github.com/nvandessel/thoughtseed/internal/visualization"
)

// defaultTopPageRank is the number of nodes returned by thoughtseed_analyze.
const defaultTopPageRank = 10

// registerTools registers all thoughtseed MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolGenerate,
		Description: "Generate a new thoughtseed population, build its weighted network and save it as the current snapshot",
	}, s.handleGenerate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSprout,
		Description: "Sweep the saved population: activated thoughtseeds become thoughtsprouts and are routed into valence-tiered thought pools",
	}, s.handleSprout)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolAnalyze,
		Description: "Compute degree centrality, PageRank and communities over the saved network",
	}, s.handleAnalyze)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolGraph,
		Description: "Render the saved network in DOT (Graphviz), JSON, or HTML format, coloured by community when analytics exist",
	}, s.handleGraph)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolStatus,
		Description: "Report the saved network, analytics and sprout tracker state",
	}, s.handleStatus)

	return nil
}

// handleGenerate implements the thoughtseed_generate tool.
func (s *Server) handleGenerate(ctx context.Context, req *sdk.CallToolRequest, args GenerateInput) (_ *sdk.CallToolResult, _ GenerateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolGenerate, start, retErr, sanitizeToolParams(map[string]interface{}{
			"count":       args.Count,
			"random_seed": args.RandomSeed,
			"sample":      args.Sample,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolGenerate); err != nil {
		return nil, GenerateOutput{}, err
	}
	if args.Count < 0 || args.Sample < 0 {
		return nil, GenerateOutput{}, fmt.Errorf("count and sample must be non-negative")
	}
	if err := s.settings.Network.CheckCount(args.Count); err != nil {
		return nil, GenerateOutput{}, err
	}

	cfg := *s.settings
	if args.Count > 0 {
		cfg.Network.NumThoughtseeds = args.Count
	}
	if args.RandomSeed != 0 {
		cfg.Network.RandomSeed = args.RandomSeed
	}
	sample := args.Sample
	if sample == 0 {
		sample = report.DefaultSampleSize
	}

	res, err := lifecycle.Generate(ctx, &cfg, s.store, sample, s.logger, s.decisions)
	if err != nil {
		return nil, GenerateOutput{}, err
	}

	// A new population invalidates the pools built from the previous one.
	s.mu.Lock()
	s.manager = nil
	s.mu.Unlock()

	return nil, GenerateOutput{
		NetworkID: res.NetworkID,
		Nodes:     res.Nodes,
		Edges:     res.Edges,
		Sample:    seedSummaries(res.Sample),
		Histogram: HistogramOutput{Edges: res.Histogram.Edges, Counts: res.Histogram.Counts},
		Message:   fmt.Sprintf("Generated %d thoughtseeds with %d edges", res.Nodes, res.Edges),
	}, nil
}

func seedSummaries(entries []report.SampleEntry) []SeedSummary {
	out := make([]SeedSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, SeedSummary{
			Index:         e.Index,
			EnergyLevel:   e.Seed.EnergyLevel,
			Features:      e.Seed.FeatureValues.Map(),
			MemoryPattern: e.Seed.MemoryPattern,
			Location:      e.Location,
			TimeSlot:      e.TimeSlot,
			Activity:      e.Activity,
			Emotion:       e.Emotion,
			Error:         e.Error,
		})
	}
	return out
}

// handleSprout implements the thoughtseed_sprout tool.
func (s *Server) handleSprout(ctx context.Context, req *sdk.CallToolRequest, args SproutInput) (_ *sdk.CallToolResult, _ SproutOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolSprout, start, retErr, sanitizeToolParams(map[string]interface{}{
			"reset": args.Reset,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSprout); err != nil {
		return nil, SproutOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager == nil || args.Reset {
		m, err := lifecycle.NewManager(s.settings, s.store, s.logger, s.decisions)
		if err != nil {
			return nil, SproutOutput{}, err
		}
		s.manager = m
	}

	res, err := s.manager.RunSprouts(ctx)
	if err != nil {
		return nil, SproutOutput{}, err
	}

	out := SproutOutput{
		Considered: res.Summary.Considered,
		Sprouted:   res.Summary.Sprouted,
		Skipped:    res.Summary.Skipped,
		ByTier:     make(map[string]int, len(res.Summary.ByTier)),
		Pools:      make([]TierOutput, 0, len(res.Pools)),
		Tracked:    res.Tracker.Tracked,
		Message:    fmt.Sprintf("Sprouted %d of %d thoughtseeds", res.Summary.Sprouted, res.Summary.Considered),
	}
	for tier, n := range res.Summary.ByTier {
		out.ByTier[string(tier)] = n
	}
	for _, t := range res.Pools {
		out.Pools = append(out.Pools, TierOutput{
			Tier:        string(t.Tier),
			Pools:       t.Pools,
			AvgPoolSize: t.AvgPoolSize,
			PoolSizeStd: t.PoolSizeStd,
			EnergyMin:   t.Energy.Min,
			EnergyMax:   t.Energy.Max,
			EnergyMean:  t.Energy.Mean,
			EnergyStd:   t.Energy.StdDev,
		})
	}
	if res.Tracker.Tracked > 0 {
		out.FirstAt = res.Tracker.First.Format(time.RFC3339Nano)
		out.LastAt = res.Tracker.Last.Format(time.RFC3339Nano)
	}
	return nil, out, nil
}

// handleAnalyze implements the thoughtseed_analyze tool.
func (s *Server) handleAnalyze(ctx context.Context, req *sdk.CallToolRequest, args AnalyzeInput) (_ *sdk.CallToolResult, _ AnalyzeOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolAnalyze, start, retErr, sanitizeToolParams(map[string]interface{}{
			"algorithm":  args.Algorithm,
			"resolution": args.Resolution,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolAnalyze); err != nil {
		return nil, AnalyzeOutput{}, err
	}

	cfg := *s.settings
	if args.Algorithm != "" {
		cfg.Analytics.Algorithm = args.Algorithm
	}
	if args.Resolution < 0 {
		return nil, AnalyzeOutput{}, fmt.Errorf("resolution must be non-negative, got %v", args.Resolution)
	}
	if args.Resolution > 0 {
		cfg.Analytics.Resolution = args.Resolution
	}
	top := args.Top
	if top <= 0 {
		top = defaultTopPageRank
	}

	res, err := lifecycle.Analyze(ctx, &cfg, s.store, lifecycle.NewRNG(cfg.Network.RandomSeed), s.logger)
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}

	out := AnalyzeOutput{
		NetworkID:        res.NetworkID,
		AnalyticsID:      res.AnalyticsID,
		Algorithm:        res.Result.Algorithm,
		Resolution:       res.Result.Resolution,
		Modularity:       res.Result.Modularity,
		CommunityCount:   len(res.Communities),
		LargeCommunities: res.LargeCommunities,
		Communities:      []CommunityOutput{},
		TopPageRank:      topPageRank(res.Result, top),
	}
	for _, c := range res.Communities {
		if c.Description == nil {
			continue
		}
		out.Communities = append(out.Communities, CommunityOutput{
			ID:                c.ID,
			Size:              c.Description.Size,
			Density:           c.Description.Density,
			Diameter:          c.Description.Diameter,
			AveragePathLength: c.Description.AveragePathLength,
		})
	}
	out.Message = fmt.Sprintf("Found %d communities (%d with at least %d members), modularity %.4f",
		out.CommunityCount, out.LargeCommunities, cfg.Analytics.LargeCommunitySize, out.Modularity)
	return nil, out, nil
}

// topPageRank returns the k highest-ranked nodes, ties broken by index.
func topPageRank(res *analytics.Result, k int) []RankedNode {
	nodes := make([]RankedNode, len(res.PageRank))
	for i, pr := range res.PageRank {
		nodes[i] = RankedNode{Index: i, PageRank: pr, Community: res.Communities[i]}
	}
	sort.SliceStable(nodes, func(a, b int) bool { return nodes[a].PageRank > nodes[b].PageRank })
	if k < len(nodes) {
		nodes = nodes[:k]
	}
	return nodes
}

// handleGraph implements the thoughtseed_graph tool.
func (s *Server) handleGraph(ctx context.Context, req *sdk.CallToolRequest, args GraphInput) (_ *sdk.CallToolResult, _ GraphOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolGraph, start, retErr, sanitizeToolParams(map[string]interface{}{
			"format":    args.Format,
			"threshold": args.Threshold,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolGraph); err != nil {
		return nil, GraphOutput{}, err
	}

	format := visualization.FormatJSON
	if args.Format != "" {
		f, err := visualization.ParseFormat(args.Format)
		if err != nil {
			return nil, GraphOutput{}, err
		}
		format = f
	}
	threshold := args.Threshold
	if threshold == 0 {
		threshold = visualization.DefaultThreshold
	}

	loader := snapshot.NewLoader(s.store, s.logger)
	snap := loader.Network(ctx)
	if snap == nil {
		return nil, GraphOutput{}, lifecycle.ErrNoNetwork
	}
	n, err := snap.Network(s.logger)
	if err != nil {
		return nil, GraphOutput{}, err
	}

	opts := visualization.Options{Threshold: threshold}
	if as := loader.Analytics(ctx); as != nil && as.NetworkID == snap.ID {
		opts.Analytics = as.Result
	}

	g := visualization.BuildGraph(n, opts)
	out := GraphOutput{Format: string(format), NodeCount: g.NodeCount, EdgeCount: g.EdgeCount}
	switch format {
	case visualization.FormatDOT:
		out.Graph = visualization.RenderDOT(n, opts)
	case visualization.FormatHTML:
		html, err := visualization.RenderHTML(n, opts)
		if err != nil {
			return nil, GraphOutput{}, fmt.Errorf("render HTML: %w", err)
		}
		out.Graph = string(html)
	default:
		out.Graph = g
	}
	return nil, out, nil
}

// handleStatus implements the thoughtseed_status tool.
func (s *Server) handleStatus(ctx context.Context, req *sdk.CallToolRequest, args StatusInput) (_ *sdk.CallToolResult, _ StatusOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolStatus, start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolStatus); err != nil {
		return nil, StatusOutput{}, err
	}

	var out StatusOutput
	snap, err := s.store.LoadNetwork(ctx)
	switch {
	case err == nil:
		out.HasNetwork = true
		out.NetworkID = snap.ID
		out.CreatedAt = snap.CreatedAt.Format(time.RFC3339)
		out.Nodes = len(snap.Thoughtseeds)
		out.Edges = snap.EdgeCount()
	case !errors.Is(err, snapshot.ErrNotFound):
		return nil, StatusOutput{}, err
	}

	as, err := s.store.LoadAnalytics(ctx)
	switch {
	case err == nil:
		out.HasAnalytics = true
		out.AnalyticsID = as.ID
	case !errors.Is(err, snapshot.ErrNotFound):
		return nil, StatusOutput{}, err
	}

	s.mu.Lock()
	if s.manager != nil {
		out.Tracked = s.manager.Tracker().Len()
	}
	s.mu.Unlock()
	return nil, out, nil
}
