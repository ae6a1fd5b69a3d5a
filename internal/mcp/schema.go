// Package mcp provides an MCP (Model Context Protocol) server for thoughtseed.
package mcp

// GenerateInput defines the input for the thoughtseed_generate tool.
type GenerateInput struct {
	Count      int    `json:"count,omitempty" jsonschema:"Number of thoughtseeds to generate (default: configured num_thoughtseeds, at most max_thoughtseeds)"`
	RandomSeed uint64 `json:"random_seed,omitempty" jsonschema:"Seed for the random source; 0 uses the configured seed or the clock"`
	Sample     int    `json:"sample,omitempty" jsonschema:"Number of random thoughtseeds to return for inspection (default: 20)"`
}

// GenerateOutput defines the output for the thoughtseed_generate tool.
type GenerateOutput struct {
	NetworkID string          `json:"network_id" jsonschema:"ID of the saved network snapshot"`
	Nodes     int             `json:"nodes" jsonschema:"Number of thoughtseeds"`
	Edges     int             `json:"edges" jsonschema:"Number of edges"`
	Sample    []SeedSummary   `json:"sample" jsonschema:"Randomly sampled thoughtseeds with decoded memory patterns"`
	Histogram HistogramOutput `json:"energy_histogram" jsonschema:"Energy level histogram of the population"`
	Message   string          `json:"message" jsonschema:"Human-readable result message"`
}

// SeedSummary is a flattened view of one thoughtseed.
type SeedSummary struct {
	Index         int                `json:"index"`
	EnergyLevel   float64            `json:"energy_level"`
	Features      map[string]float64 `json:"features"`
	MemoryPattern string             `json:"memory_pattern"`
	Location      int                `json:"location"`
	TimeSlot      int                `json:"time_slot"`
	Activity      int                `json:"activity"`
	Emotion       int                `json:"emotion"`
	Error         string             `json:"error,omitempty"`
}

// HistogramOutput is a fixed-bin histogram.
type HistogramOutput struct {
	Edges  []float64 `json:"edges"`
	Counts []float64 `json:"counts"`
}

// SproutInput defines the input for the thoughtseed_sprout tool.
type SproutInput struct {
	Reset bool `json:"reset,omitempty" jsonschema:"Discard existing pools and tracker before sweeping (default: false)"`
}

// SproutOutput defines the output for the thoughtseed_sprout tool.
type SproutOutput struct {
	Considered int            `json:"considered" jsonschema:"Thoughtseeds checked for activation"`
	Sprouted   int            `json:"sprouted" jsonschema:"Thoughtsprouts created in this sweep"`
	Skipped    int            `json:"skipped" jsonschema:"Thoughtsprouts that could not be assigned"`
	ByTier     map[string]int `json:"by_tier" jsonschema:"Thoughtsprouts created per tier"`
	Pools      []TierOutput   `json:"pools" jsonschema:"Pool status per tier"`
	Tracked    int            `json:"tracked" jsonschema:"Total thoughtsprouts tracked across sweeps"`
	FirstAt    string         `json:"first_at,omitempty" jsonschema:"Earliest activation time (RFC 3339)"`
	LastAt     string         `json:"last_at,omitempty" jsonschema:"Latest activation time (RFC 3339)"`
	Message    string         `json:"message" jsonschema:"Human-readable result message"`
}

// TierOutput summarizes the pools of one tier.
type TierOutput struct {
	Tier        string  `json:"tier"`
	Pools       int     `json:"pools"`
	AvgPoolSize float64 `json:"avg_pool_size"`
	PoolSizeStd float64 `json:"pool_size_std"`
	EnergyMin   float64 `json:"energy_min"`
	EnergyMax   float64 `json:"energy_max"`
	EnergyMean  float64 `json:"energy_mean"`
	EnergyStd   float64 `json:"energy_std"`
}

// AnalyzeInput defines the input for the thoughtseed_analyze tool.
type AnalyzeInput struct {
	Algorithm  string  `json:"algorithm,omitempty" jsonschema:"Community detection algorithm: louvain or modularity (default: configured)"`
	Resolution float64 `json:"resolution,omitempty" jsonschema:"Modularity resolution (default: algorithm default)"`
	Top        int     `json:"top,omitempty" jsonschema:"Number of top PageRank nodes to return (default: 10)"`
}

// AnalyzeOutput defines the output for the thoughtseed_analyze tool.
type AnalyzeOutput struct {
	NetworkID        string            `json:"network_id"`
	AnalyticsID      string            `json:"analytics_id"`
	Algorithm        string            `json:"algorithm"`
	Resolution       float64           `json:"resolution"`
	Modularity       float64           `json:"modularity"`
	CommunityCount   int               `json:"community_count"`
	LargeCommunities int               `json:"large_communities" jsonschema:"Communities with at least the configured minimum size"`
	Communities      []CommunityOutput `json:"communities" jsonschema:"Described communities (large communities only)"`
	TopPageRank      []RankedNode      `json:"top_pagerank" jsonschema:"Highest PageRank nodes"`
	Message          string            `json:"message"`
}

// CommunityOutput describes one community.
type CommunityOutput struct {
	ID                int     `json:"id"`
	Size              int     `json:"size"`
	Density           float64 `json:"density"`
	Diameter          int     `json:"diameter"`
	AveragePathLength float64 `json:"average_path_length"`
}

// RankedNode is a node and its PageRank score.
type RankedNode struct {
	Index     int     `json:"index"`
	PageRank  float64 `json:"pagerank"`
	Community int     `json:"community"`
}

// GraphInput defines the input for the thoughtseed_graph tool.
type GraphInput struct {
	Format    string  `json:"format,omitempty" jsonschema:"Output format: dot, json or html (default: json)"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"Only include edges with composite weight above this value (default: 0.5)"`
}

// GraphOutput defines the output for the thoughtseed_graph tool.
type GraphOutput struct {
	Format    string      `json:"format"`
	Graph     interface{} `json:"graph" jsonschema:"Rendered graph (DOT or HTML string, or JSON object)"`
	NodeCount int         `json:"node_count"`
	EdgeCount int         `json:"edge_count"`
}

// StatusInput defines the input for the thoughtseed_status tool.
type StatusInput struct{}

// StatusOutput defines the output for the thoughtseed_status tool.
type StatusOutput struct {
	HasNetwork   bool   `json:"has_network"`
	NetworkID    string `json:"network_id,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	Nodes        int    `json:"nodes"`
	Edges        int    `json:"edges"`
	HasAnalytics bool   `json:"has_analytics"`
	AnalyticsID  string `json:"analytics_id,omitempty"`
	Tracked      int    `json:"tracked" jsonschema:"Thoughtsprouts tracked by this server"`
}
