// Package visualization renders thoughtseed networks in various output formats.
package visualization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/nvandessel/thoughtseed/internal/analytics"
	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/network"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: dot, json, html)", s)
	}
}

// DefaultThreshold hides edges whose composite weight is not above it.
// A complete graph of any real size is unreadable otherwise.
const DefaultThreshold = 0.5

// communityColors cycles over community ids.
var communityColors = []string{
	"steelblue",
	"tomato",
	"mediumseagreen",
	"goldenrod",
	"orchid",
	"lightseagreen",
	"sandybrown",
	"slateblue",
}

// Options controls which parts of the network are rendered.
type Options struct {
	// Threshold drops edges with Weight <= Threshold.
	Threshold float64

	// Analytics, when set, colours nodes by community and adds PageRank.
	Analytics *analytics.Result
}

// CommunityColor returns the display colour of a community. Negative ids
// (no analytics) are grey.
func CommunityColor(id int) string {
	if id < 0 {
		return "lightgray"
	}
	return communityColors[id%len(communityColors)]
}

// GraphNode is one node of the rendered graph.
type GraphNode struct {
	Index         int     `json:"index"`
	EnergyLevel   float64 `json:"energy_level"`
	Valence       float64 `json:"valence"`
	Complexity    float64 `json:"complexity"`
	MemoryPattern string  `json:"memory_pattern"`
	Community     int     `json:"community"`
	PageRank      float64 `json:"pagerank,omitempty"`
	Color         string  `json:"color"`
}

// GraphEdge is one displayed edge.
type GraphEdge struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Weight float64 `json:"weight"`
}

// Graph is the render-ready form of a network.
type Graph struct {
	Nodes     []GraphNode `json:"nodes"`
	Edges     []GraphEdge `json:"edges"`
	NodeCount int         `json:"node_count"`
	EdgeCount int         `json:"edge_count"`
	Threshold float64     `json:"threshold"`
}

// BuildGraph collects the nodes and displayed edges of n.
func BuildGraph(n *network.Network, opts Options) Graph {
	seeds := n.Thoughtseeds()
	g := Graph{Nodes: make([]GraphNode, 0, len(seeds)), Edges: []GraphEdge{}, Threshold: opts.Threshold}

	res := opts.Analytics
	if res != nil && len(res.Communities) != len(seeds) {
		res = nil
	}
	for i, s := range seeds {
		node := GraphNode{
			Index:         i,
			EnergyLevel:   s.EnergyLevel,
			Valence:       s.FeatureValues.Value(constants.FeatureValence),
			Complexity:    s.FeatureValues.Value(constants.FeatureComplexity),
			MemoryPattern: s.MemoryPattern,
			Community:     -1,
		}
		if res != nil {
			node.Community = res.Communities[i]
			node.PageRank = res.PageRank[i]
		}
		node.Color = CommunityColor(node.Community)
		g.Nodes = append(g.Nodes, node)
	}

	n.EachEdge(func(e network.Edge) bool {
		if e.Weight > opts.Threshold {
			g.Edges = append(g.Edges, GraphEdge{Source: e.U, Target: e.V, Weight: e.Weight})
		}
		return true
	})
	g.NodeCount = len(g.Nodes)
	g.EdgeCount = len(g.Edges)
	return g
}

// RenderDOT produces an undirected Graphviz DOT representation of n.
func RenderDOT(n *network.Network, opts Options) string {
	g := BuildGraph(n, opts)

	var b strings.Builder
	b.WriteString("graph thoughtseed {\n")
	b.WriteString("  layout=neato;\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\", fontsize=9];\n")
	b.WriteString("  edge [color=\"#00000040\"];\n\n")

	for _, node := range g.Nodes {
		b.WriteString(fmt.Sprintf("  %d [fillcolor=%q, tooltip=\"energy=%.3f valence=%.3f community=%d\"];\n",
			node.Index, node.Color, node.EnergyLevel, node.Valence, node.Community))
	}
	b.WriteString("\n")

	for _, e := range g.Edges {
		b.WriteString(fmt.Sprintf("  %d -- %d [weight=\"%.3f\", penwidth=%.2f];\n",
			e.Source, e.Target, e.Weight, 0.5+2*e.Weight))
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces the graph as JSON.
func RenderJSON(n *network.Network, opts Options) ([]byte, error) {
	data, err := json.MarshalIndent(BuildGraph(n, opts), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	return data, nil
}

// htmlTemplateData holds data passed to the HTML template.
// GraphJSON is pre-sanitized JSON (via json.HTMLEscape) safe for inline <script>.
type htmlTemplateData struct {
	Title      string
	GraphJSON  template.JS
	APIBaseURL string
}

// RenderHTML produces a self-contained HTML page drawing the graph on a
// circular layout.
func RenderHTML(n *network.Network, opts Options) ([]byte, error) {
	return renderHTML(n, opts, "")
}

func renderHTML(n *network.Network, opts Options, apiBaseURL string) ([]byte, error) {
	graphJSON, err := json.Marshal(BuildGraph(n, opts))
	if err != nil {
		return nil, fmt.Errorf("marshal graph data: %w", err)
	}

	tmplBytes, err := templates.ReadFile("templates/graph.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read HTML template: %w", err)
	}
	tmpl, err := template.New("graph").Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML template: %w", err)
	}

	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, graphJSON)

	var buf bytes.Buffer
	data := htmlTemplateData{
		Title:      fmt.Sprintf("thoughtseed network (%d nodes)", n.NodeCount()),
		GraphJSON:  template.JS(escaped.String()), // #nosec G203
		APIBaseURL: apiBaseURL,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}
