package visualization

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/thoughtseed/internal/network"
)

// DefaultNeighbors is the number of strongest neighbours returned per node.
const DefaultNeighbors = 10

// Server serves the interactive graph HTML and a node lookup API.
type Server struct {
	network    *network.Network
	opts       Options
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a new graph visualization server.
func NewServer(n *network.Network, opts Options) *Server {
	return &Server{
		network: n,
		opts:    opts,
	}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/graph", s.handleGraph)
	mux.HandleFunc("/api/thoughtseed", s.handleThoughtseed)
	return mux
}

// ListenAndServe starts the HTTP server on an OS-assigned port and blocks
// until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiBaseURL := ""
	if addr := s.Addr(); addr != "" {
		apiBaseURL = "http://" + addr
	}
	html, err := renderHTML(s.network, s.opts, apiBaseURL)
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BuildGraph(s.network, s.opts))
}

// Neighbor is an adjacent node and the composite weight of the edge to it.
type Neighbor struct {
	Index  int     `json:"index"`
	Weight float64 `json:"weight"`
}

// NodeDetail is the /api/thoughtseed response.
type NodeDetail struct {
	Node      GraphNode  `json:"node"`
	Neighbors []Neighbor `json:"neighbors"`
}

// StrongestNeighbors returns the k neighbours of index with the highest
// composite weight, strongest first. Ties keep index order.
func StrongestNeighbors(n *network.Network, index, k int) []Neighbor {
	out := make([]Neighbor, 0, n.NodeCount())
	for j := 0; j < n.NodeCount(); j++ {
		if e, ok := n.Edge(index, j); ok {
			out = append(out, Neighbor{Index: j, Weight: e.Weight})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Weight > out[b].Weight })
	if k >= 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

// handleThoughtseed returns one node and its strongest neighbours.
func (s *Server) handleThoughtseed(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		http.Error(w, "missing or invalid 'index' query parameter", http.StatusBadRequest)
		return
	}
	if index < 0 || index >= s.network.NodeCount() {
		http.Error(w, fmt.Sprintf("thoughtseed %d not found", index), http.StatusNotFound)
		return
	}

	k := DefaultNeighbors
	if v := r.URL.Query().Get("k"); v != "" {
		if k, err = strconv.Atoi(v); err != nil {
			http.Error(w, "invalid 'k' query parameter", http.StatusBadRequest)
			return
		}
	}

	g := BuildGraph(s.network, s.opts)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(NodeDetail{
		Node:      g.Nodes[index],
		Neighbors: StrongestNeighbors(s.network, index, k),
	})
}
