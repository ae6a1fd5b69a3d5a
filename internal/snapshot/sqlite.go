package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/thoughtseed/internal/analytics"
	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps every saved snapshot in a SQLite database.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// SaveNetwork inserts snap and its population and edges in one transaction.
func (s *SQLiteStore) SaveNetwork(ctx context.Context, snap *NetworkSnapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, created_at, valence_mu, valence_sigma, global_energy_value, node_count, edge_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.CreatedAt.UTC().Format(timeLayout), snap.ValenceMu, snap.ValenceSigma,
		snap.GlobalEnergyValue, len(snap.Thoughtseeds), snap.EdgeCount())
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	seedStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO thoughtseeds (snapshot_id, idx, feature_values, memory_pattern, energy_level, activation_status)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare thoughtseed insert: %w", err)
	}
	defer seedStmt.Close()

	for i, ts := range snap.Thoughtseeds {
		fv, err := json.Marshal(ts.FeatureValues)
		if err != nil {
			return fmt.Errorf("failed to marshal feature values of seed %d: %w", i, err)
		}
		if _, err := seedStmt.ExecContext(ctx, snap.ID, i, string(fv), ts.MemoryPattern, ts.EnergyLevel, ts.ActivationStatus); err != nil {
			return fmt.Errorf("failed to insert seed %d: %w", i, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (snapshot_id, u, v, valence_weight, complexity_weight, weight)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()

	size := len(snap.Thoughtseeds)
	k := 0
	for u := 0; u < size-1; u++ {
		for v := u + 1; v < size; v++ {
			if _, err := edgeStmt.ExecContext(ctx, snap.ID, u, v,
				snap.ValenceWeights[k], snap.ComplexityWeights[k], snap.Weights[k]); err != nil {
				return fmt.Errorf("failed to insert edge (%d,%d): %w", u, v, err)
			}
			k++
		}
	}

	return tx.Commit()
}

// LoadNetwork returns the most recently created network snapshot.
func (s *SQLiteStore) LoadNetwork(ctx context.Context) (*NetworkSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap NetworkSnapshot
	var createdAt string
	var nodeCount, edgeCount int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, valence_mu, valence_sigma, global_energy_value, node_count, edge_count
		FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`).
		Scan(&snap.ID, &createdAt, &snap.ValenceMu, &snap.ValenceSigma, &snap.GlobalEnergyValue, &nodeCount, &edgeCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no network in %s", ErrNotFound, s.dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	snap.CreatedAt, _ = time.Parse(timeLayout, createdAt)

	snap.Thoughtseeds = make([]*thoughtseed.Thoughtseed, 0, nodeCount)
	rows, err := s.db.QueryContext(ctx, `
		SELECT feature_values, memory_pattern, energy_level, activation_status
		FROM thoughtseeds WHERE snapshot_id = ? ORDER BY idx`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query thoughtseeds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fv string
		ts := &thoughtseed.Thoughtseed{}
		if err := rows.Scan(&fv, &ts.MemoryPattern, &ts.EnergyLevel, &ts.ActivationStatus); err != nil {
			return nil, fmt.Errorf("failed to scan thoughtseed: %w", err)
		}
		if err := json.Unmarshal([]byte(fv), &ts.FeatureValues); err != nil {
			return nil, fmt.Errorf("failed to parse feature values: %w", err)
		}
		snap.Thoughtseeds = append(snap.Thoughtseeds, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snap.ValenceWeights = make([]float64, 0, edgeCount)
	snap.ComplexityWeights = make([]float64, 0, edgeCount)
	snap.Weights = make([]float64, 0, edgeCount)
	edgeRows, err := s.db.QueryContext(ctx, `
		SELECT valence_weight, complexity_weight, weight
		FROM edges WHERE snapshot_id = ? ORDER BY u, v`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var vw, cw, w float64
		if err := edgeRows.Scan(&vw, &cw, &w); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		snap.ValenceWeights = append(snap.ValenceWeights, vw)
		snap.ComplexityWeights = append(snap.ComplexityWeights, cw)
		snap.Weights = append(snap.Weights, w)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	return &snap, nil
}

// SaveAnalytics inserts an analytics run and its per-node scores.
func (s *SQLiteStore) SaveAnalytics(ctx context.Context, snap *AnalyticsSnapshot) error {
	if snap.Result == nil {
		return fmt.Errorf("analytics snapshot %s has no result", snap.ID)
	}
	res := snap.Result
	n := len(res.Communities)
	if len(res.DegreeCentrality) != n || len(res.PageRank) != n {
		return fmt.Errorf("analytics snapshot %s has mismatched score lengths", snap.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analytics_runs (id, network_id, created_at, algorithm, resolution, modularity)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.NetworkID, snap.CreatedAt.UTC().Format(timeLayout),
		res.Algorithm, res.Resolution, res.Modularity)
	if err != nil {
		return fmt.Errorf("failed to insert analytics run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analytics_scores (run_id, idx, degree_centrality, pagerank, community)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare score insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, snap.ID, i, res.DegreeCentrality[i], res.PageRank[i], res.Communities[i]); err != nil {
			return fmt.Errorf("failed to insert score %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadAnalytics returns the most recent analytics run.
func (s *SQLiteStore) LoadAnalytics(ctx context.Context) (*AnalyticsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &AnalyticsSnapshot{Result: &analytics.Result{}}
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, network_id, created_at, algorithm, resolution, modularity
		FROM analytics_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`).
		Scan(&snap.ID, &snap.NetworkID, &createdAt, &snap.Result.Algorithm, &snap.Result.Resolution, &snap.Result.Modularity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no analytics in %s", ErrNotFound, s.dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics run: %w", err)
	}
	snap.CreatedAt, _ = time.Parse(timeLayout, createdAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT degree_centrality, pagerank, community
		FROM analytics_scores WHERE run_id = ? ORDER BY idx`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	res := snap.Result
	for rows.Next() {
		var dc, pr float64
		var c int
		if err := rows.Scan(&dc, &pr, &c); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		res.DegreeCentrality = append(res.DegreeCentrality, dc)
		res.PageRank = append(res.PageRank, pr)
		res.Communities = append(res.Communities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Pruner = (*SQLiteStore)(nil)

// ListNetworks returns every saved network, newest first.
func (s *SQLiteStore) ListNetworks(ctx context.Context) ([]NetworkInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listNetworks(ctx)
}

func (s *SQLiteStore) listNetworks(ctx context.Context) ([]NetworkInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, node_count, edge_count
		FROM snapshots ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []NetworkInfo
	for rows.Next() {
		var info NetworkInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &createdAt, &info.Nodes, &info.Edges); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		info.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Prune deletes the networks policy does not keep, with their population,
// edges and analytics runs. The newest network is never deleted.
func (s *SQLiteStore) Prune(ctx context.Context, policy RetentionPolicy) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	networks, err := s.listNetworks(ctx)
	if err != nil || len(networks) == 0 {
		return nil, err
	}

	keep := map[string]bool{networks[0].ID: true}
	for _, n := range policy.Apply(networks) {
		keep[n.ID] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deleted []string
	for _, n := range networks {
		if keep[n.ID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM analytics_runs WHERE network_id = ?`, n.ID); err != nil {
			return nil, fmt.Errorf("failed to delete analytics for %s: %w", n.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, n.ID); err != nil {
			return nil, fmt.Errorf("failed to delete snapshot %s: %w", n.ID, err)
		}
		deleted = append(deleted, n.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit prune: %w", err)
	}
	return deleted, nil
}
