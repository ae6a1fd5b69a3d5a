package snapshot

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite store.
const schemaV1 = `
-- One row per saved network
CREATE TABLE IF NOT EXISTS snapshots (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    valence_mu REAL NOT NULL,
    valence_sigma REAL NOT NULL,
    global_energy_value REAL NOT NULL DEFAULT 0,
    node_count INTEGER NOT NULL,
    edge_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);

-- Population, addressed by node index
CREATE TABLE IF NOT EXISTS thoughtseeds (
    snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    feature_values TEXT NOT NULL,  -- JSON object, insertion ordered
    memory_pattern TEXT NOT NULL,
    energy_level REAL NOT NULL,
    activation_status INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (snapshot_id, idx)
);

-- Edges, u < v
CREATE TABLE IF NOT EXISTS edges (
    snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
    u INTEGER NOT NULL,
    v INTEGER NOT NULL,
    valence_weight REAL NOT NULL,
    complexity_weight REAL NOT NULL,
    weight REAL NOT NULL,
    PRIMARY KEY (snapshot_id, u, v)
);

-- Analytics runs
CREATE TABLE IF NOT EXISTS analytics_runs (
    id TEXT PRIMARY KEY,
    network_id TEXT NOT NULL,
    created_at TEXT NOT NULL,
    algorithm TEXT NOT NULL,
    resolution REAL NOT NULL,
    modularity REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analytics_created ON analytics_runs(created_at);

-- Per-node analytics scores
CREATE TABLE IF NOT EXISTS analytics_scores (
    run_id TEXT NOT NULL REFERENCES analytics_runs(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    degree_centrality REAL NOT NULL,
    pagerank REAL NOT NULL,
    community INTEGER NOT NULL,
    PRIMARY KEY (run_id, idx)
);

-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the schema on a fresh database and validates an
// existing one.
func InitSchema(ctx context.Context, db *sql.DB) error {
	currentVersion, err := getSchemaVersion(ctx, db)
	if err != nil {
		// Schema version table doesn't exist yet, create fresh schema
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}

	if err := ValidateIntegrity(ctx, db); err != nil {
		return fmt.Errorf("database integrity check failed: %w", err)
	}

	if currentVersion > SchemaVersion {
		return fmt.Errorf("%w: database schema %d is newer than %d", ErrVersionMismatch, currentVersion, SchemaVersion)
	}
	return nil
}

func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}

// ValidateIntegrity runs PRAGMA integrity_check and PRAGMA foreign_key_check.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return fmt.Errorf("failed to scan integrity_check result: %w", err)
		}
		if result != "ok" {
			return fmt.Errorf("integrity_check failed: %s", result)
		}
	}

	fkRows, err := db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return fmt.Errorf("failed to run foreign_key_check: %w", err)
	}
	defer fkRows.Close()

	var fkErrors []string
	for fkRows.Next() {
		var table, rowid, parent, fkid string
		if err := fkRows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("failed to scan foreign_key_check result: %w", err)
		}
		fkErrors = append(fkErrors, fmt.Sprintf("table=%s rowid=%s parent=%s fkid=%s", table, rowid, parent, fkid))
	}

	if len(fkErrors) > 0 {
		return fmt.Errorf("foreign_key_check failed: %v", fkErrors)
	}
	return nil
}
