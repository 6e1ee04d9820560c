package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gpm-project/gpm/internal/process"
)

// SQLiteStore keeps the saved spec set in a local SQLite database. This is
// the default backend: a single file under the daemon's data directory.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. An empty path
// yields an in-memory database, which is what the tests use.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite behaves best with a single writer connection.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS gpm_specs (
			name TEXT PRIMARY KEY,
			spec TEXT NOT NULL,
			saved_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveSpecs replaces the entire saved set in one transaction.
func (s *SQLiteStore) SaveSpecs(ctx context.Context, specs []process.Spec) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM gpm_specs`); err != nil {
		return fmt.Errorf("clear saved specs: %w", err)
	}
	now := time.Now().UTC()
	for _, spec := range specs {
		raw, err := json.Marshal(spec)
		if err != nil {
			return fmt.Errorf("encode spec %s: %w", spec.Name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO gpm_specs (name, spec, saved_at) VALUES (?, ?, ?)`,
			spec.Name, string(raw), now)
		if err != nil {
			return fmt.Errorf("insert spec %s: %w", spec.Name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSpecs(ctx context.Context) ([]process.Spec, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, spec FROM gpm_specs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query saved specs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var specs []process.Spec
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("scan saved spec: %w", err)
		}
		var spec process.Spec
		if err := json.Unmarshal([]byte(raw), &spec); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
		}
		if spec.Name == "" || spec.Command == "" {
			return nil, fmt.Errorf("%w: %s: missing name or command", ErrCorrupt, name)
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
