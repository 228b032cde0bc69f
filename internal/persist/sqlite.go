package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/l1jgo/islands/internal/grid"
)

// SQLiteStore keeps the frontier in an embedded sqlite database for
// deployments without PostgreSQL.
type SQLiteStore struct {
	db        *sql.DB
	namespace string
}

func OpenSQLite(ctx context.Context, path, namespace string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer; the frontier is a single hot row
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	if err := runMigrations(ctx, db, "sqlite3"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, namespace: namespace}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (grid.Cell, bool, error) {
	var c grid.Cell
	err := s.db.QueryRowContext(ctx,
		`SELECT last_island_x, last_island_z FROM island_frontier WHERE namespace = ?`,
		s.namespace,
	).Scan(&c.X, &c.Z)
	if errors.Is(err, sql.ErrNoRows) {
		return grid.Cell{}, false, nil
	}
	if err != nil {
		return grid.Cell{}, false, fmt.Errorf("load frontier: %w", err)
	}
	return c, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, c grid.Cell) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO island_frontier (namespace, last_island_x, last_island_z, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (namespace) DO UPDATE SET
		     last_island_x = excluded.last_island_x,
		     last_island_z = excluded.last_island_z,
		     updated_at    = excluded.updated_at`,
		s.namespace, c.X, c.Z,
	)
	if err != nil {
		return fmt.Errorf("save frontier: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
