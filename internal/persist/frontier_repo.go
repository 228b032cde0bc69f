package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/islands/internal/grid"
)

// FrontierRepo stores the spiral frontier in PostgreSQL, one row per namespace.
type FrontierRepo struct {
	db        *DB
	namespace string
}

func NewFrontierRepo(db *DB, namespace string) *FrontierRepo {
	return &FrontierRepo{db: db, namespace: namespace}
}

// Load returns the stored frontier. ok is false when no row exists yet.
func (r *FrontierRepo) Load(ctx context.Context) (grid.Cell, bool, error) {
	var c grid.Cell
	err := r.db.Pool.QueryRow(ctx,
		`SELECT last_island_x, last_island_z FROM island_frontier WHERE namespace = $1`,
		r.namespace,
	).Scan(&c.X, &c.Z)
	if errors.Is(err, pgx.ErrNoRows) {
		return grid.Cell{}, false, nil
	}
	if err != nil {
		return grid.Cell{}, false, fmt.Errorf("load frontier: %w", err)
	}
	return c, true, nil
}

// Save overwrites the stored frontier.
func (r *FrontierRepo) Save(ctx context.Context, c grid.Cell) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO island_frontier (namespace, last_island_x, last_island_z, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (namespace) DO UPDATE SET
		     last_island_x = EXCLUDED.last_island_x,
		     last_island_z = EXCLUDED.last_island_z,
		     updated_at    = EXCLUDED.updated_at`,
		r.namespace, c.X, c.Z,
	)
	if err != nil {
		return fmt.Errorf("save frontier: %w", err)
	}
	return nil
}

func (r *FrontierRepo) Close() error {
	r.db.Close()
	return nil
}
