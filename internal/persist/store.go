package persist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/islands/internal/config"
	"github.com/l1jgo/islands/internal/grid"
)

// FrontierStore is durable storage for the last spiral frontier cell.
type FrontierStore interface {
	Load(ctx context.Context) (grid.Cell, bool, error)
	Save(ctx context.Context, c grid.Cell) error
	Close() error
}

// OpenFrontierStore opens the backend named in cfg.Frontier.Backend.
func OpenFrontierStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (FrontierStore, error) {
	fc := cfg.Frontier
	switch fc.Backend {
	case config.BackendYAML:
		return NewYAMLStore(fc.FrontierPath(), fc.LegacyPath(), log.Named("frontier")), nil
	case config.BackendSQLite:
		return OpenSQLite(ctx, fc.SQLitePath, fc.Namespace)
	case config.BackendPostgres:
		db, err := NewDB(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := RunMigrations(ctx, db.Pool); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return NewFrontierRepo(db, fc.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown frontier backend %q", fc.Backend)
	}
}
