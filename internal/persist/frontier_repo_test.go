package persist

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/islands/internal/config"
	"github.com/l1jgo/islands/internal/grid"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("ISLANDS_TEST_DSN")
	if dsn == "" {
		t.Skip("ISLANDS_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{
		DSN:             dsn,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, db.Pool))
	return db
}

func TestFrontierRepo_Upsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ns := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM island_frontier WHERE namespace = $1`, ns)
		db.Close()
	})

	repo := NewFrontierRepo(db, ns)
	_, ok, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, grid.Cell{X: 110, Z: -220}))
	require.NoError(t, repo.Save(ctx, grid.Cell{X: -330, Z: 440}))

	c, ok, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, grid.Cell{X: -330, Z: 440}, c)

	var rows int
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM island_frontier WHERE namespace = $1`, ns).Scan(&rows))
	assert.Equal(t, 1, rows)

	other := NewFrontierRepo(db, ns+"-other")
	_, ok, err = other.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
