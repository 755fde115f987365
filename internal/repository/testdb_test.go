package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/terraconstructs/taskgate/internal/db/bunx"
	"github.com/terraconstructs/taskgate/internal/migrations"
)

// setupTestDB opens a private in-memory SQLite database with all migrations applied.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	db, err := bunx.NewDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)
	return db
}
