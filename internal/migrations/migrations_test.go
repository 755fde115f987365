package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/terraconstructs/taskgate/internal/db/bunx"
)

func TestMigrations_UpAndDown(t *testing.T) {
	ctx := context.Background()
	db, err := bunx.NewDB(ctx, ":memory:")
	require.NoError(t, err)
	defer bunx.Close(db)
	assert.True(t, IsSQLite(db))
	assert.False(t, IsPostgreSQL(db))

	migrator := migrate.NewMigrator(db, Migrations)
	require.NoError(t, migrator.Init(ctx))

	group, err := migrator.Migrate(ctx)
	require.NoError(t, err)
	assert.Len(t, group.Migrations, 2)

	for _, table := range []string{"users", "tasks", "submissions"} {
		var n int
		err := db.NewSelect().TableExpr(table).ColumnExpr("count(*)").Scan(ctx, &n)
		require.NoError(t, err, table)
	}

	_, err = migrator.Rollback(ctx)
	require.NoError(t, err)

	var n int
	err = db.NewSelect().TableExpr("users").ColumnExpr("count(*)").Scan(ctx, &n)
	assert.Error(t, err, "users table dropped")
}
