package migration

import (
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrateCreatesTables(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(conn))

	for _, table := range []string{"users", "auth_tokens", "customers", "orders", "notifications"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.True(t, conn.Migrator().HasIndex("orders", "idx_orders_slug"))
	assert.True(t, conn.Migrator().HasIndex("customers", "idx_customers_code"))
}

func TestAutoMigrateRequiresHandle(t *testing.T) {
	assert.Error(t, AutoMigrate(nil))
	assert.Error(t, RunMigrations(nil))
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	sub, err := Source()
	require.NoError(t, err)

	ups, err := fs.Glob(sub, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(sub, "*.down.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))

	driver, err := iofs.New(sub, ".")
	require.NoError(t, err)
	first, err := driver.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
}
