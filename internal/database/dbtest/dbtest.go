// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"eshop/internal/database"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Open returns a migrated in-memory database private to t. The database uses
// a single connection so every query sees the same memory image.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name), zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Seed opens a database like Open and loads the built-in catalog.
func Seed(t testing.TB) *gorm.DB {
	t.Helper()

	db := Open(t)
	products, err := database.LoadCatalog("")
	require.NoError(t, err)
	for i := range products {
		require.NoError(t, db.Create(&products[i]).Error)
	}
	return db
}
