// Package storetest opens throwaway sqlite stores for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/catalogbot/core/database"
	"github.com/m3rciful/catalogbot/internal/store"
	"github.com/m3rciful/catalogbot/migrations"
)

// New returns a migrated, seeded store in a temp directory. It is closed
// when the test ends.
func New(t testing.TB) *store.Store {
	t.Helper()
	cfg := coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "catalog.db")}
	require.NoError(t, cfg.Normalize())

	open := store.MigratingOpener(migrations.FS)
	db, err := open(cfg)
	require.NoError(t, err)
	require.NoError(t, store.SeedDefaults(context.Background(), db))

	s := store.New(db, cfg, open)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
