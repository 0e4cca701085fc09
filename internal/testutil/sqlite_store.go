package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/fredsystems/zabbid/internal/persistence"
	"github.com/fredsystems/zabbid/internal/persistence/sqlitestore"
)

// OpenSQLiteStore opens a persistence.Store backed by a fresh sqlite file
// under t.TempDir, migrated to the latest schema. Each test gets its own
// file, so no isolation ceremony is required beyond TempDir's own cleanup.
func OpenSQLiteStore(t *testing.T, prefix string) *persistence.Store {
	t.Helper()

	name := fmt.Sprintf("%s_%s.db", prefix, uuid.NewString())
	path := filepath.Join(t.TempDir(), name)

	store, err := sqlitestore.Open(path)
	if err != nil {
		t.Fatalf("open sqlite test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}
