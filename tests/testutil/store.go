package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nhle/inbox-calendar/internal/store"
)

// NewTestStore creates a SQLiteStore backed by a file in the test's
// temporary directory, with all migrations applied. A file keeps the
// database shared across pooled connections, which ":memory:" does
// not. The store is closed when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
