package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/nqm/internal/store"
)

// NewStore opens a registry in a temporary directory, closed at cleanup.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "named_queries.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
