package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/builtingen/internal/testutil"
)

// createTestStore creates a new store in a temp dir with fixed import IDs.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewFixedIDGenerator(ids...)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
