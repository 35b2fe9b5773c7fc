package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/minq/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// loadTestStore creates a store holding sc.
func loadTestStore(t *testing.T, sc *ir.Scene) *Store {
	t.Helper()
	s := createTestStore(t)
	if err := s.LoadScene(context.Background(), sc); err != nil {
		t.Fatalf("LoadScene() failed: %v", err)
	}
	return s
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
