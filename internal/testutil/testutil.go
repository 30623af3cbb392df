// Package testutil provides shared test helpers for setting up board databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/vantage/internal/graph"
)

// TestDB creates a temporary SQLite board database that is automatically cleaned up.
func TestDB(t *testing.T) *graph.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vantage-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := graph.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
