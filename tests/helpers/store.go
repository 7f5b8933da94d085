// Package helpers provides shared test fixtures.
package helpers

import (
	"testing"

	"github.com/everyshare/tripbot/store"
)

// NewTestHistory creates an in-memory history store, closed with the test.
func NewTestHistory(t *testing.T) *store.SQLiteHistory {
	t.Helper()

	h, err := store.NewSQLiteHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite history: %v", err)
	}

	t.Cleanup(func() {
		_ = h.Close()
	})

	return h
}
