// Package testing provides testing utilities and helpers for the trendtrack project.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/trendtrack/internal/database"
)

// NewTestDB opens a file-backed database in a per-test temporary directory
// and applies its embedded schema. Supported names are "config" and "cache";
// other names get an empty database. The database is closed on test cleanup.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	profile := database.ProfileStandard
	switch name {
	case "config":
		profile = database.ProfileDurable
	case "cache":
		profile = database.ProfileCache
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db
}
