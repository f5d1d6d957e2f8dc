// Package testutil provides test utilities for the claimflow project.
package testutil

import (
	"context"
	"testing"

	"github.com/clearhealth/claimflow/internal/model"
	"github.com/clearhealth/claimflow/internal/storage"
)

// TestDB wraps an in-memory, fully migrated storage instance.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates an in-memory test database. It automatically handles
// migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SetupSeededTestDB creates a test database pre-loaded with the canonical
// insurers.
func SetupSeededTestDB(t *testing.T) *TestDB {
	t.Helper()

	db := SetupTestDB(t)
	if err := db.Storage.SeedDefaultInsurers(context.Background()); err != nil {
		t.Fatalf("failed to seed insurers: %v", err)
	}
	return db
}

// MustSaveInsurer stores an insurer or fails the test.
func (db *TestDB) MustSaveInsurer(insurer *model.Insurer) {
	db.t.Helper()
	if err := db.Storage.SaveInsurer(context.Background(), insurer); err != nil {
		db.t.Fatalf("failed to save insurer %s: %v", insurer.Code, err)
	}
}

// MustSaveClaim stores a claim or fails the test.
func (db *TestDB) MustSaveClaim(claim *model.Claim) {
	db.t.Helper()
	if err := db.Storage.SaveClaim(context.Background(), claim); err != nil {
		db.t.Fatalf("failed to save claim %s: %v", claim.ID, err)
	}
}
