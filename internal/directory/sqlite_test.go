package directory

import (
	"context"
	"testing"
)

func newTestSQLiteDirectory(t *testing.T) *SQLiteDirectory {
	t.Helper()

	d, err := NewSQLiteDirectory(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory directory: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestSQLiteDirectoryRoundTrip(t *testing.T) {
	d := newTestSQLiteDirectory(t)
	ctx := context.Background()

	stored := &Credential{
		ID:           "mer_1",
		Email:        "ops@acme.example",
		APIKey:       "pk_live_cafe01",
		HashedSecret: "supersecret",
		Environment:  "production",
		Active:       true,
	}
	if err := d.Insert(ctx, stored); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	credential, err := d.LookupByAPIKey(ctx, "pk_live_cafe01")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if *credential != *stored {
		t.Errorf("Round trip mismatch: got %+v, want %+v", credential, stored)
	}
}

func TestSQLiteDirectoryNotFound(t *testing.T) {
	d := newTestSQLiteDirectory(t)

	if _, err := d.LookupByAPIKey(context.Background(), "pk_test_missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteDirectoryRejectsDuplicateKeys(t *testing.T) {
	d := newTestSQLiteDirectory(t)
	ctx := context.Background()

	credential := &Credential{ID: "mer_1", Email: "a@b.c", APIKey: "pk_test_dup",
		HashedSecret: "s", Environment: "sandbox", Active: true}
	if err := d.Insert(ctx, credential); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	credential.ID = "mer_2"
	if err := d.Insert(ctx, credential); err == nil {
		t.Error("Duplicate API key should be rejected")
	}
}
