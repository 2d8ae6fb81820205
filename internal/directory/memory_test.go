package directory

import (
	"context"
	"testing"
)

func TestMemoryDirectoryLookup(t *testing.T) {
	d := NewMemoryDirectory(&Credential{
		ID:           "mer_1",
		Email:        "ops@acme.example",
		APIKey:       "pk_test_deadbeef",
		HashedSecret: "abc123",
		Environment:  "sandbox",
		Active:       true,
	})

	credential, err := d.LookupByAPIKey(context.Background(), "pk_test_deadbeef")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if credential.ID != "mer_1" || credential.Environment != "sandbox" {
		t.Errorf("Unexpected credential: %+v", credential)
	}
}

func TestMemoryDirectoryNotFound(t *testing.T) {
	d := NewMemoryDirectory()

	if _, err := d.LookupByAPIKey(context.Background(), "pk_live_missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryDirectoryReturnsCopy(t *testing.T) {
	d := NewMemoryDirectory(&Credential{APIKey: "pk_test_deadbeef", Active: true})

	first, _ := d.LookupByAPIKey(context.Background(), "pk_test_deadbeef")
	first.Active = false

	second, _ := d.LookupByAPIKey(context.Background(), "pk_test_deadbeef")
	if !second.Active {
		t.Error("Lookup results should be copies, not shared records")
	}
}
