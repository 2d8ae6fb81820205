// Package directory provides credential lookup for merchant API keys. The
// admission layer only reads from it; account lifecycle is owned by the
// merchant service.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no credential matches the given API key.
var ErrNotFound = errors.New("credential not found")

// Credential is a merchant's programmatic identity as stored by the
// merchant service. HashedSecret is the HMAC signing key; the raw secret
// never reaches this layer.
type Credential struct {
	ID           string
	Email        string
	APIKey       string
	HashedSecret string
	Environment  string // "sandbox" or "production"
	Active       bool
}

// Directory is the lookup contract required by the request authenticator.
// Implementations must be safe for concurrent use and side-effect-free from
// the caller's perspective.
type Directory interface {
	// LookupByAPIKey returns the credential owning the key, or ErrNotFound.
	LookupByAPIKey(ctx context.Context, apiKey string) (*Credential, error)
}
