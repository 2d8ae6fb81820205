package directory

import (
	"context"
	"sync"
)

// MemoryDirectory is an in-process credential store, used in development
// and tests.
type MemoryDirectory struct {
	mu          sync.RWMutex
	credentials map[string]*Credential
}

// NewMemoryDirectory creates a directory preloaded with the given
// credentials.
func NewMemoryDirectory(credentials ...*Credential) *MemoryDirectory {
	d := &MemoryDirectory{credentials: make(map[string]*Credential)}
	for _, credential := range credentials {
		d.credentials[credential.APIKey] = credential
	}
	return d
}

// Add registers or replaces a credential.
func (d *MemoryDirectory) Add(credential *Credential) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.credentials[credential.APIKey] = credential
}

// LookupByAPIKey implements Directory.
func (d *MemoryDirectory) LookupByAPIKey(_ context.Context, apiKey string) (*Credential, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	credential, exists := d.credentials[apiKey]
	if !exists {
		return nil, ErrNotFound
	}

	// Copy so callers cannot mutate the stored record.
	copied := *credential
	return &copied, nil
}
