package cache

import (
	"context"

	"github.com/matzehuels/shakify/pkg/result"
)

// NullStore is a no-op store that never keeps anything.
// Used when caching is disabled with --no-cache.
type NullStore struct{}

// NewNullStore creates a null store.
func NewNullStore() Store {
	return NullStore{}
}

// Load always returns an empty document.
func (NullStore) Load(ctx context.Context) (result.Document, error) {
	return result.Document{}, nil
}

// Save does nothing.
func (NullStore) Save(ctx context.Context, doc result.Document) error { return nil }

// Clear reports that nothing was stored.
func (NullStore) Clear(ctx context.Context) (bool, error) { return false, nil }

// Location returns "none".
func (NullStore) Location() string { return "none" }

// Close does nothing.
func (NullStore) Close() error { return nil }

var _ Store = NullStore{}
