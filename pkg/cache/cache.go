// Package cache persists analysis results across invocations.
//
// All results live in one [result.Document] keyed by name@version. A [Store]
// loads and saves that document as a whole: a save replaces the previous
// document atomically, so readers observe either the old or the new document
// and never a partial write.
//
// # Backends
//
//   - [FileStore]: pretty-printed JSON file, default for CLI usage
//   - [RedisStore]: one Redis string key, for shared server deployments
//   - [MongoStore]: one MongoDB document, for shared server deployments
//   - [NullStore]: stores nothing (--no-cache)
//
// [Open] picks a backend from a URL:
//
//	store, err := cache.Open(ctx, "")                        // default file
//	store, err := cache.Open(ctx, "redis://localhost:6379/0")
//	store, err := cache.Open(ctx, "mongodb://localhost:27017")
//	defer store.Close()
//
// A missing or unreadable document loads as empty; callers treat that as a
// cache miss. Keys are compared by exact string equality, so 1.0.0 and
// ^1.0.0 are unrelated entries.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/shakify/pkg/result"
)

// DefaultFileName is the name of the cache document in the temp directory.
const DefaultFileName = "shakify-cli-cache.json"

// Store loads and replaces the result document.
type Store interface {
	// Load returns the stored document, or an empty one when nothing is
	// stored or the stored data cannot be decoded.
	Load(ctx context.Context) (result.Document, error)

	// Save replaces the stored document with doc.
	Save(ctx context.Context, doc result.Document) error

	// Clear deletes the stored document and reports whether one existed.
	Clear(ctx context.Context) (bool, error)

	// Location describes where the document lives, for display.
	Location() string

	// Close releases backend connections.
	Close() error
}

// DefaultPath returns the default file location of the cache document.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), DefaultFileName)
}

// Open returns the Store described by url.
//
//   - "" : [FileStore] at [DefaultPath]
//   - "none": [NullStore]
//   - "file:///path" or a plain path: [FileStore]
//   - "redis://", "rediss://": [RedisStore]
//   - "mongodb://", "mongodb+srv://": [MongoStore]
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case url == "":
		return NewFileStore(DefaultPath()), nil
	case url == "none":
		return NewNullStore(), nil
	case strings.HasPrefix(url, "file://"):
		return NewFileStore(strings.TrimPrefix(url, "file://")), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return NewRedisStore(ctx, url, "")
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return NewMongoStore(ctx, url, MongoOptions{})
	case strings.Contains(url, "://"):
		return nil, fmt.Errorf("unsupported cache url scheme: %s", url)
	default:
		return NewFileStore(url), nil
	}
}

// Get loads the document and returns the entry for key, if any.
func Get(ctx context.Context, s Store, key string) (*result.Result, bool, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	r, ok := doc[key]
	if !ok || r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Put re-loads the current document, sets key and saves it. Re-loading
// right before the write keeps entries other processes saved meanwhile.
func Put(ctx context.Context, s Store, key string, r *result.Result) error {
	doc, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if doc == nil {
		doc = result.Document{}
	}
	doc[key] = r
	return s.Save(ctx, doc)
}

// Backend returns a short name for the store's substrate, for logs and
// metrics labels.
func Backend(s Store) string {
	switch s.(type) {
	case *FileStore:
		return "file"
	case *RedisStore:
		return "redis"
	case *MongoStore:
		return "mongo"
	case NullStore, *NullStore:
		return "none"
	default:
		return "custom"
	}
}
