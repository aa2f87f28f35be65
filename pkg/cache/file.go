package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/shakify/pkg/result"
)

// FileStore keeps the document in a single JSON file.
//
// Saves write a temporary file in the same directory, sync it and rename it
// over the target. The mutex serializes access within one process; across
// processes the last rename wins.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore backed by path. The file is created on
// the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the document. A missing or corrupt file yields an empty
// document and no error.
func (s *FileStore) Load(ctx context.Context) (result.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return result.Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data), nil
}

// Save writes doc as indented JSON with sorted keys.
func (s *FileStore) Save(ctx context.Context, doc result.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// Clear removes the file.
func (s *FileStore) Clear(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Location returns the file path.
func (s *FileStore) Location() string { return s.path }

// Close does nothing for the file store.
func (s *FileStore) Close() error { return nil }

// encode renders doc the way every backend stores it: two-space indent,
// keys sorted by encoding/json.
func encode(doc result.Document) ([]byte, error) {
	if doc == nil {
		doc = result.Document{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return data, nil
}

// decode parses a stored document, treating anything unreadable as empty.
func decode(data []byte) result.Document {
	if len(bytes.TrimSpace(data)) == 0 {
		return result.Document{}
	}
	var doc result.Document
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return result.Document{}
	}
	for k, v := range doc {
		if v == nil {
			delete(doc, k)
		}
	}
	return doc
}

var _ Store = (*FileStore)(nil)
