// Package contentstore persists uploaded files once per distinct content,
// keyed by SHA-256 digest, with reference counting for garbage collection.
package contentstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/trunov/converthub/internal/entities"
)

type Store struct {
	mu      sync.Mutex
	dir     string
	entries map[string]*entities.ContentEntry
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}
	return &Store{
		dir:     dir,
		entries: make(map[string]*entities.ContentEntry),
	}, nil
}

// Put stores data under its SHA-256 digest and returns the digest. Identical
// bytes are stored exactly once: a second Put with the same content discards
// the new copy and reuses the existing entry. The backing file is written to
// a temp name and renamed into place, so concurrent Puts of the same content
// never leave a partial or duplicate file.
func (s *Store) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	_, exists := s.entries[hash]
	s.mu.Unlock()
	if exists {
		return hash, nil
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	path := filepath.Join(s.dir, hash)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[hash]; exists {
		// Lost the race to an identical upload.
		os.Remove(tmp.Name())
		return hash, nil
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename into place: %w", err)
	}
	s.entries[hash] = &entities.ContentEntry{
		Hash:      hash,
		Path:      path,
		Size:      int64(len(data)),
		RefCount:  0,
		CreatedAt: time.Now(),
	}
	return hash, nil
}

// Acquire increments the entry's reference count and returns its path.
func (s *Store) Acquire(hash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return "", fmt.Errorf("content %s: %w", hash, entities.ErrNotFound)
	}
	e.RefCount++
	return e.Path, nil
}

// Release decrements the entry's reference count. An entry at zero becomes
// eligible for removal by the next cleanup pass; it is not deleted here.
func (s *Store) Release(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return fmt.Errorf("content %s: %w", hash, entities.ErrNotFound)
	}
	if e.RefCount > 0 {
		e.RefCount--
	}
	return nil
}

// Entry returns a copy of the entry for the given hash.
func (s *Store) Entry(hash string) (entities.ContentEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return entities.ContentEntry{}, fmt.Errorf("content %s: %w", hash, entities.ErrNotFound)
	}
	return *e, nil
}

func (s *Store) Stats() entities.ContentStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := entities.ContentStats{EntryCount: len(s.entries)}
	for _, e := range s.entries {
		st.TotalBytes += e.Size
		st.TotalRefs += e.RefCount
	}
	return st
}

// RemoveUnreferenced deletes every entry whose reference count is zero,
// along with its backing file. It holds the same lock as Acquire/Release,
// so an entry re-acquired during the scan is never deleted.
func (s *Store) RemoveUnreferenced() entities.CleanupResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res entities.CleanupResult
	for hash, e := range s.entries {
		if e.RefCount != 0 {
			continue
		}
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			continue
		}
		delete(s.entries, hash)
		res.EntriesRemoved++
		res.BytesFreed += e.Size
	}
	return res
}
