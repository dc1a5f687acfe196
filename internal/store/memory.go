package store

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when no snapshot document has been saved yet.
	ErrNotFound = errors.New("no snapshot document stored")
)

// MemoryStore is a concurrency-safe in-memory snapshot store. It keeps only
// the latest document.
type MemoryStore struct {
	mu  sync.RWMutex
	doc []byte

	saves int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save replaces the stored document.
func (s *MemoryStore) Save(_ context.Context, document []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = append([]byte(nil), document...)
	s.saves++
	return nil
}

// Load returns a copy of the stored document.
func (s *MemoryStore) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.doc == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), s.doc...), nil
}

// Saves returns how many times the document has been written.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
