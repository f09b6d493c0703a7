package storage

import (
	"context"
	"sync"

	"ledger/internal/core"
)

// MemoryStore keeps the document in process memory. Nothing survives a
// restart.
type MemoryStore struct {
	mu    sync.Mutex
	doc   core.Document
	saves int
}

// NewMemoryStore returns a store seeded with doc; nil seeds nothing and Load
// returns the default document.
func NewMemoryStore(doc core.Document) *MemoryStore {
	s := &MemoryStore{}
	if doc != nil {
		s.doc = doc.Clone()
	}
	return s
}

func (s *MemoryStore) Load(_ context.Context) core.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return core.DefaultDocument()
	}
	return s.doc.Clone()
}

func (s *MemoryStore) Save(_ context.Context, doc core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
	s.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
