package cache

import (
	"context"
	"sync"

	"github.com/apimgr/idealista/src/model"
)

// MemoryStore keeps the token in process memory. Used by tests and as a
// no-persistence backend.
type MemoryStore struct {
	mu    sync.Mutex
	token *model.CachedToken
}

// NewMemoryStore creates an in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored token, or nil when none is set.
func (s *MemoryStore) Get(ctx context.Context) (*model.CachedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, nil
	}
	copied := *s.token
	return &copied, nil
}

// Put replaces the stored token.
func (s *MemoryStore) Put(ctx context.Context, token model.CachedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &token
	return nil
}

// Clear removes the stored token.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}
