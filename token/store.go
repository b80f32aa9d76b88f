package token

import "sync"

// Store holds the access credential of the running process.
// It is never persisted; validity is discovered from the next response, not from a clock.
type Store interface {
	// Get returns the current token and whether one is present
	Get() (string, bool)
	// Set replaces the current token. An empty token clears the store.
	Set(token string)
	// Clear drops the token (log out / invalidate)
	Clear()
}

// MemoryStore is a mutex-guarded Store cell
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *MemoryStore) Clear() {
	s.Set("")
}
