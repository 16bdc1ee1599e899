package memory

import (
	"context"
	"sync"
)

// KeyValueStore implements repository.KeyValueStore in process memory.
type KeyValueStore struct {
	mu      sync.RWMutex
	entries map[string]string
	failErr error
}

// NewKeyValueStore creates an empty in-memory store.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{entries: make(map[string]string)}
}

// FailWith makes every subsequent operation return err. Pass nil to recover.
func (s *KeyValueStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Get returns the value stored under key.
func (s *KeyValueStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return "", false, s.failErr
	}
	v, ok := s.entries[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *KeyValueStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.entries[key] = value
	return nil
}

// Delete removes key.
func (s *KeyValueStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	delete(s.entries, key)
	return nil
}

// Clear removes every key.
func (s *KeyValueStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	clear(s.entries)
	return nil
}

// Ping reports the injected failure, if any.
func (s *KeyValueStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failErr
}

// Len returns the number of stored keys.
func (s *KeyValueStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
