package storage

import (
	"sort"
	"sync"
)

// Store defines the interface for key-value storage on one node.
type Store interface {
	// Get retrieves a value by key. ok is false if the key is absent.
	Get(key string) (value []byte, ok bool)
	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte)
	// Delete removes a key and reports whether it existed.
	Delete(key string) bool
	// Len returns the number of stored keys.
	Len() int
	// Keys returns all stored keys in sorted order.
	Keys() []string
}

// InMemoryStore is an in-memory implementation of Store.
// It's thread-safe.
type InMemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	nodeID string
}

// NewInMemoryStore creates a new in-memory store for nodeID.
func NewInMemoryStore(nodeID string) *InMemoryStore {
	return &InMemoryStore{
		data:   make(map[string][]byte),
		nodeID: nodeID,
	}
}

// NodeID returns the node this store belongs to.
func (s *InMemoryStore) NodeID() string {
	return s.nodeID
}

// Get retrieves a value by key.
func (s *InMemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false
	}
	// Return a copy to avoid external modifications
	return append([]byte(nil), v...), true
}

// Put stores a value.
func (s *InMemoryStore) Put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
}

// Delete removes a key.
func (s *InMemoryStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return false
	}
	delete(s.data, key)
	return true
}

// Len returns the number of stored keys.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns all stored keys in sorted order.
func (s *InMemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
