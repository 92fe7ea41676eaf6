package docstore

import (
	"encoding/json"
	"sync"
)

// MockOpener implements Opener in memory for testing. OpenErr and SaveErr
// inject failures into every subsequent Open or Save.
type MockOpener struct {
	mu      sync.Mutex
	stores  map[string]*MockStore
	OpenErr error
	SaveErr error
}

// NewMockOpener creates an empty mock opener
func NewMockOpener() *MockOpener {
	return &MockOpener{stores: make(map[string]*MockStore)}
}

// Open implements Opener. Like the real backends, it drops staged values
// that were never saved.
func (m *MockOpener) Open(name string) (Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	store := m.storeLocked(name)
	store.reset()
	return store, nil
}

// Store returns the named store, creating it when absent, so tests can seed
// or inspect persisted state
func (m *MockOpener) Store(name string) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storeLocked(name)
}

func (m *MockOpener) storeLocked(name string) *MockStore {
	store, ok := m.stores[name]
	if !ok {
		store = &MockStore{
			opener:  m,
			staged:  make(map[string]json.RawMessage),
			durable: make(map[string]json.RawMessage),
		}
		m.stores[name] = store
	}
	return store
}

// MockStore keeps staged and durable values apart so tests can tell whether
// a write was flushed
type MockStore struct {
	opener *MockOpener

	mu        sync.Mutex
	staged    map[string]json.RawMessage
	durable   map[string]json.RawMessage
	saveCount int
}

// Get implements Store
func (s *MockStore) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.staged[key]
	return cloneRaw(raw), ok
}

// Set implements Store
func (s *MockStore) Set(key string, value json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged[key] = cloneRaw(value)
}

func (s *MockStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = make(map[string]json.RawMessage, len(s.durable))
	for k, v := range s.durable {
		s.staged[k] = cloneRaw(v)
	}
}

// Save implements Store
func (s *MockStore) Save() error {
	s.opener.mu.Lock()
	saveErr := s.opener.SaveErr
	s.opener.mu.Unlock()

	if saveErr != nil {
		return saveErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range s.staged {
		s.durable[k] = cloneRaw(v)
	}
	s.saveCount++
	return nil
}

// Seed sets a durable value directly, as if written by an earlier run
func (s *MockStore) Seed(key string, value json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged[key] = cloneRaw(value)
	s.durable[key] = cloneRaw(value)
}

// Durable returns the last flushed value of key
func (s *MockStore) Durable(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.durable[key]
	return cloneRaw(raw), ok
}

// SaveCount reports how many times Save succeeded
func (s *MockStore) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount
}
