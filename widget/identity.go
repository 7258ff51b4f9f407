package widget

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// IdentityStore persists the durable anonymous guest identifier, keyed per
// widget id so one client can hold distinct identities for multiple widgets.
// Get is synchronous and side-effect-free; an absent identity routes the
// caller to the intake flow. Identities are created once and never expire.
type IdentityStore interface {
	Get(widgetID string) (string, bool)
	Set(widgetID, guestID string) error
}

// MemoryIdentityStore keeps identities for the lifetime of the process.
type MemoryIdentityStore struct {
	mu     sync.RWMutex
	guests map[string]string
}

func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{guests: make(map[string]string)}
}

func (s *MemoryIdentityStore) Get(widgetID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	guestID, ok := s.guests[widgetID]
	return guestID, ok
}

func (s *MemoryIdentityStore) Set(widgetID, guestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guests[widgetID] = guestID
	return nil
}

// FileIdentityStore persists identities to a single JSON file, the local
// analog of the browser storage the embedded frame writes to. Identities
// survive process restarts the way browser storage survives page reloads.
type FileIdentityStore struct {
	mu     sync.Mutex
	path   string
	guests map[string]string
}

// NewFileIdentityStore opens (or creates) the store at path.
func NewFileIdentityStore(path string) (*FileIdentityStore, error) {
	store := &FileIdentityStore{
		path:   path,
		guests: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("failed to read identity store: %w", err)
	}
	if err := json.Unmarshal(data, &store.guests); err != nil {
		return nil, fmt.Errorf("failed to parse identity store: %w", err)
	}

	return store, nil
}

func (s *FileIdentityStore) Get(widgetID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guestID, ok := s.guests[widgetID]
	return guestID, ok
}

func (s *FileIdentityStore) Set(widgetID, guestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guests[widgetID] = guestID

	data, err := json.MarshalIndent(s.guests, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode identity store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write identity store: %w", err)
	}
	return nil
}
