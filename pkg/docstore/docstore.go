// Package docstore provides named, durable key-value stores holding JSON
// documents. A store is addressed by a file name such as "profiles.json";
// values are staged with Set and become durable only after Save.
package docstore

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Store is one named document store
type Store interface {
	// Get returns the raw JSON stored under key
	Get(key string) (json.RawMessage, bool)

	// Set stages value under key; it is not durable until Save
	Set(key string, value json.RawMessage)

	// Save flushes every staged value to durable storage
	Save() error
}

// Opener opens stores by name. Implementations may hand out the same Store
// for repeated opens of one name.
type Opener interface {
	Open(name string) (Store, error)
}

// ValidateName rejects names that are empty or would escape the data directory
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("store name cannot be empty")
	}
	if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("store name %q must be a plain file name", name)
	}
	return nil
}

// KeyedMutex hands out one mutex per store name so read-modify-write cycles
// on the same store never interleave
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock blocks until name is free and returns the matching unlock func
func (k *KeyedMutex) Lock(name string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[name]
	if !ok {
		l = &sync.Mutex{}
		k.locks[name] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// cloneRaw copies a document so callers cannot alias store memory
func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
