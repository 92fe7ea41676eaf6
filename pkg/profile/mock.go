package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// MockManager implements Manager in memory for testing. StoreErr, when set,
// makes every mutating call fail with "Failed to save store".
type MockManager struct {
	mu       sync.Mutex
	profiles []xtream.ProfileAccount
	StoreErr error
}

// NewMockManager creates a mock manager seeded with profiles
func NewMockManager(profiles ...xtream.ProfileAccount) *MockManager {
	return &MockManager{profiles: append([]xtream.ProfileAccount{}, profiles...)}
}

// Save implements Manager
func (m *MockManager) Save(_ context.Context, p xtream.ProfileAccount) xtream.APIResponse[xtream.Unit] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StoreErr != nil {
		return xtream.Fail[xtream.Unit](Message(NewStoreSaveError(m.StoreErr)))
	}
	m.profiles, _ = upsert(m.profiles, p)
	return xtream.OkUnit()
}

// List implements Manager
func (m *MockManager) List(_ context.Context) xtream.APIResponse[[]xtream.ProfileAccount] {
	m.mu.Lock()
	defer m.mu.Unlock()

	return xtream.Ok(append([]xtream.ProfileAccount{}, m.profiles...))
}

// Delete implements Manager
func (m *MockManager) Delete(_ context.Context, id string) xtream.APIResponse[xtream.Unit] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StoreErr != nil {
		return xtream.Fail[xtream.Unit](Message(NewStoreSaveError(m.StoreErr)))
	}
	kept := make([]xtream.ProfileAccount, 0, len(m.profiles))
	for _, p := range m.profiles {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	m.profiles = kept
	return xtream.OkUnit()
}

// Get implements Manager
func (m *MockManager) Get(_ context.Context, id string) (xtream.ProfileAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return xtream.ProfileAccount{}, NewNotFoundError(id)
}

// Activate implements Manager
func (m *MockManager) Activate(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for i := range m.profiles {
		if m.profiles[i].ID == id {
			found = true
		}
	}
	if !found {
		return NewNotFoundError(id)
	}

	stamp := now.UTC().Format(time.RFC3339)
	for i := range m.profiles {
		m.profiles[i].IsActive = m.profiles[i].ID == id
		if m.profiles[i].IsActive {
			m.profiles[i].LastUsed = xtream.StringPtr(stamp)
		}
	}
	return nil
}

// Export implements Manager. Only JSON is supported by the mock.
func (m *MockManager) Export(_ context.Context, w io.Writer, format Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if format != FormatJSON {
		return NewFormatError(fmt.Sprintf("mock only exports json, got '%s'", format), nil)
	}
	return json.NewEncoder(w).Encode(ExportDocument{Version: ExportVersion, Profiles: m.profiles})
}

// Import implements Manager. Only JSON is supported by the mock.
func (m *MockManager) Import(_ context.Context, r io.Reader, format Format, overwrite bool) (*ImportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if format != FormatJSON {
		return nil, NewFormatError(fmt.Sprintf("mock only imports json, got '%s'", format), nil)
	}

	var doc ExportDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, NewImportError("failed to parse import", err)
	}

	result := &ImportResult{Skipped: make([]string, 0)}
	for _, p := range doc.Profiles {
		exists := false
		for _, cur := range m.profiles {
			if cur.ID == p.ID {
				exists = true
				break
			}
		}
		if exists && !overwrite {
			result.Skipped = append(result.Skipped, p.ID)
			continue
		}
		var replaced bool
		m.profiles, replaced = upsert(m.profiles, p)
		if replaced {
			result.Replaced++
		} else {
			result.Imported++
		}
	}
	return result, nil
}

var _ Manager = (*MockManager)(nil)
