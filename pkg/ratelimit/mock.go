package ratelimit

import (
	"context"
	"net/http"
	"sync"
)

// MockRateLimiter provides a mock implementation for testing
type MockRateLimiter struct {
	// Function stubs for customizing behavior in tests
	WaitFunc           func(ctx context.Context) error
	HandleResponseFunc func(response *http.Response) error
	AcquireSlotFunc    func(ctx context.Context) error

	mu sync.Mutex

	// Call tracking for verification in tests
	WaitCalls           int
	HandleResponseCalls []int
	AcquireSlotCalls    int
	ReleaseSlotCalls    int
}

// NewMockRateLimiter creates a new mock rate limiter that never blocks
func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{}
}

// Wait implements RateLimiter interface
func (m *MockRateLimiter) Wait(ctx context.Context) error {
	m.mu.Lock()
	m.WaitCalls++
	fn := m.WaitFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// HandleResponse implements RateLimiter interface. Only the status code is
// recorded, since the body belongs to the caller.
func (m *MockRateLimiter) HandleResponse(response *http.Response) error {
	m.mu.Lock()
	m.HandleResponseCalls = append(m.HandleResponseCalls, response.StatusCode)
	fn := m.HandleResponseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(response)
	}
	return nil
}

// AcquireSlot implements RateLimiter interface
func (m *MockRateLimiter) AcquireSlot(ctx context.Context) error {
	m.mu.Lock()
	m.AcquireSlotCalls++
	fn := m.AcquireSlotFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// ReleaseSlot implements RateLimiter interface
func (m *MockRateLimiter) ReleaseSlot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseSlotCalls++
}

// Counts returns a consistent snapshot of the wait, acquire and release counters
func (m *MockRateLimiter) Counts() (waits, acquires, releases int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.WaitCalls, m.AcquireSlotCalls, m.ReleaseSlotCalls
}

var _ RateLimiter = (*MockRateLimiter)(nil)
var _ RateLimiter = (*PanelRateLimiter)(nil)
