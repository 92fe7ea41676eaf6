package relay

import (
	"context"
	"sync"

	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// MockCall records one invocation of MockRequester.Relay
type MockCall struct {
	URL    string
	Params map[string]string
}

// MockRequester implements Requester for testing
type MockRequester struct {
	mu       sync.Mutex
	calls    []MockCall
	Response xtream.APIResponse[xtream.Value]
}

// NewMockRequester creates a mock that answers every call with resp
func NewMockRequester(resp xtream.APIResponse[xtream.Value]) *MockRequester {
	return &MockRequester{Response: resp}
}

// Relay records the call and returns the configured response
func (m *MockRequester) Relay(ctx context.Context, rawURL string, params map[string]string) xtream.APIResponse[xtream.Value] {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	m.calls = append(m.calls, MockCall{URL: rawURL, Params: copied})
	return m.Response
}

// Calls returns the recorded invocations in order
func (m *MockRequester) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}
