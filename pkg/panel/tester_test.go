package panel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chambrid/xtream-desk/pkg/relay"
	"github.com/chambrid/xtream-desk/pkg/xtream"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"http://host", "http://host/player_api.php"},
		{"http://host/", "http://host/player_api.php"},
		{"http://host///", "http://host/player_api.php"},
		{"http://host/player_api.php", "http://host/player_api.php"},
		{"http://host:8080/sub", "http://host:8080/sub/player_api.php"},
		{"", "/player_api.php"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeURL(tt.in)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, NormalizeURL(got), "normalization must be idempotent")
		})
	}
}

func TestTester_DelegatesShapedRequest(t *testing.T) {
	expected := xtream.Ok(xtream.Object(xtream.Member{Key: "user_info", Value: xtream.Object()}))
	mock := relay.NewMockRequester(expected)
	tester := NewTester(mock, logr.Discard())

	resp := tester.TestConnection(context.Background(), xtream.XtreamConfig{
		URL:      "http://panel.example",
		Username: "u",
		Password: "p",
	})

	assert.Equal(t, expected, resp)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "http://panel.example/player_api.php", calls[0].URL)
	assert.Equal(t, map[string]string{
		"username": "u",
		"password": "p",
		"action":   "get_profile",
	}, calls[0].Params)
}

func TestTester_ReturnsRelayFailureUnchanged(t *testing.T) {
	expected := xtream.Fail[xtream.Value]("HTTP error: 401 Unauthorized")
	tester := NewTester(relay.NewMockRequester(expected), logr.Discard())

	resp := tester.TestConnection(context.Background(), xtream.XtreamConfig{URL: "http://panel.example/player_api.php"})
	assert.Equal(t, expected, resp)
}

func TestTester_AgainstPanel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != APIPath {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("username") != "u" || q.Get("password") != "p" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"user_info":{"username":"u","auth":1,"status":"Active","exp_date":"1767225600","max_connections":"2","active_cons":0},"server_info":{"url":"panel.example","port":"8080","timezone":"UTC"}}`))
	}))
	defer server.Close()

	tester := NewTester(relay.New(logr.Discard()), logr.Discard())

	resp := tester.TestConnection(context.Background(), xtream.XtreamConfig{URL: server.URL + "/", Username: "u", Password: "p"})
	require.True(t, resp.Success, resp.ErrorMessage())

	info, err := ParseAccountInfo(*resp.Data)
	require.NoError(t, err)
	assert.Equal(t, &AccountInfo{
		Username:       "u",
		Status:         "Active",
		Authenticated:  true,
		ExpiresAt:      "1767225600",
		MaxConnections: "2",
		ActiveCons:     "0",
		ServerURL:      "panel.example",
		ServerPort:     "8080",
		Timezone:       "UTC",
	}, info)

	resp = tester.TestConnection(context.Background(), xtream.XtreamConfig{URL: server.URL, Username: "u", Password: "wrong"})
	assert.False(t, resp.Success)
	assert.Equal(t, "HTTP error: 401 Unauthorized", resp.ErrorMessage())
}

func TestParseAccountInfo_MissingUserInfo(t *testing.T) {
	_, err := ParseAccountInfo(xtream.Array())
	assert.Error(t, err)

	info, err := ParseAccountInfo(xtream.Object(xtream.Member{
		Key:   "user_info",
		Value: xtream.Object(xtream.Member{Key: "auth", Value: xtream.Number("0")}),
	}))
	require.NoError(t, err)
	assert.False(t, info.Authenticated)
	assert.Empty(t, info.ServerURL)
}
