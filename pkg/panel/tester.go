// Package panel knows the one piece of Xtream-Codes endpoint shape the
// desktop client relies on: the player_api.php get_profile credential check.
package panel

import (
	"context"
	"strings"

	"github.com/chambrid/xtream-desk/pkg/relay"
	"github.com/chambrid/xtream-desk/pkg/xtream"
	"github.com/go-logr/logr"
)

const (
	// APIPath is the panel endpoint every player API call goes through
	APIPath = "/player_api.php"

	// ActionGetProfile returns user_info and server_info for the credentials
	ActionGetProfile = "get_profile"
)

// Tester validates panel reachability and credentials
type Tester struct {
	relay relay.Requester
	log   logr.Logger
}

// NewTester creates a tester that sends its request through r
func NewTester(r relay.Requester, log logr.Logger) *Tester {
	return &Tester{relay: r, log: log}
}

// TestConnection asks the panel for the profile of cfg's credentials and
// returns the relay's response unchanged
func (t *Tester) TestConnection(ctx context.Context, cfg xtream.XtreamConfig) xtream.APIResponse[xtream.Value] {
	apiURL := NormalizeURL(cfg.URL)

	t.log.V(1).Info("Testing panel connection", "url", apiURL, "username", cfg.Username)

	return t.relay.Relay(ctx, apiURL, ProfileParams(cfg))
}

// ProfileParams builds the query parameters of a get_profile request
func ProfileParams(cfg xtream.XtreamConfig) map[string]string {
	return map[string]string{
		"username": cfg.Username,
		"password": cfg.Password,
		"action":   ActionGetProfile,
	}
}

// NormalizeURL points a panel base URL at player_api.php. URLs that already
// end in /player_api.php are returned as is; otherwise trailing slashes are
// trimmed before the path is appended.
func NormalizeURL(baseURL string) string {
	if strings.HasSuffix(baseURL, APIPath) {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + APIPath
}
