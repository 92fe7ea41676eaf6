package panel

import (
	"fmt"

	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// AccountInfo is a flat summary of a get_profile response
type AccountInfo struct {
	Username       string `json:"username"`
	Status         string `json:"status"`
	Authenticated  bool   `json:"authenticated"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	MaxConnections string `json:"max_connections,omitempty"`
	ActiveCons     string `json:"active_connections,omitempty"`
	ServerURL      string `json:"server_url,omitempty"`
	ServerPort     string `json:"server_port,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
}

// ParseAccountInfo extracts the user_info and server_info fields of a
// get_profile body. Panels disagree on whether numbers are quoted, so every
// scalar is read as text.
func ParseAccountInfo(body xtream.Value) (*AccountInfo, error) {
	user, ok := body.Get("user_info")
	if !ok || user.Kind() != xtream.KindObject {
		return nil, fmt.Errorf("response has no user_info object")
	}

	info := &AccountInfo{
		Username:       scalar(user, "username"),
		Status:         scalar(user, "status"),
		ExpiresAt:      scalar(user, "exp_date"),
		MaxConnections: scalar(user, "max_connections"),
		ActiveCons:     scalar(user, "active_cons"),
	}

	switch scalar(user, "auth") {
	case "1", "true":
		info.Authenticated = true
	}

	if server, ok := body.Get("server_info"); ok {
		info.ServerURL = scalar(server, "url")
		info.ServerPort = scalar(server, "port")
		info.Timezone = scalar(server, "timezone")
	}

	return info, nil
}

func scalar(obj xtream.Value, key string) string {
	v, ok := obj.Get(key)
	if !ok {
		return ""
	}
	switch v.Kind() {
	case xtream.KindString:
		s, _ := v.AsString()
		return s
	case xtream.KindNumber:
		n, _ := v.AsNumber()
		return n.String()
	case xtream.KindBool:
		b, _ := v.AsBool()
		return fmt.Sprintf("%t", b)
	}
	return ""
}
