package api

import (
	"net/http"

	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// RelayRequest is the body of POST /api/v1/relay
type RelayRequest struct {
	URL    string            `json:"url"`
	Params map[string]string `json:"params,omitempty"`
}

// handleRelay forwards one GET request to a panel and returns its envelope
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	var req RelayRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.backend.IptvRequest(r.Context(), req.URL, req.Params))
}

// handleConnectionTest runs the get_profile check for the posted credentials
func (s *Server) handleConnectionTest(w http.ResponseWriter, r *http.Request) {
	var cfg xtream.XtreamConfig
	if !s.decodeBody(w, r, &cfg) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.backend.TestIptvConnection(r.Context(), cfg))
}
