package api

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a system component
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemInfoResponse represents system information response
type SystemInfoResponse struct {
	Version      string            `json:"version"`
	Commit       string            `json:"commit"`
	BuildDate    string            `json:"build_date"`
	GoVersion    string            `json:"go_version"`
	Platform     string            `json:"platform"`
	APIVersion   string            `json:"api_version"`
	Capabilities []string          `json:"capabilities"`
	Config       *SystemConfigInfo `json:"config,omitempty"`
}

// SystemConfigInfo represents sanitized system configuration
type SystemConfigInfo struct {
	Port       int    `json:"port"`
	Host       string `json:"host"`
	EnableCORS bool   `json:"enable_cors"`
}

// handleHealth reports the server as unhealthy when the profile store cannot
// be read
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]ComponentHealth)

	list := s.backend.GetProfileAccounts(r.Context())
	if list.Success {
		components["profile_store"] = ComponentHealth{Status: "healthy"}
	} else {
		components["profile_store"] = ComponentHealth{
			Status:  "unhealthy",
			Message: list.ErrorMessage(),
		}
	}

	overallStatus := "healthy"
	for _, component := range components {
		if component.Status == "unhealthy" {
			overallStatus = "unhealthy"
			break
		}
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  s.now().UTC(),
		Version:    s.buildInfo.Version,
		Uptime:     s.now().Sub(s.started).Round(time.Second).String(),
		Components: components,
	}

	if overallStatus == "unhealthy" {
		// The report still rides along so callers can see which component failed.
		message := "Service unhealthy: profile_store: " + components["profile_store"].Message
		s.writeJSON(w, http.StatusServiceUnavailable, xtream.APIResponse[HealthResponse]{
			Success: false,
			Data:    &response,
			Error:   &message,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, xtream.Ok(response))
}

// handleSystemInfo handles system information requests
func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	capabilities := []string{"relay", "connection_test", "profiles"}
	if s.backend.Gatherer() != nil {
		capabilities = append(capabilities, "metrics")
	}

	response := SystemInfoResponse{
		Version:      s.buildInfo.Version,
		Commit:       s.buildInfo.Commit,
		BuildDate:    s.buildInfo.Date,
		GoVersion:    runtime.Version(),
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		APIVersion:   "v1",
		Capabilities: capabilities,
		Config: &SystemConfigInfo{
			Port:       s.config.Port,
			Host:       s.config.Host,
			EnableCORS: s.config.EnableCORS,
		},
	}

	s.writeJSON(w, http.StatusOK, xtream.Ok(response))
}
