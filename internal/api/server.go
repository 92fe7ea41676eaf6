// Package api serves the backend operations over a local HTTP JSON bridge so
// a desktop frontend can drive them without linking Go code.
//
// Endpoints:
//
//   - GET    /api/v1/health - Liveness and store check
//   - GET    /api/v1/system/info - Build and runtime information
//   - POST   /api/v1/relay - Relay a GET request to a panel
//   - POST   /api/v1/connection/test - get_profile credential check
//   - GET    /api/v1/profiles - List saved profiles
//   - POST   /api/v1/profiles - Create or replace a profile
//   - GET    /api/v1/profiles/{id} - Fetch one profile
//   - DELETE /api/v1/profiles/{id} - Delete a profile
//   - POST   /api/v1/profiles/{id}/activate - Mark a profile active
//   - POST   /api/v1/profiles/{id}/test - Check a saved profile's credentials
//   - GET    /metrics - Relay metrics in the Prometheus format
//
// Every /api/v1 response body is the {"success","data","error"} envelope. A
// failed envelope from the backend is still sent with 200, exactly as the
// command would have returned it; 4xx statuses are reserved for requests the
// bridge itself refused or could not decode. Browser origins are refused
// unless listed in Config.AllowedOrigins, and on a loopback listener so is
// any Host header that is not a loopback name.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chambrid/xtream-desk/pkg/profile"
	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// BuildInfo contains build-time information
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Backend is the set of operations the bridge exposes. *service.Service
// implements it.
type Backend interface {
	IptvRequest(ctx context.Context, url string, params map[string]string) xtream.APIResponse[xtream.Value]
	TestIptvConnection(ctx context.Context, cfg xtream.XtreamConfig) xtream.APIResponse[xtream.Value]
	SaveProfileAccount(ctx context.Context, p xtream.ProfileAccount) xtream.APIResponse[xtream.Unit]
	GetProfileAccounts(ctx context.Context) xtream.APIResponse[[]xtream.ProfileAccount]
	DeleteProfileAccount(ctx context.Context, id string) xtream.APIResponse[xtream.Unit]
	TestProfileConnection(ctx context.Context, id string) xtream.APIResponse[xtream.Value]
	Profiles() profile.Manager
	Gatherer() prometheus.Gatherer
}

// Config holds API server configuration
type Config struct {
	Port           int           `json:"port"`
	Host           string        `json:"host"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	EnableCORS     bool          `json:"enable_cors"`
	AllowedOrigins []string      `json:"allowed_origins"`
	MaxBodyBytes   int64         `json:"max_body_bytes"`
}

// DefaultConfig returns default API server configuration. The bridge only
// listens on loopback and allows no browser origins unless told otherwise,
// since responses carry panel passwords.
func DefaultConfig() *Config {
	return &Config{
		Port:         8765,
		Host:         "127.0.0.1",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		EnableCORS:   true,
		MaxBodyBytes: 1 << 20,
	}
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// Server represents the API server
type Server struct {
	config     *Config
	buildInfo  BuildInfo
	backend    Backend
	log        logr.Logger
	now        func() time.Time
	started    time.Time
	httpServer *http.Server
}

// NewServer creates a new API server instance
func NewServer(config *Config, buildInfo BuildInfo, backend Backend, log logr.Logger) *Server {
	return &Server{
		config:    config,
		buildInfo: buildInfo,
		backend:   backend,
		log:       log.WithName("api"),
		now:       time.Now,
		started:   time.Now(),
	}
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return s.withMiddleware(mux)
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, l net.Listener, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	s.log.Info("Starting API server", "addr", l.Addr().String())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- s.httpServer.Serve(l)
	}()

	select {
	case err := <-serverErr:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.log.Info("Stopping API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System endpoints
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/system/info", s.handleSystemInfo)

	// Panel endpoints
	mux.HandleFunc("POST /api/v1/relay", s.handleRelay)
	mux.HandleFunc("POST /api/v1/connection/test", s.handleConnectionTest)

	// Profile endpoints
	mux.HandleFunc("GET /api/v1/profiles", s.handleListProfiles)
	mux.HandleFunc("POST /api/v1/profiles", s.handleSaveProfile)
	mux.HandleFunc("GET /api/v1/profiles/{id}", s.handleGetProfile)
	mux.HandleFunc("DELETE /api/v1/profiles/{id}", s.handleDeleteProfile)
	mux.HandleFunc("POST /api/v1/profiles/{id}/activate", s.handleActivateProfile)
	mux.HandleFunc("POST /api/v1/profiles/{id}/test", s.handleTestProfile)

	if gatherer := s.backend.Gatherer(); gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

// withMiddleware applies middleware to the handler
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return s.withHostCheck(s.withCORS(s.withLogging(next)))
}

// withHostCheck rejects requests whose Host header is not a loopback name
// while the server is bound to loopback. A DNS-rebound page reaches the
// listener with its own host name and is refused here.
func (s *Server) withHostCheck(next http.Handler) http.Handler {
	if !isLoopbackHost(s.config.Host) {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackHost(hostname(r.Host)) {
			s.log.V(1).Info("Rejected request for foreign host", "host", r.Host)
			s.writeError(w, http.StatusForbidden, "Host not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hostname(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.Trim(hostport, "[]")
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// originAllowed reports whether a browser origin may call the bridge. A
// request without an Origin header comes from a non-browser client.
func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	if !s.config.EnableCORS {
		return false
	}
	return slices.Contains(s.config.AllowedOrigins, "*") || slices.Contains(s.config.AllowedOrigins, origin)
}

// withLogging adds request logging middleware
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		// Paths only; query strings and bodies can hold credentials.
		s.log.V(1).Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start))
	})
}

// withCORS adds CORS middleware. Requests from an origin outside
// AllowedOrigins are refused outright rather than served without headers,
// because a simple GET would still run. "*" is honoured only when listed
// explicitly.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !s.originAllowed(origin) {
			s.log.V(1).Info("Rejected request from foreign origin", "origin", origin)
			s.writeError(w, http.StatusForbidden, "Origin not allowed")
			return
		}

		if s.config.EnableCORS && origin != "" {
			if slices.Contains(s.config.AllowedOrigins, "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error(err, "Failed to encode JSON response")
	}
}

// writeError writes a failed envelope for a request the bridge rejected
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, xtream.Fail[xtream.Unit](message))
}

// decodeBody reads a JSON request body into v, rejecting unknown fields
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON request body: %v", err))
		return false
	}
	return true
}
