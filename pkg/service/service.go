// Package service wires the relay, connection tester and profile repository
// into the five operations exposed to callers.
package service

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/chambrid/xtream-desk/pkg/config"
	"github.com/chambrid/xtream-desk/pkg/docstore"
	"github.com/chambrid/xtream-desk/pkg/panel"
	"github.com/chambrid/xtream-desk/pkg/profile"
	"github.com/chambrid/xtream-desk/pkg/ratelimit"
	"github.com/chambrid/xtream-desk/pkg/relay"
	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// Service is the invocable surface of the module
type Service struct {
	relay    relay.Requester
	tester   *panel.Tester
	profiles profile.Manager
	log      logr.Logger

	registry *prometheus.Registry
	closers  []io.Closer
}

// New assembles a service from already-built parts
func New(requester relay.Requester, profiles profile.Manager, log logr.Logger) *Service {
	return &Service{
		relay:    requester,
		tester:   panel.NewTester(requester, log.WithName("panel")),
		profiles: profiles,
		log:      log,
	}
}

// NewFromConfig builds the full production stack described by cfg
func NewFromConfig(cfg *config.Config, log logr.Logger) (*Service, error) {
	registry := prometheus.NewRegistry()

	client := ratelimit.NewClient(ratelimit.Options{
		RequestsPerSecond: cfg.RelayRateLimit,
		Burst:             cfg.RelayBurst,
		MaxConcurrent:     cfg.RelayMaxConcurrent,
	}, log.WithName("ratelimit"))

	httpRelay := relay.New(log.WithName("relay"),
		relay.WithHTTPClient(client),
		relay.WithMetrics(relay.NewMetrics(registry)),
	)

	opener, closer, err := newOpener(cfg, log.WithName("docstore"))
	if err != nil {
		return nil, err
	}

	svc := New(httpRelay, profile.NewRepository(opener, log.WithName("profile")), log)
	svc.registry = registry
	if closer != nil {
		svc.closers = append(svc.closers, closer)
	}

	log.V(1).Info("Service ready", "backend", cfg.StoreBackend, "dataDir", cfg.DataDir,
		"rateLimit", cfg.RelayRateLimit, "maxConcurrent", cfg.RelayMaxConcurrent)
	return svc, nil
}

func newOpener(cfg *config.Config, log logr.Logger) (docstore.Opener, io.Closer, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		opener, err := docstore.NewSQLiteOpener(cfg.SQLitePath(), log)
		if err != nil {
			return nil, nil, err
		}
		return opener, opener, nil
	case config.BackendJSON, "":
		return docstore.NewFileOpener(cfg.DataDir, log), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend '%s'", cfg.StoreBackend)
	}
}

// IptvRequest relays one GET to url with params and returns the parsed body
func (s *Service) IptvRequest(ctx context.Context, url string, params map[string]string) xtream.APIResponse[xtream.Value] {
	return s.relay.Relay(ctx, url, params)
}

// TestIptvConnection asks the panel for the account profile of cfg
func (s *Service) TestIptvConnection(ctx context.Context, cfg xtream.XtreamConfig) xtream.APIResponse[xtream.Value] {
	return s.tester.TestConnection(ctx, cfg)
}

// SaveProfileAccount upserts p by id
func (s *Service) SaveProfileAccount(ctx context.Context, p xtream.ProfileAccount) xtream.APIResponse[xtream.Unit] {
	return s.profiles.Save(ctx, p)
}

// GetProfileAccounts lists stored profiles in insertion order
func (s *Service) GetProfileAccounts(ctx context.Context) xtream.APIResponse[[]xtream.ProfileAccount] {
	return s.profiles.List(ctx)
}

// DeleteProfileAccount removes the profile with id; unknown ids succeed
func (s *Service) DeleteProfileAccount(ctx context.Context, id string) xtream.APIResponse[xtream.Unit] {
	return s.profiles.Delete(ctx, id)
}

// TestProfileConnection runs TestIptvConnection with a stored profile's config
func (s *Service) TestProfileConnection(ctx context.Context, id string) xtream.APIResponse[xtream.Value] {
	p, err := s.profiles.Get(ctx, id)
	if err != nil {
		return xtream.Fail[xtream.Value](profile.Message(err))
	}
	return s.tester.TestConnection(ctx, p.Config)
}

// Profiles exposes the repository for the supplementary profile operations
func (s *Service) Profiles() profile.Manager {
	return s.profiles
}

// Gatherer returns the metrics registry, or nil when the service was built
// without one
func (s *Service) Gatherer() prometheus.Gatherer {
	if s.registry == nil {
		return nil
	}
	return s.registry
}

// WriteMetrics writes the relay metrics in the Prometheus text format. It
// writes nothing when the service was built without a registry.
func (s *Service) WriteMetrics(w io.Writer) error {
	if s.registry == nil {
		return nil
	}

	families, err := s.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// Close releases the store backend
func (s *Service) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
