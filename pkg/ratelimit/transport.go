package ratelimit

import (
	"io"
	"net/http"
	"sync"

	"github.com/go-logr/logr"
)

// RateLimitedTransport wraps an HTTP transport with rate limiting capabilities
type RateLimitedTransport struct {
	// Base transport for actual HTTP operations
	Base http.RoundTripper

	// Rate limiter for controlling request frequency
	RateLimiter RateLimiter

	Log logr.Logger
}

// NewRateLimitedTransport creates a new rate-limited HTTP transport
func NewRateLimitedTransport(base http.RoundTripper, rateLimiter RateLimiter, log logr.Logger) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &RateLimitedTransport{
		Base:        base,
		RateLimiter: rateLimiter,
		Log:         log,
	}
}

// RoundTrip implements http.RoundTripper. The concurrency slot stays held
// until the response body is closed, so the cap covers body reads too.
func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if err := t.RateLimiter.AcquireSlot(ctx); err != nil {
		return nil, err
	}
	if err := t.RateLimiter.Wait(ctx); err != nil {
		t.RateLimiter.ReleaseSlot()
		return nil, err
	}

	response, err := t.Base.RoundTrip(req)
	if err != nil || response == nil {
		t.RateLimiter.ReleaseSlot()
		return response, err
	}

	// The response is returned as-is; the limiter only adjusts future pacing.
	if handleErr := t.RateLimiter.HandleResponse(response); handleErr != nil {
		t.Log.Info("Panel asked to slow down", "host", req.URL.Host, "reason", handleErr.Error())
	}

	if response.Body == nil {
		t.RateLimiter.ReleaseSlot()
		return response, nil
	}
	response.Body = &slotBody{ReadCloser: response.Body, release: t.RateLimiter.ReleaseSlot}
	return response, nil
}

// slotBody releases its concurrency slot on the first Close
type slotBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *slotBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

// NewClient returns an http.Client that paces requests per opts, or a plain
// client when opts disables every control
func NewClient(opts Options, log logr.Logger) *http.Client {
	if !opts.Enabled() {
		return &http.Client{}
	}
	return &http.Client{
		Transport: NewRateLimitedTransport(nil, NewRateLimiter(opts), log),
	}
}
