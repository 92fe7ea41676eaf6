// Package ratelimit paces outbound panel requests. It is wired in as an
// http.RoundTripper so the relay itself stays unaware of it.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRetryAfter is used when a 429 response carries no usable Retry-After
const DefaultRetryAfter = time.Second

// RateLimiter defines the interface for rate limiting operations
// This enables dependency injection and testing with mock implementations
type RateLimiter interface {
	// Wait blocks until it's safe to make a request based on rate limiting rules
	Wait(ctx context.Context) error

	// HandleResponse processes response headers to adjust rate limiting behavior
	HandleResponse(response *http.Response) error

	// AcquireSlot attempts to acquire a concurrency slot for parallel requests
	AcquireSlot(ctx context.Context) error

	// ReleaseSlot releases a concurrency slot
	ReleaseSlot()
}

// Options configures a PanelRateLimiter. Zero values disable the matching
// control.
type Options struct {
	RequestsPerSecond float64
	Burst             int
	MaxConcurrent     int
}

// Enabled reports whether any pacing control is switched on
func (o Options) Enabled() bool {
	return o.RequestsPerSecond > 0 || o.MaxConcurrent > 0
}

// PanelRateLimiter implements RateLimiter with a token bucket, an optional
// concurrency cap and a pause after the panel answers 429
type PanelRateLimiter struct {
	limiter   *rate.Limiter
	semaphore chan struct{}

	mutex        sync.Mutex
	backoffUntil time.Time
}

// NewRateLimiter creates a new rate limiter with the provided options
func NewRateLimiter(opts Options) *PanelRateLimiter {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	r := &PanelRateLimiter{limiter: rate.NewLimiter(limit, burst)}
	if opts.MaxConcurrent > 0 {
		r.semaphore = make(chan struct{}, opts.MaxConcurrent)
	}
	return r
}

// Wait blocks until it's safe to make a request
func (r *PanelRateLimiter) Wait(ctx context.Context) error {
	r.mutex.Lock()
	until := r.backoffUntil
	r.mutex.Unlock()

	if wait := time.Until(until); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// HandleResponse pauses further requests when the panel reports 429. The
// response itself is passed through untouched; nothing is retried.
func (r *PanelRateLimiter) HandleResponse(response *http.Response) error {
	if response == nil || response.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	delay := DefaultRetryAfter
	if retryAfter := response.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
			delay = time.Duration(seconds) * time.Second
		}
	}

	r.mutex.Lock()
	until := time.Now().Add(delay)
	if until.After(r.backoffUntil) {
		r.backoffUntil = until
	}
	r.mutex.Unlock()

	return &RateLimitError{
		StatusCode: response.StatusCode,
		RetryAfter: delay,
		Message:    "panel rate limit exceeded, pausing requests",
	}
}

// AcquireSlot attempts to acquire a concurrency slot
func (r *PanelRateLimiter) AcquireSlot(ctx context.Context) error {
	if r.semaphore == nil {
		return nil
	}
	select {
	case r.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReleaseSlot releases a concurrency slot
func (r *PanelRateLimiter) ReleaseSlot() {
	if r.semaphore == nil {
		return
	}
	select {
	case <-r.semaphore:
	default:
	}
}

// RateLimitError represents a rate limiting error
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit error (HTTP %d): %s (retry after %v)",
		e.StatusCode, e.Message, e.RetryAfter)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	_, ok := err.(*RateLimitError)
	return ok
}
