// Package relay forwards GET requests to an Xtream-Codes panel and classifies
// the outcome into the response envelope consumed by the UI layer.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/chambrid/xtream-desk/pkg/xtream"
	"github.com/go-logr/logr"
)

// Requester issues a relayed panel request.
// This enables dependency injection and testing with mock implementations.
type Requester interface {
	Relay(ctx context.Context, rawURL string, params map[string]string) xtream.APIResponse[xtream.Value]
}

// HTTPRelay implements Requester over net/http
type HTTPRelay struct {
	httpClient *http.Client
	log        logr.Logger
	metrics    *Metrics
}

// Option configures an HTTPRelay
type Option func(*HTTPRelay)

// WithHTTPClient replaces the default client, e.g. to install a rate-limited transport
func WithHTTPClient(c *http.Client) Option {
	return func(r *HTTPRelay) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithMetrics records every request outcome in m
func WithMetrics(m *Metrics) Option {
	return func(r *HTTPRelay) {
		r.metrics = m
	}
}

// New creates a relay. The default client keeps net/http's timeout and
// redirect behaviour untouched.
func New(log logr.Logger, opts ...Option) *HTTPRelay {
	r := &HTTPRelay{
		httpClient: &http.Client{},
		log:        log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Relay implements Requester. Every failure, including a malformed URL, is
// returned as a failed envelope.
func (r *HTTPRelay) Relay(ctx context.Context, rawURL string, params map[string]string) xtream.APIResponse[xtream.Value] {
	value, err := r.Do(ctx, rawURL, params)
	if err != nil {
		return xtream.Fail[xtream.Value](err.Error())
	}
	return xtream.Ok(value)
}

// Do performs the request and returns the parsed body, or a *Error
func (r *HTTPRelay) Do(ctx context.Context, rawURL string, params map[string]string) (xtream.Value, error) {
	start := time.Now()

	value, err := r.do(ctx, rawURL, params)

	outcome := OutcomeSuccess
	var relayErr *Error
	if errors.As(err, &relayErr) {
		outcome = relayErr.Type
	}
	r.metrics.observe(outcome, time.Since(start))

	if err != nil {
		r.log.Info("Panel request failed", "url", redact(rawURL), "type", outcome, "error", err.Error())
		return xtream.Value{}, err
	}

	r.log.V(1).Info("Panel request succeeded", "url", redact(rawURL), "kind", value.Kind().String(), "elapsed", time.Since(start))
	return value, nil
}

func (r *HTTPRelay) do(ctx context.Context, rawURL string, params map[string]string) (xtream.Value, error) {
	target, err := BuildURL(rawURL, params)
	if err != nil {
		return xtream.Value{}, &Error{Type: ErrorTypeInvalidURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return xtream.Value{}, &Error{Type: ErrorTypeInvalidURL, Err: err}
	}

	r.log.V(1).Info("Relaying panel request", "url", redact(rawURL), "params", len(params))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return xtream.Value{}, &Error{Type: ErrorTypeTransport, Err: transportCause(err)}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			r.log.Error(err, "Failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return xtream.Value{}, &Error{
			Type:       ErrorTypeHTTPStatus,
			StatusCode: resp.StatusCode,
			Status:     statusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return xtream.Value{}, &Error{Type: ErrorTypeReadBody, Err: err}
	}

	value, err := xtream.ParseValue(body)
	if err != nil {
		return xtream.Value{}, &Error{Type: ErrorTypeParseJSON, Err: err}
	}

	return value, nil
}

// BuildURL parses rawURL as an absolute URL and appends every params entry as
// a query pair. Pairs already present in rawURL are kept, so a key given both
// ways is sent twice. Appended pairs are sorted by key.
func BuildURL(rawURL string, params map[string]string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, urlErr.Err
		}
		return nil, err
	}
	if !u.IsAbs() {
		return nil, errors.New("relative URL without a base")
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return nil, errors.New("empty host")
	}

	if len(params) > 0 {
		values := url.Values{}
		for key, value := range params {
			values.Add(key, value)
		}
		encoded := values.Encode()
		if u.RawQuery == "" {
			u.RawQuery = encoded
		} else {
			u.RawQuery += "&" + encoded
		}
	}

	return u, nil
}

// transportCause strips the *url.Error wrapper so the message does not
// repeat the full request URL, which carries the panel password.
func transportCause(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("%d %s", code, text)
	}
	return fmt.Sprintf("%d", code)
}

// redact drops query and user info for logging
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
