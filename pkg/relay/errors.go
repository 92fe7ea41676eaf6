package relay

import (
	"errors"
	"fmt"
)

// Error type constants, one per outcome class of a relayed request
const (
	ErrorTypeInvalidURL = "invalid_url"
	ErrorTypeTransport  = "transport"
	ErrorTypeHTTPStatus = "http_status"
	ErrorTypeReadBody   = "read_body"
	ErrorTypeParseJSON  = "parse_json"
)

// Error describes why a relayed request did not produce JSON data.
// Its message is the text surfaced to the UI in the response envelope.
type Error struct {
	Type       string // one of the ErrorType constants
	StatusCode int    // set for ErrorTypeHTTPStatus
	Status     string // "<code> <reason>", set for ErrorTypeHTTPStatus
	Err        error  // underlying cause
}

func (e *Error) Error() string {
	switch e.Type {
	case ErrorTypeInvalidURL:
		return fmt.Sprintf("Invalid URL: %v", e.Err)
	case ErrorTypeTransport:
		return fmt.Sprintf("Request failed: %v", e.Err)
	case ErrorTypeHTTPStatus:
		return fmt.Sprintf("HTTP error: %s", e.Status)
	case ErrorTypeReadBody:
		return fmt.Sprintf("Failed to read response: %v", e.Err)
	case ErrorTypeParseJSON:
		return fmt.Sprintf("Failed to parse JSON: %v", e.Err)
	}
	return fmt.Sprintf("relay error (%s): %v", e.Type, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func isType(err error, errType string) bool {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Type == errType
	}
	return false
}

// IsInvalidURL reports whether the request was rejected before any I/O
func IsInvalidURL(err error) bool {
	return isType(err, ErrorTypeInvalidURL)
}

// IsTransportError reports whether the request never got an HTTP response
func IsTransportError(err error) bool {
	return isType(err, ErrorTypeTransport)
}

// IsHTTPStatusError reports whether the panel answered with a non-2xx status
func IsHTTPStatusError(err error) bool {
	return isType(err, ErrorTypeHTTPStatus)
}

// IsParseError reports whether the body was not valid JSON
func IsParseError(err error) bool {
	return isType(err, ErrorTypeParseJSON)
}
