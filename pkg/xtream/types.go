// Package xtream holds the types shared by the relay, the connection tester and the
// profile repository: panel credentials, stored profile accounts and the response
// envelope handed back to the UI layer.
package xtream

import "encoding/json"

// XtreamConfig holds the connection parameters for one Xtream-Codes panel
type XtreamConfig struct {
	URL             string  `json:"url" yaml:"url"`
	Username        string  `json:"username" yaml:"username"`
	Password        string  `json:"password" yaml:"password"`
	PreferredFormat *string `json:"preferredFormat,omitempty" yaml:"preferredFormat,omitempty"`
}

// ProfileAccount is a saved, named set of panel credentials
type ProfileAccount struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	Config    XtreamConfig `json:"config" yaml:"config"`
	IsActive  bool         `json:"isActive" yaml:"isActive"`
	CreatedAt string       `json:"createdAt" yaml:"createdAt"`
	LastUsed  *string      `json:"lastUsed,omitempty" yaml:"lastUsed,omitempty"`
}

// Unit is the payload of operations that succeed without returning data.
// It encodes as JSON null.
type Unit struct{}

// MarshalJSON implements json.Marshaler
func (Unit) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// APIResponse is the uniform result envelope for every outward-facing operation.
// Data is set iff Success is true and Error is set iff Success is false; use Ok,
// OkUnit and Fail to build one.
type APIResponse[T any] struct {
	Success bool    `json:"success"`
	Data    *T      `json:"data"`
	Error   *string `json:"error"`
}

// Ok builds a successful envelope carrying data
func Ok[T any](data T) APIResponse[T] {
	return APIResponse[T]{Success: true, Data: &data}
}

// OkUnit builds a successful envelope for operations without a result
func OkUnit() APIResponse[Unit] {
	return Ok(Unit{})
}

// Fail builds a failed envelope carrying a human-readable message
func Fail[T any](message string) APIResponse[T] {
	return APIResponse[T]{Success: false, Error: &message}
}

// ErrorMessage returns the failure message, or "" for a successful response
func (r APIResponse[T]) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// Unwrap returns the data and whether the response succeeded
func (r APIResponse[T]) Unwrap() (T, bool) {
	var zero T
	if !r.Success || r.Data == nil {
		return zero, false
	}
	return *r.Data, true
}

// StringPtr returns a pointer to s, for the optional string fields above
func StringPtr(s string) *string {
	return &s
}

var _ json.Marshaler = Unit{}
