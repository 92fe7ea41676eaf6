package profile

import (
	"errors"
	"fmt"
)

// ProfileError represents a profile-related error
type ProfileError struct {
	Type    string
	Profile string
	Message string
	Cause   error
}

func (e *ProfileError) Error() string {
	if e.Profile != "" {
		return fmt.Sprintf("%s: profile '%s': %s", e.Type, e.Profile, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ProfileError) Unwrap() error {
	return e.Cause
}

// Error type constants
const (
	ErrorTypeNotFound  = "NotFoundError"
	ErrorTypeStoreOpen = "StoreOpenError"
	ErrorTypeStoreSave = "StoreSaveError"
	ErrorTypeStorage   = "StorageError"
	ErrorTypeImport    = "ImportError"
	ErrorTypeExport    = "ExportError"
	ErrorTypeFormat    = "FormatError"
)

// NewNotFoundError creates a new not found error
func NewNotFoundError(id string) *ProfileError {
	return &ProfileError{
		Type:    ErrorTypeNotFound,
		Profile: id,
		Message: "profile not found",
	}
}

// NewStoreOpenError wraps a failure to open the backing store
func NewStoreOpenError(cause error) *ProfileError {
	return &ProfileError{
		Type:    ErrorTypeStoreOpen,
		Message: "Failed to create store",
		Cause:   cause,
	}
}

// NewStoreSaveError wraps a failure to flush the backing store
func NewStoreSaveError(cause error) *ProfileError {
	return &ProfileError{
		Type:    ErrorTypeStoreSave,
		Message: "Failed to save store",
		Cause:   cause,
	}
}

// NewStorageError creates a new storage error
func NewStorageError(message string, cause error) *ProfileError {
	return &ProfileError{
		Type:    ErrorTypeStorage,
		Message: message,
		Cause:   cause,
	}
}

// NewImportError creates a new import error
func NewImportError(message string, cause error) *ProfileError {
	return &ProfileError{
		Type:    ErrorTypeImport,
		Message: message,
		Cause:   cause,
	}
}

// NewExportError creates a new export error
func NewExportError(message string, cause error) *ProfileError {
	return &ProfileError{
		Type:    ErrorTypeExport,
		Message: message,
		Cause:   cause,
	}
}

// NewFormatError creates a new format error
func NewFormatError(message string, cause error) *ProfileError {
	return &ProfileError{
		Type:    ErrorTypeFormat,
		Message: message,
		Cause:   cause,
	}
}

func isType(err error, errorType string) bool {
	var pe *ProfileError
	return errors.As(err, &pe) && pe.Type == errorType
}

// IsNotFound reports whether err is a not-found ProfileError
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsStoreError reports whether err came from opening or flushing the store
func IsStoreError(err error) bool {
	return isType(err, ErrorTypeStoreOpen) || isType(err, ErrorTypeStoreSave)
}

// Message renders err the way the envelope reports it. Store failures read
// "Failed to create store: <cause>" or "Failed to save store: <cause>".
func Message(err error) string {
	var pe *ProfileError
	if errors.As(err, &pe) && (pe.Type == ErrorTypeStoreOpen || pe.Type == ErrorTypeStoreSave) {
		return fmt.Sprintf("%s: %v", pe.Message, pe.Cause)
	}
	return err.Error()
}
