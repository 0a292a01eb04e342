package vaultedge

import "fmt"

// Error types for the VaultEdge SDK. Every failure surfaced by the SDK is
// one of the kinds below; see the package documentation for the
// propagation policy.

// ConfigurationError reports a required configuration entry that is
// missing or unparseable.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(key, message string) *ConfigurationError {
	return &ConfigurationError{Key: key, Message: message}
}

// NetworkError reports a transport-level failure: the request never
// produced a response from the vault. A response with a non-success
// status is a ServerError, not a NetworkError.
type NetworkError struct {
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("network error: %s", e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new network error.
func NewNetworkError(message string, err error) *NetworkError {
	return &NetworkError{Message: message, Err: err}
}

// ServerError reports a non-success status with a structured error body.
// When the server rejects the pinned public key it sets Code to "key" and
// KeyID to the replacement identifier; the SDK recovers that case
// internally with a single retry.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
	KeyID      string
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
}

// KeyRotation reports whether the error is a pinned-key rotation hint.
func (e *ServerError) KeyRotation() bool {
	return e.Code == "key" && e.KeyID != ""
}

// NewServerError creates a new server error.
func NewServerError(statusCode int, code, message string) *ServerError {
	return &ServerError{StatusCode: statusCode, Code: code, Message: message}
}

// CryptoError reports a decryption or signature failure.
type CryptoError struct {
	Operation string // "encrypt", "decrypt" or "sign"
	Message   string
	Err       error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Operation, e.Message)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new crypto error.
func NewCryptoError(operation, message string, err error) *CryptoError {
	return &CryptoError{Operation: operation, Message: message, Err: err}
}

// NotationError reports a notation parse failure, an unresolvable
// selector, or an out-of-range index.
type NotationError struct {
	Notation string
	Message  string
}

func (e *NotationError) Error() string {
	if e.Notation != "" {
		return fmt.Sprintf("notation error: %q: %s", e.Notation, e.Message)
	}
	return fmt.Sprintf("notation error: %s", e.Message)
}

// NewNotationError creates a new notation error.
func NewNotationError(notation, message string) *NotationError {
	return &NotationError{Notation: notation, Message: message}
}

// ValidationError reports a malformed record, field or request shape.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Common validation errors
var (
	ErrRecordNil        = NewValidationError("record", "cannot be nil")
	ErrRecordUIDMissing = NewValidationError("record_uid", "is required")
	ErrFolderUIDMissing = NewValidationError("folder_uid", "is required")
	ErrNoRecordUIDs     = NewValidationError("record_uids", "at least one is required")
	ErrFileDataMissing  = NewValidationError("file", "data is required")
)
