package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError carrying the same code,
// so errors.Is matches on the error kind rather than the message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared across bounded contexts
const (
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidState          = "INVALID_STATE"
	CodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	CodeAuthenticationFailed  = "AUTHENTICATION_FAILED"
	CodeLookupFailed          = "LOOKUP_FAILED"
	CodeOperationNotSupported = "OPERATION_NOT_SUPPORTED"
	CodeProtocolSerialization = "PROTOCOL_SERIALIZATION"
	CodeUnauthorized          = "UNAUTHORIZED"
)

// Common domain errors
var (
	ErrNotFound              = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists         = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput          = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState          = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict   = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrAuthenticationFailed  = NewDomainError(CodeAuthenticationFailed, "Invalid credentials or inactive realm")
	ErrLookupFailed          = NewDomainError(CodeLookupFailed, "Referenced record could not be resolved")
	ErrOperationNotSupported = NewDomainError(CodeOperationNotSupported, "Operation not supported")
	ErrProtocolSerialization = NewDomainError(CodeProtocolSerialization, "Malformed protocol message")
	ErrUnauthorized          = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
)

// NewLookupError reports a record that is missing or not yet known upstream.
func NewLookupError(format string, args ...any) *DomainError {
	return NewDomainError(CodeLookupFailed, fmt.Sprintf(format, args...))
}

// NewUnsupportedOperationError reports an operation the target resource cannot perform.
func NewUnsupportedOperationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeOperationNotSupported, fmt.Sprintf(format, args...))
}

// NewProtocolError reports a malformed inbound or outbound protocol message.
func NewProtocolError(format string, args ...any) *DomainError {
	return NewDomainError(CodeProtocolSerialization, fmt.Sprintf(format, args...))
}

// NewConcurrencyConflictError reports a stale optimistic-concurrency token.
func NewConcurrencyConflictError(format string, args ...any) *DomainError {
	return NewDomainError(CodeConcurrencyConflict, fmt.Sprintf(format, args...))
}
