package aclkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for ACLKit operations.
var (
	// ErrInvalidRequest is returned when a check is malformed: an empty
	// resource, a nil access token, and similar.
	ErrInvalidRequest = errors.New("aclkit: invalid request")

	// ErrNotFound is returned when a referenced entity (a scope, a rule)
	// does not exist.
	ErrNotFound = errors.New("aclkit: not found")

	// ErrStore is returned when reading or writing rules fails.
	ErrStore = errors.New("aclkit: store error")

	// ErrResolver is returned when a role membership check fails.
	ErrResolver = errors.New("aclkit: role resolver error")

	// ErrAccessDenied is returned by the enforcement helpers when a check
	// resolves to DENY.
	ErrAccessDenied = errors.New("aclkit: access denied")

	// ErrNoPrincipal is returned when no principal can be derived from the
	// incoming request or context.
	ErrNoPrincipal = errors.New("aclkit: no principal in context")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	Resource   string // Resource involved
	Property   string // Property involved (if applicable)
	AccessKind string // Access kind involved (if applicable)
	Principal  string // Principal involved (if applicable)
	Scope      string // Scope name involved (if applicable)
	Role       string // Role involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithResource adds the resource and property to the error.
func (e *Error) WithResource(resource, property string) *Error {
	e.Resource = resource
	e.Property = property
	return e
}

// WithAccessKind adds the access kind to the error.
func (e *Error) WithAccessKind(kind AccessKind) *Error {
	e.AccessKind = string(kind)
	return e
}

// WithPrincipal adds the principal to the error.
func (e *Error) WithPrincipal(p Principal) *Error {
	e.Principal = p.String()
	return e
}

// WithScope adds the scope name to the error.
func (e *Error) WithScope(name string) *Error {
	e.Scope = name
	return e
}

// WithRole adds the role to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// IsInvalidRequest checks if an error is due to a malformed check.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsNotFound checks if an error is due to a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStoreError checks if an error comes from the rule store.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStore)
}

// IsResolverError checks if an error comes from role resolution.
func IsResolverError(err error) bool {
	return errors.Is(err, ErrResolver)
}

// IsAccessDenied checks if an error is an authorization rejection.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}
