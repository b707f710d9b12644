package ports

import (
	"errors"
	"fmt"
	"strings"
)

// The operation-level error kinds of the core. They are typed, not bare
// strings, so a transport layer can map them mechanically
// (ValidationError -> 400, ConflictError -> 409, NotFoundError -> 404).
// Model-level contract errors (MalformedScopeError, MalformedIdentityError,
// InvalidTransitionError) live next to the models that raise them.

// NotFoundError reports an operation on an absent (or deleted) resource.
type NotFoundError struct {
	Type  string
	Name  string
	Scope string
}

func (e *NotFoundError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("resource %s %q not found", e.Type, e.Name)
	}
	return fmt.Sprintf("resource %s %q not found in scope %s", e.Type, e.Name, e.Scope)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ConflictError reports a uniqueness violation: a live resource already
// holds the same (type, name) within the same scope.
type ConflictError struct {
	Key   string
	Type  string
	Name  string
	Scope string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("resource %s %q already exists in scope %s", e.Type, e.Name, e.Scope)
}

// IsConflict reports whether err carries a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// ValidationError reports bad input shape or values. Field and Reason
// describe the first violation in declaration order; Causes preserves the
// full list.
type ValidationError struct {
	Field  string
	Reason string
	Causes []string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
	if len(e.Causes) > 1 {
		msg += fmt.Sprintf(" (and %d more: %s)", len(e.Causes)-1, strings.Join(e.Causes[1:], "; "))
	}
	return msg
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// UnknownResourceTypeError reports a dispatch against a type name with no
// registered handler. It indicates registry misconfiguration.
type UnknownResourceTypeError struct {
	Type string
}

func (e *UnknownResourceTypeError) Error() string {
	return fmt.Sprintf("no handler registered for resource type %q", e.Type)
}
