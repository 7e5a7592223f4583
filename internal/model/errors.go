package model

import (
	"errors"
	"fmt"
)

// Error categories. Typed errors below match these through errors.Is so
// callers can branch on the category without knowing the concrete type.
var (
	// ErrValidation marks input rejected before any network call.
	ErrValidation = errors.New("validation error")

	// ErrResolution marks a domain that could not be resolved to an address.
	// It is fatal to the whole scan request.
	ErrResolution = errors.New("resolution error")

	// ErrTransport marks a network or timeout failure of one probe or one
	// source query. It never aborts sibling branches.
	ErrTransport = errors.New("transport error")

	// ErrFormat marks a source payload that lacks an expected field.
	ErrFormat = errors.New("format error")
)

// ValidationError reports malformed target or identity syntax.
type ValidationError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ResolutionError reports a domain that has no usable IPv4 address.
type ResolutionError struct {
	Domain string
	Err    error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unable to resolve domain %s", e.Domain)
	}
	return fmt.Sprintf("unable to resolve domain %s: %v", e.Domain, e.Err)
}

// Unwrap returns the underlying resolver error.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrResolution.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// TransportError wraps a network fault raised by a single HTTP exchange.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// FormatError reports a source payload that is missing a field.
type FormatError struct {
	Source string
	Field  string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: payload missing field %q", e.Source, e.Field)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}
