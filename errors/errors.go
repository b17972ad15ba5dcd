// Package errors provides error handling for Atlas.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrRemoteLoadFailure) {
//	    // module stays capability-less
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is         = crdb.Is
	IsAny      = crdb.IsAny
	As         = crdb.As
	Unwrap     = crdb.Unwrap
	UnwrapOnce = crdb.UnwrapOnce
	UnwrapAll  = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the module composition runtime.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
//
// None of these are fatal to the host: the worst-case outcome of every
// failure mode is "this module contributes no widgets".
var (
	// ErrMalformedDescriptor indicates a raw module descriptor was missing
	// required identity fields (id, routePath). The descriptor is dropped.
	ErrMalformedDescriptor = New("malformed module descriptor")

	// ErrSourceUnavailable indicates a descriptor source (manifest file or
	// backend endpoint) could not be fetched. That source contributes
	// nothing for the current load cycle.
	ErrSourceUnavailable = New("descriptor source unavailable")

	// ErrRemoteLoadFailure indicates a remote capability bundle could not
	// be fetched, was missing the well-known export, or exceeded the
	// unwrap bound. The module remains capability-less.
	ErrRemoteLoadFailure = New("remote capability load failed")

	// ErrInvalidCapabilityShape indicates a resolved capability export did
	// not match any recognized nested-export shape. Treated the same as
	// ErrRemoteLoadFailure by callers.
	ErrInvalidCapabilityShape = New("invalid capability shape")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsRemoteLoadError checks if an error is or wraps ErrRemoteLoadFailure
// or ErrInvalidCapabilityShape. Both leave the module pending.
func IsRemoteLoadError(err error) bool {
	return err != nil && IsAny(err, ErrRemoteLoadFailure, ErrInvalidCapabilityShape)
}

// IsSourceUnavailableError checks if an error is or wraps ErrSourceUnavailable
func IsSourceUnavailableError(err error) bool {
	return err != nil && Is(err, ErrSourceUnavailable)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
