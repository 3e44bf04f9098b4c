// Package domainerrors carries coded errors across service boundaries.
//
// Domain and service code returns errors built with New or Wrap so that
// transports can map a stable Code onto a response without string matching.
// Stores do not use this package; they return pkg/platform/sentinel errors
// which services translate with FromStore.
package domainerrors

import (
	"errors"
	"fmt"

	"rankgate/pkg/platform/sentinel"
)

// Code is a stable, machine-readable error classification.
type Code string

// Domain rule codes.
const (
	CodeInvalidArgument Code = "invalid_argument"
	CodeInvalidRank     Code = "invalid_rank"
	CodeAlreadyVerified Code = "already_verified"
	CodeAlreadyArchived Code = "already_archived"
	CodeAlreadyTerminal Code = "already_terminal"
	CodeArchivedForum   Code = "archived_forum"
	CodeNegativeCount   Code = "negative_count"
)

// Persistence codes.
const (
	CodeOptimisticLock  Code = "optimistic_lock_conflict"
	CodeUniqueViolation Code = "unique_constraint_violation"
	CodeRepositoryIO    Code = "repository_io"
)

// Transport-facing codes.
const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodeRateLimited  Code = "rate_limited"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal_error"
)

// Error is a coded error. Err, when set, is the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
// Wrapping a nil error returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost coded error in the chain,
// or CodeInternal when the chain carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in the chain has code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Is is shorthand for HasCode, kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// MessageOf returns the client-safe message of the outermost coded error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// FromStore translates a store sentinel into a coded error. what names the
// entity for the message ("forum", "member profile").
func FromStore(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return Wrap(err, CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return Wrap(err, CodeOptimisticLock, what+" was modified concurrently, reload and retry")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return Wrap(err, CodeUniqueViolation, what+" violates a uniqueness constraint")
	default:
		return Wrap(err, CodeRepositoryIO, "failed to access "+what)
	}
}
