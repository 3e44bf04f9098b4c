package client

import (
	"errors"
	"fmt"
)

// Category normalises verifier failures so callers can decide on retry and
// on the status surfaced to members.
type Category string

const (
	CategoryTimeout  Category = "timeout"
	CategoryOutage   Category = "provider_outage"
	CategoryBadData  Category = "bad_data"
	CategoryRejected Category = "rejected"
)

type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verifier [%s]: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("verifier [%s]: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e.Category == CategoryTimeout || e.Category == CategoryOutage
}

func newError(category Category, message string, err error) *Error {
	return &Error{Category: category, Message: message, Err: err}
}

// CategoryOf extracts the category from err, or "" when err did not come
// from a verifier client.
func CategoryOf(err error) Category {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Category
	}
	return ""
}
