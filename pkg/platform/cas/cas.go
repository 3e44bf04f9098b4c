// Package cas holds the optimistic-concurrency contract shared by every
// aggregate store: a tri-state compare-and-swap result, a per-aggregate
// persisted-version tracker, and a bounded retry helper for callers.
package cas

import (
	"context"
	"errors"

	"rankgate/pkg/platform/sentinel"
)

// Result is the outcome of a conditional write keyed on the expected version.
// It carries no meaning when the write also returned an error.
type Result int

const (
	// Swapped means the row matched the expected version and was replaced.
	Swapped Result = iota
	// Conflict means the row exists at a different version.
	Conflict
	// NotFound means no row exists for the aggregate id.
	NotFound
)

func (r Result) String() string {
	switch r {
	case Swapped:
		return "swapped"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Err converts a non-success result into the matching sentinel.
func (r Result) Err() error {
	switch r {
	case Swapped:
		return nil
	case Conflict:
		return sentinel.ErrConflict
	default:
		return sentinel.ErrNotFound
	}
}

// Tracker remembers the version an aggregate had when it was last read from
// or written to storage. Aggregates embed it; stores drive it. The zero value
// describes an aggregate that has never been persisted.
type Tracker struct {
	persisted int
}

// PersistedVersion is the version stored at last load/save, 0 if never stored.
func (t *Tracker) PersistedVersion() int {
	return t.persisted
}

// IsNew reports whether the aggregate has never been persisted.
func (t *Tracker) IsNew() bool {
	return t.persisted == 0
}

// MarkPersisted records that version is now the stored version.
func (t *Tracker) MarkPersisted(version int) {
	t.persisted = version
}

// Retry runs fn up to attempts times while it fails with sentinel.ErrConflict.
// fn must reload the aggregate on every call. The last error is returned.
func Retry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn(ctx)
		if err == nil || !errors.Is(err, sentinel.ErrConflict) {
			return err
		}
	}
	return err
}
