package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors.
//
// These represent factual states about rows, not validation failures:
//   - ErrNotFound: row does not exist
//   - ErrConflict: optimistic-lock version mismatch on write; reload and retry
//   - ErrAlreadyUsed: a unique key (subject, DID, channel id) is taken; do not retry
//   - ErrExpired: a TTL-bound record has lapsed
//   - ErrStorage: the underlying store failed (I/O, driver, serialization)
//   - ErrUnavailable: a collaborator is temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("version conflict")
	ErrAlreadyUsed = errors.New("already used")
	ErrExpired     = errors.New("expired")
	ErrStorage     = errors.New("storage failure")
	ErrUnavailable = errors.New("unavailable")
)
