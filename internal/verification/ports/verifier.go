// Package ports declares the external Rank Card verifier the service talks to.
package ports

import (
	"context"
	"errors"

	id "rankgate/pkg/domain"
)

// ErrUnknownTransaction is returned when the verifier has no record of the
// transaction.
var ErrUnknownTransaction = errors.New("unknown verification transaction")

// PendingTransaction is what the verifier hands back when a presentation
// request is opened. RequestURI is shown to the member's wallet.
type PendingTransaction struct {
	TransactionID string
	RequestURI    string
}

type ResultState string

const (
	ResultPending  ResultState = "pending"
	ResultVerified ResultState = "verified"
	ResultFailed   ResultState = "failed"
	ResultExpired  ResultState = "expired"
)

// Result of polling a transaction. DID and Rank are set only when verified.
type Result struct {
	State  ResultState
	DID    string
	Rank   id.Rank
	Reason string
}

type Verifier interface {
	StartVerification(ctx context.Context, memberID id.MemberID) (PendingTransaction, error)
	PollResult(ctx context.Context, transactionID string) (Result, error)
}
