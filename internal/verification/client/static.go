package client

import (
	"context"
	"strings"
	"sync"

	"rankgate/internal/verification/ports"
	id "rankgate/pkg/domain"
)

const staticPrefix = "static-"

// Static is a verifier for development. Every transaction resolves to a
// claim of the configured rank with a DID derived from the member id,
// unless a result has been set for it explicitly.
type Static struct {
	rank id.Rank

	mu        sync.Mutex
	overrides map[string]ports.Result
}

func NewStatic(rank id.Rank) *Static {
	return &Static{rank: rank, overrides: make(map[string]ports.Result)}
}

func (s *Static) StartVerification(_ context.Context, memberID id.MemberID) (ports.PendingTransaction, error) {
	tx := staticPrefix + memberID.String()
	return ports.PendingTransaction{TransactionID: tx, RequestURI: "static://verify/" + tx}, nil
}

func (s *Static) PollResult(_ context.Context, transactionID string) (ports.Result, error) {
	s.mu.Lock()
	override, ok := s.overrides[transactionID]
	s.mu.Unlock()
	if ok {
		return override, nil
	}
	subject, found := strings.CutPrefix(transactionID, staticPrefix)
	if !found {
		return ports.Result{}, ports.ErrUnknownTransaction
	}
	return ports.Result{State: ports.ResultVerified, DID: "did:static:" + subject, Rank: s.rank}, nil
}

// Set fixes the result returned for transactionID.
func (s *Static) Set(transactionID string, result ports.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[transactionID] = result
}

// TransactionFor returns the transaction id Static issues for memberID.
func TransactionFor(memberID id.MemberID) string {
	return staticPrefix + memberID.String()
}
