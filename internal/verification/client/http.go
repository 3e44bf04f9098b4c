package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rankgate/internal/verification/ports"
	id "rankgate/pkg/domain"
)

const maxResponseBytes = 64 << 10

// HTTPVerifier talks to the Rank Card verifier's transaction API:
//
//	POST {base}/transactions       -> 201 {"transaction_id","request_uri"}
//	GET  {base}/transactions/{id}  -> 200 {"state","did","rank","reason"}
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPVerifier(baseURL string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type startRequest struct {
	Subject string `json:"subject"`
}

type startResponse struct {
	TransactionID string `json:"transaction_id"`
	RequestURI    string `json:"request_uri"`
}

type pollResponse struct {
	State  string `json:"state"`
	DID    string `json:"did"`
	Rank   string `json:"rank"`
	Reason string `json:"reason"`
}

func (v *HTTPVerifier) StartVerification(ctx context.Context, memberID id.MemberID) (ports.PendingTransaction, error) {
	body, err := json.Marshal(startRequest{Subject: memberID.String()})
	if err != nil {
		return ports.PendingTransaction{}, newError(CategoryBadData, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return ports.PendingTransaction{}, newError(CategoryBadData, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, payload, err := v.do(req)
	if err != nil {
		return ports.PendingTransaction{}, err
	}
	return parseStartResponse(status, payload)
}

func (v *HTTPVerifier) PollResult(ctx context.Context, transactionID string) (ports.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/transactions/"+url.PathEscape(transactionID), nil)
	if err != nil {
		return ports.Result{}, newError(CategoryBadData, "build request", err)
	}
	status, payload, err := v.do(req)
	if err != nil {
		return ports.Result{}, err
	}
	return parsePollResponse(status, payload)
}

func (v *HTTPVerifier) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := v.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return 0, nil, newError(CategoryTimeout, "verifier did not respond", err)
		}
		return 0, nil, newError(CategoryOutage, "verifier unreachable", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, newError(CategoryOutage, "read response", err)
	}
	return resp.StatusCode, payload, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func statusError(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ports.ErrUnknownTransaction
	case status == http.StatusTooManyRequests || status >= 500:
		return newError(CategoryOutage, fmt.Sprintf("verifier returned %d", status), nil)
	default:
		return newError(CategoryRejected, fmt.Sprintf("verifier returned %d", status), nil)
	}
}

func parseStartResponse(status int, body []byte) (ports.PendingTransaction, error) {
	if status != http.StatusCreated && status != http.StatusOK {
		return ports.PendingTransaction{}, statusError(status)
	}
	var resp startResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ports.PendingTransaction{}, newError(CategoryBadData, "decode start response", err)
	}
	if resp.TransactionID == "" {
		return ports.PendingTransaction{}, newError(CategoryBadData, "missing transaction_id", nil)
	}
	return ports.PendingTransaction{TransactionID: resp.TransactionID, RequestURI: resp.RequestURI}, nil
}

func parsePollResponse(status int, body []byte) (ports.Result, error) {
	if status != http.StatusOK {
		return ports.Result{}, statusError(status)
	}
	var resp pollResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ports.Result{}, newError(CategoryBadData, "decode poll response", err)
	}
	switch ports.ResultState(resp.State) {
	case ports.ResultPending, ports.ResultExpired:
		return ports.Result{State: ports.ResultState(resp.State)}, nil
	case ports.ResultFailed:
		return ports.Result{State: ports.ResultFailed, Reason: resp.Reason}, nil
	case ports.ResultVerified:
		rank, err := id.ParseRank(resp.Rank)
		if err != nil {
			return ports.Result{}, newError(CategoryBadData, "verified claim carries unknown rank", err)
		}
		if strings.TrimSpace(resp.DID) == "" {
			return ports.Result{}, newError(CategoryBadData, "verified claim carries no did", nil)
		}
		return ports.Result{State: ports.ResultVerified, DID: resp.DID, Rank: rank}, nil
	default:
		return ports.Result{}, newError(CategoryBadData, "unknown state "+resp.State, nil)
	}
}
