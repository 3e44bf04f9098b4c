package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankgate/internal/verification/ports"
	id "rankgate/pkg/domain"
)

func TestParsePollResponse(t *testing.T) {
	t.Run("verified claim", func(t *testing.T) {
		res, err := parsePollResponse(200, []byte(`{"state":"verified","did":"did:web:x","rank":"LIFE_WINNER_S"}`))
		require.NoError(t, err)
		assert.Equal(t, ports.ResultVerified, res.State)
		assert.Equal(t, "did:web:x", res.DID)
		assert.Equal(t, id.RankLifeWinnerS, res.Rank)
	})

	t.Run("pending and failed", func(t *testing.T) {
		res, err := parsePollResponse(200, []byte(`{"state":"pending"}`))
		require.NoError(t, err)
		assert.Equal(t, ports.ResultPending, res.State)

		res, err = parsePollResponse(200, []byte(`{"state":"failed","reason":"holder declined"}`))
		require.NoError(t, err)
		assert.Equal(t, "holder declined", res.Reason)
	})

	t.Run("unknown rank is bad data", func(t *testing.T) {
		_, err := parsePollResponse(200, []byte(`{"state":"verified","did":"did:x","rank":"KING"}`))
		assert.Equal(t, CategoryBadData, CategoryOf(err))
	})

	t.Run("malformed json is bad data", func(t *testing.T) {
		_, err := parsePollResponse(200, []byte(`{nope`))
		assert.Equal(t, CategoryBadData, CategoryOf(err))
	})

	t.Run("status mapping", func(t *testing.T) {
		_, err := parsePollResponse(404, nil)
		assert.ErrorIs(t, err, ports.ErrUnknownTransaction)

		_, err = parsePollResponse(503, nil)
		assert.Equal(t, CategoryOutage, CategoryOf(err))
		var ve *Error
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.Retryable())

		_, err = parsePollResponse(400, nil)
		assert.Equal(t, CategoryRejected, CategoryOf(err))
	})
}

func TestHTTPVerifierRoundTrip(t *testing.T) {
	memberID := id.NewMemberID()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/transactions":
			var req startRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Subject != memberID.String() {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"transaction_id":"tx-9","request_uri":"openid4vp://?x"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/transactions/tx-9":
			_, _ = w.Write([]byte(`{"state":"verified","did":"did:web:m","rank":"NEWBIE_VILLAGE"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL+"/", time.Second)
	pending, err := v.StartVerification(context.Background(), memberID)
	require.NoError(t, err)
	assert.Equal(t, "tx-9", pending.TransactionID)
	assert.Equal(t, "openid4vp://?x", pending.RequestURI)

	res, err := v.PollResult(context.Background(), "tx-9")
	require.NoError(t, err)
	assert.Equal(t, id.RankNewbieVillage, res.Rank)

	_, err = v.PollResult(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrUnknownTransaction)
}

func TestHTTPVerifierUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	v := NewHTTPVerifier(srv.URL, time.Second)
	_, err := v.StartVerification(context.Background(), id.NewMemberID())
	require.Error(t, err)
	assert.Contains(t, []Category{CategoryOutage, CategoryTimeout}, CategoryOf(err))
}

func TestStatic(t *testing.T) {
	s := NewStatic(id.RankQuasiWealthyVIP)
	memberID := id.NewMemberID()

	pending, err := s.StartVerification(context.Background(), memberID)
	require.NoError(t, err)
	assert.Equal(t, TransactionFor(memberID), pending.TransactionID)

	res, err := s.PollResult(context.Background(), pending.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, ports.ResultVerified, res.State)
	assert.Equal(t, "did:static:"+memberID.String(), res.DID)
	assert.Equal(t, id.RankQuasiWealthyVIP, res.Rank)

	s.Set(pending.TransactionID, ports.Result{State: ports.ResultPending})
	res, err = s.PollResult(context.Background(), pending.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, ports.ResultPending, res.State)

	_, err = s.PollResult(context.Background(), "other")
	assert.ErrorIs(t, err, ports.ErrUnknownTransaction)
}
