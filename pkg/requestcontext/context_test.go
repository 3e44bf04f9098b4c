package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "rankgate/pkg/domain"
)

func TestMemberID(t *testing.T) {
	_, ok := MemberID(context.Background())
	assert.False(t, ok)

	_, ok = MemberID(WithMemberID(context.Background(), id.MemberID{}))
	assert.False(t, ok, "nil id is anonymous")

	memberID := id.NewMemberID()
	got, ok := MemberID(WithMemberID(context.Background(), memberID))
	assert.True(t, ok)
	assert.Equal(t, memberID, got)
}

func TestNowFallsBackToWallClock(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}

func TestStringValues(t *testing.T) {
	ctx := WithRequestID(WithClientIP(context.Background(), "10.0.0.1"), "req-1")
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}
