// Package requestcontext holds HTTP-independent accessors for request-scoped
// values. Middleware sets them; services and handlers read them without
// importing net/http.
//
//	memberID, ok := requestcontext.MemberID(ctx)
//	now := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"time"

	id "rankgate/pkg/domain"
)

type (
	memberIDKey    struct{}
	clientIPKey    struct{}
	deviceKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// MemberID returns the authenticated member. ok is false for anonymous
// requests.
func MemberID(ctx context.Context) (id.MemberID, bool) {
	memberID, ok := ctx.Value(memberIDKey{}).(id.MemberID)
	return memberID, ok && !memberID.IsNil()
}

func WithMemberID(ctx context.Context, memberID id.MemberID) context.Context {
	return context.WithValue(ctx, memberIDKey{}, memberID)
}

func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// Device is a human readable label for the caller's user agent.
func Device(ctx context.Context) string {
	if device, ok := ctx.Value(deviceKey{}).(string); ok {
		return device
	}
	return ""
}

func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceKey{}, device)
}

func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, falling back to time.Now() outside
// HTTP (sweeper, relay, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
