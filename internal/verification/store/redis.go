package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"rankgate/internal/verification/models"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "verification:session:"
	memberKeyPrefix  = "verification:member:"
	expiryIndexKey   = "verification:expiry"

	// DefaultRetention keeps a session readable after it expires so members
	// polling late see EXPIRED rather than not_found, until the sweep runs.
	DefaultRetention = time.Hour
)

// RedisStore keeps each session as a JSON value whose TTL outlives ExpiresAt
// by the retention window. A sorted set scored by ExpiresAt backs ListExpired
// and a set per member backs FindPendingByMember.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

type RedisOption func(*RedisStore)

func WithRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, retention: DefaultRetention}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func sessionKey(sessionID id.VerificationID) string { return sessionKeyPrefix + sessionID.String() }
func memberKey(memberID id.MemberID) string         { return memberKeyPrefix + memberID.String() }

func (s *RedisStore) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode verification session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), payload, ttl)
		pipe.ZAdd(ctx, expiryIndexKey, redis.Z{Score: float64(session.ExpiresAt.UnixMilli()), Member: session.ID.String()})
		pipe.SAdd(ctx, memberKey(session.MemberID), session.ID.String())
		pipe.Expire(ctx, memberKey(session.MemberID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save verification session: %w: %w", sentinel.ErrStorage, err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.VerificationID) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load verification session: %w: %w", sentinel.ErrStorage, err)
	}
	return decode(raw)
}

func (s *RedisStore) FindPendingByMember(ctx context.Context, memberID id.MemberID, now time.Time) (*models.Session, error) {
	ids, err := s.client.SMembers(ctx, memberKey(memberID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load member verifications: %w: %w", sentinel.ErrStorage, err)
	}
	sessions, err := s.loadAll(ctx, ids)
	if err != nil {
		return nil, err
	}
	var latest *models.Session
	for _, session := range sessions {
		if session.Status != models.StatusPending || session.IsExpired(now) {
			continue
		}
		if latest == nil || session.CreatedAt.After(latest.CreatedAt) {
			latest = session
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest, nil
}

func (s *RedisStore) ListExpired(ctx context.Context, now time.Time) ([]*models.Session, error) {
	ids, err := s.client.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list expired verifications: %w: %w", sentinel.ErrStorage, err)
	}
	return s.loadAll(ctx, ids)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.VerificationID) error {
	session, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sessionID))
		pipe.ZRem(ctx, expiryIndexKey, sessionID.String())
		pipe.SRem(ctx, memberKey(session.MemberID), sessionID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete verification session: %w: %w", sentinel.ErrStorage, err)
	}
	return nil
}

// loadAll fetches ids in one MGET. Ids whose value has already been evicted
// by TTL are dropped from the expiry index.
func (s *RedisStore) loadAll(ctx context.Context, ids []string) ([]*models.Session, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, raw := range ids {
		keys[i] = sessionKeyPrefix + raw
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load verification sessions: %w: %w", sentinel.ErrStorage, err)
	}
	out := make([]*models.Session, 0, len(values))
	var stale []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		session, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	if len(stale) > 0 {
		_ = s.client.ZRem(ctx, expiryIndexKey, stale...).Err()
	}
	return out, nil
}

func decode(raw []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode verification session: %w: %w", sentinel.ErrStorage, err)
	}
	return &session, nil
}
