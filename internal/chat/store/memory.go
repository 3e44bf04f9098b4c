package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"rankgate/internal/chat/models"
	"rankgate/internal/events"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.RWMutex
	sessions  map[id.ChatSessionID]models.PrivateChatSession
	publisher events.Publisher
}

func NewInMemory(publisher events.Publisher) *InMemory {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &InMemory{sessions: make(map[id.ChatSessionID]models.PrivateChatSession), publisher: publisher}
}

func (s *InMemory) Save(ctx context.Context, sess *models.PrivateChatSession) error {
	if sess.IsNew() {
		return s.Create(ctx, sess)
	}
	res, err := s.CompareAndSwap(ctx, sess, sess.PersistedVersion())
	if err != nil {
		return err
	}
	return res.Err()
}

func (s *InMemory) Create(ctx context.Context, sess *models.PrivateChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	for _, other := range s.sessions {
		if other.TLKChannelID == sess.TLKChannelID {
			return sentinel.ErrAlreadyUsed
		}
		if sess.IsActive() && other.IsActive() && other.InvolvesMembers(sess.MemberAID, sess.MemberBID) {
			return ErrActivePairExists
		}
	}
	if err := s.publisher.Publish(ctx, sess.PendingEvents()...); err != nil {
		return err
	}
	s.sessions[sess.ID] = snapshot(sess)
	sess.MarkPersisted(sess.Version)
	sess.DrainEvents()
	return nil
}

func (s *InMemory) CompareAndSwap(ctx context.Context, sess *models.PrivateChatSession, expectedVersion int) (cas.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[sess.ID]
	if !ok {
		return cas.NotFound, nil
	}
	if current.Version != expectedVersion {
		return cas.Conflict, nil
	}
	if err := s.publisher.Publish(ctx, sess.PendingEvents()...); err != nil {
		return cas.Swapped, err
	}
	s.sessions[sess.ID] = snapshot(sess)
	sess.MarkPersisted(sess.Version)
	sess.DrainEvents()
	return cas.Swapped, nil
}

func (s *InMemory) FindByID(_ context.Context, sessionID id.ChatSessionID) (*models.PrivateChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rehydrate(sess), nil
}

func (s *InMemory) FindByTLKChannelID(_ context.Context, channelID string) (*models.PrivateChatSession, error) {
	found := s.filter(func(sess models.PrivateChatSession) bool { return sess.TLKChannelID == channelID })
	if len(found) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return found[0], nil
}

// FindActiveBetween returns the ACTIVE session pairing a and b, in either order.
func (s *InMemory) ExistsByTLKChannelID(_ context.Context, channelID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.TLKChannelID == channelID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) FindActiveBetween(_ context.Context, a, b id.MemberID) (*models.PrivateChatSession, error) {
	found := s.filter(func(sess models.PrivateChatSession) bool {
		return sess.Status == models.StatusActive && sess.InvolvesMembers(a, b)
	})
	if len(found) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return found[0], nil
}

func (s *InMemory) ListByMember(_ context.Context, memberID id.MemberID) ([]*models.PrivateChatSession, error) {
	return s.filter(func(sess models.PrivateChatSession) bool { return sess.InvolvesMember(memberID) }), nil
}

func (s *InMemory) ListByStatus(_ context.Context, status models.Status) ([]*models.PrivateChatSession, error) {
	return s.filter(func(sess models.PrivateChatSession) bool { return sess.Status == status }), nil
}

// ListExpiredActive returns ACTIVE sessions with ExpiresAt at or before cutoff.
func (s *InMemory) ListExpiredActive(_ context.Context, cutoff time.Time) ([]*models.PrivateChatSession, error) {
	return s.filter(func(sess models.PrivateChatSession) bool {
		return sess.Status == models.StatusActive && !sess.ExpiresAt.After(cutoff)
	}), nil
}

func (s *InMemory) Delete(_ context.Context, sessionID id.ChatSessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *InMemory) filter(match func(models.PrivateChatSession) bool) []*models.PrivateChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PrivateChatSession
	for _, sess := range s.sessions {
		if match(sess) {
			out = append(out, rehydrate(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}

func snapshot(sess *models.PrivateChatSession) models.PrivateChatSession {
	snap := *sess
	snap.Recorder = events.Recorder{}
	snap.Tracker = cas.Tracker{}
	return snap
}

func rehydrate(snap models.PrivateChatSession) *models.PrivateChatSession {
	sess := snap
	sess.MarkPersisted(sess.Version)
	return &sess
}
