package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"rankgate/internal/verification/models"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.VerificationID]models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[id.VerificationID]models.Session)}
}

func (s *InMemory) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *InMemory) FindByID(_ context.Context, sessionID id.VerificationID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &session, nil
}

func (s *InMemory) FindPendingByMember(_ context.Context, memberID id.MemberID, now time.Time) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Session
	for _, session := range s.sessions {
		if session.MemberID != memberID || session.Status != models.StatusPending || session.IsExpired(now) {
			continue
		}
		if latest == nil || session.CreatedAt.After(latest.CreatedAt) {
			copied := session
			latest = &copied
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest, nil
}

func (s *InMemory) ListExpired(_ context.Context, now time.Time) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Session
	for _, session := range s.sessions {
		if session.IsExpired(now) {
			copied := session
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, sessionID id.VerificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}
