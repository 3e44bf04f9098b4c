package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"rankgate/internal/events"
	"rankgate/internal/member/models"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
)

// InMemory keeps member snapshots in a map. Pending events are published while
// the write lock is held, so a publish failure leaves the map untouched.
type InMemory struct {
	mu        sync.RWMutex
	members   map[id.MemberID]models.MemberProfile
	publisher events.Publisher
}

func NewInMemory(publisher events.Publisher) *InMemory {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &InMemory{
		members:   make(map[id.MemberID]models.MemberProfile),
		publisher: publisher,
	}
}

func (s *InMemory) Save(ctx context.Context, m *models.MemberProfile) error {
	if m.IsNew() {
		return s.Create(ctx, m)
	}
	res, err := s.CompareAndSwap(ctx, m, m.PersistedVersion())
	if err != nil {
		return err
	}
	return res.Err()
}

func (s *InMemory) Create(ctx context.Context, m *models.MemberProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[m.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if s.uniqueTakenLocked(m) {
		return sentinel.ErrAlreadyUsed
	}
	if err := s.publisher.Publish(ctx, m.PendingEvents()...); err != nil {
		return err
	}
	s.members[m.ID] = snapshot(m)
	m.MarkPersisted(m.Version)
	m.DrainEvents()
	return nil
}

func (s *InMemory) CompareAndSwap(ctx context.Context, m *models.MemberProfile, expectedVersion int) (cas.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.members[m.ID]
	if !ok {
		return cas.NotFound, nil
	}
	if current.Version != expectedVersion {
		return cas.Conflict, nil
	}
	if s.uniqueTakenLocked(m) {
		return cas.Swapped, sentinel.ErrAlreadyUsed
	}
	if err := s.publisher.Publish(ctx, m.PendingEvents()...); err != nil {
		return cas.Swapped, err
	}
	s.members[m.ID] = snapshot(m)
	m.MarkPersisted(m.Version)
	m.DrainEvents()
	return cas.Swapped, nil
}

// uniqueTakenLocked reports whether another member holds m's subject or DID.
func (s *InMemory) uniqueTakenLocked(m *models.MemberProfile) bool {
	for otherID, other := range s.members {
		if otherID == m.ID {
			continue
		}
		if other.OIDCSubjectID == m.OIDCSubjectID {
			return true
		}
		if m.LinkedVCDID != "" && other.LinkedVCDID == m.LinkedVCDID {
			return true
		}
	}
	return false
}

func (s *InMemory) FindByID(_ context.Context, memberID id.MemberID) (*models.MemberProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rehydrate(m), nil
}

func (s *InMemory) FindByOIDCSubjectID(_ context.Context, subject string) (*models.MemberProfile, error) {
	return s.findFirst(func(m models.MemberProfile) bool { return m.OIDCSubjectID == subject })
}

func (s *InMemory) FindByLinkedVCDID(_ context.Context, did string) (*models.MemberProfile, error) {
	if did == "" {
		return nil, sentinel.ErrNotFound
	}
	return s.findFirst(func(m models.MemberProfile) bool { return m.LinkedVCDID == did })
}

func (s *InMemory) ExistsByLinkedVCDID(ctx context.Context, did string) (bool, error) {
	_, err := s.FindByLinkedVCDID(ctx, did)
	return existsFrom(err)
}

func (s *InMemory) ExistsByOIDCSubjectID(ctx context.Context, subject string) (bool, error) {
	_, err := s.FindByOIDCSubjectID(ctx, subject)
	return existsFrom(err)
}

func (s *InMemory) ListByStatus(_ context.Context, status models.Status) ([]*models.MemberProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.MemberProfile
	for _, m := range s.members {
		if m.Status == status {
			out = append(out, rehydrate(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Delete is idempotent.
func (s *InMemory) Delete(_ context.Context, memberID id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, memberID)
	return nil
}

func (s *InMemory) findFirst(match func(models.MemberProfile) bool) (*models.MemberProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if match(m) {
			return rehydrate(m), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func snapshot(m *models.MemberProfile) models.MemberProfile {
	snap := *m
	snap.Recorder = events.Recorder{}
	snap.Tracker = cas.Tracker{}
	return snap
}

func rehydrate(snap models.MemberProfile) *models.MemberProfile {
	m := snap
	m.MarkPersisted(m.Version)
	return &m
}

func existsFrom(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
