package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"rankgate/internal/events"
	"rankgate/internal/forum/models"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.RWMutex
	forums    map[id.ForumID]models.Forum
	members   map[id.ForumID]map[id.MemberID]time.Time
	publisher events.Publisher
}

func NewInMemory(publisher events.Publisher) *InMemory {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &InMemory{
		forums:    make(map[id.ForumID]models.Forum),
		members:   make(map[id.ForumID]map[id.MemberID]time.Time),
		publisher: publisher,
	}
}

func (s *InMemory) Save(ctx context.Context, f *models.Forum) error {
	if f.IsNew() {
		return s.Create(ctx, f)
	}
	res, err := s.CompareAndSwap(ctx, f, f.PersistedVersion())
	if err != nil {
		return err
	}
	return res.Err()
}

func (s *InMemory) Create(ctx context.Context, f *models.Forum) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.forums[f.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	for _, other := range s.forums {
		if other.TLKChannelID == f.TLKChannelID {
			return sentinel.ErrAlreadyUsed
		}
	}
	if err := s.publisher.Publish(ctx, f.PendingEvents()...); err != nil {
		return err
	}
	s.forums[f.ID] = snapshot(f)
	f.MarkPersisted(f.Version)
	f.DrainEvents()
	return nil
}

func (s *InMemory) CompareAndSwap(ctx context.Context, f *models.Forum, expectedVersion int) (cas.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swapLocked(ctx, f, expectedVersion)
}

// AddMember records the membership and swaps f in as one step. A member who
// already joined gets ErrAlreadyMember.
func (s *InMemory) AddMember(ctx context.Context, f *models.Forum, memberID id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, joined := s.members[f.ID][memberID]; joined {
		return ErrAlreadyMember
	}
	res, err := s.swapLocked(ctx, f, f.PersistedVersion())
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}
	if s.members[f.ID] == nil {
		s.members[f.ID] = make(map[id.MemberID]time.Time)
	}
	s.members[f.ID][memberID] = f.UpdatedAt
	return nil
}

// RemoveMember drops the membership and swaps f in as one step.
func (s *InMemory) RemoveMember(ctx context.Context, f *models.Forum, memberID id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, joined := s.members[f.ID][memberID]; !joined {
		return ErrNotMember
	}
	res, err := s.swapLocked(ctx, f, f.PersistedVersion())
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}
	delete(s.members[f.ID], memberID)
	return nil
}

func (s *InMemory) IsMember(_ context.Context, forumID id.ForumID, memberID id.MemberID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, joined := s.members[forumID][memberID]
	return joined, nil
}

func (s *InMemory) swapLocked(ctx context.Context, f *models.Forum, expectedVersion int) (cas.Result, error) {
	current, ok := s.forums[f.ID]
	if !ok {
		return cas.NotFound, nil
	}
	if current.Version != expectedVersion {
		return cas.Conflict, nil
	}
	if err := s.publisher.Publish(ctx, f.PendingEvents()...); err != nil {
		return cas.Swapped, err
	}
	s.forums[f.ID] = snapshot(f)
	f.MarkPersisted(f.Version)
	f.DrainEvents()
	return cas.Swapped, nil
}

func (s *InMemory) FindByID(_ context.Context, forumID id.ForumID) (*models.Forum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.forums[forumID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rehydrate(f), nil
}

func (s *InMemory) FindByTLKChannelID(_ context.Context, channelID string) (*models.Forum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.forums {
		if f.TLKChannelID == channelID {
			return rehydrate(f), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ExistsByTLKChannelID(_ context.Context, channelID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.forums {
		if f.TLKChannelID == channelID {
			return true, nil
		}
	}
	return false, nil
}

// List returns matching forums, oldest first.
func (s *InMemory) List(_ context.Context, filter Filter) ([]*models.Forum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Forum
	for _, f := range s.forums {
		if filter.matches(f) {
			out = append(out, rehydrate(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) ListByStatus(ctx context.Context, status models.Status) ([]*models.Forum, error) {
	return s.List(ctx, Filter{Status: status})
}

func (s *InMemory) ListByRank(ctx context.Context, rank id.Rank) ([]*models.Forum, error) {
	return s.List(ctx, Filter{Ranks: []id.Rank{rank}})
}

func (s *InMemory) Delete(_ context.Context, forumID id.ForumID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forums, forumID)
	delete(s.members, forumID)
	return nil
}

func snapshot(f *models.Forum) models.Forum {
	snap := *f
	snap.Recorder = events.Recorder{}
	snap.Tracker = cas.Tracker{}
	return snap
}

func rehydrate(snap models.Forum) *models.Forum {
	f := snap
	f.MarkPersisted(f.Version)
	return &f
}
