package store

import (
	"fmt"

	"rankgate/internal/forum/models"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/sentinel"
)

var (
	ErrAlreadyMember = fmt.Errorf("%w: member has already joined this forum", sentinel.ErrAlreadyUsed)
	ErrNotMember     = fmt.Errorf("%w: member has not joined this forum", sentinel.ErrNotFound)
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Status models.Status
	Ranks  []id.Rank
}

func (f Filter) matches(forum models.Forum) bool {
	if f.Status != "" && forum.Status != f.Status {
		return false
	}
	if len(f.Ranks) == 0 {
		return true
	}
	for _, r := range f.Ranks {
		if forum.RequiredRank == r {
			return true
		}
	}
	return false
}
