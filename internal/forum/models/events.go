package models

import (
	"time"

	id "rankgate/pkg/domain"
)

// ForumArchived is emitted once when a forum is soft-deleted.
type ForumArchived struct {
	ForumID   id.ForumID `json:"forum_id"`
	Timestamp time.Time  `json:"timestamp"`
}

func (ForumArchived) EventType() string       { return "forum.archived" }
func (ForumArchived) AggregateType() string   { return "forum" }
func (e ForumArchived) AggregateID() string   { return e.ForumID.String() }
func (e ForumArchived) OccurredAt() time.Time { return e.Timestamp }
