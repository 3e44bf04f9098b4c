package handler

import (
	"strings"

	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
)

const (
	maxCapacity       = 10000
	maxDescriptionLen = 1000
)

// CreateRequest is the body of POST /forums.
type CreateRequest struct {
	RequiredRank string `json:"required_rank"`
	Capacity     int    `json:"capacity"`
	Description  string `json:"description"`

	parsedRank id.Rank
}

func (r *CreateRequest) Validate() error {
	if r.Capacity <= 0 || r.Capacity > maxCapacity {
		return dErrors.New(dErrors.CodeValidation, "capacity must be between 1 and 10000")
	}
	r.Description = strings.TrimSpace(r.Description)
	if len(r.Description) > maxDescriptionLen {
		return dErrors.New(dErrors.CodeValidation, "description must be at most 1000 characters")
	}
	rank, err := id.ParseRank(r.RequiredRank)
	if err != nil {
		return err
	}
	r.parsedRank = rank
	return nil
}

func (r *CreateRequest) ParsedRank() id.Rank {
	return r.parsedRank
}
