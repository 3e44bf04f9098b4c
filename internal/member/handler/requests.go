package handler

import (
	"strings"

	dErrors "rankgate/pkg/domain-errors"
	pstrings "rankgate/pkg/platform/strings"
)

const maxProfileFieldLen = 500

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	IDToken string `json:"id_token"`
}

func (r *LoginRequest) Validate() error {
	r.IDToken = strings.TrimSpace(r.IDToken)
	if r.IDToken == "" {
		return dErrors.New(dErrors.CodeValidation, "id_token is required")
	}
	return nil
}

// UpdateProfileRequest is the body of PATCH /members/me/profile.
type UpdateProfileRequest struct {
	Gender    string `json:"gender"`
	Interests string `json:"interests"`
}

func (r *UpdateProfileRequest) Validate() error {
	r.Gender = strings.TrimSpace(r.Gender)
	// Interests are a comma-separated list; repeated entries collapse.
	r.Interests = pstrings.NormalizeList(r.Interests)
	if r.Gender == "" || r.Interests == "" {
		return dErrors.New(dErrors.CodeValidation, "gender and interests are required")
	}
	if len(r.Gender) > maxProfileFieldLen || len(r.Interests) > maxProfileFieldLen {
		return dErrors.New(dErrors.CodeValidation, "profile fields must be at most 500 characters")
	}
	return nil
}
