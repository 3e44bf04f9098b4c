package handler

import (
	"time"

	forummodels "rankgate/internal/forum/models"
	"rankgate/internal/member/models"
)

// LoginResponse carries the session token and the member it belongs to.
type LoginResponse struct {
	AccessToken string                `json:"access_token"`
	TokenType   string                `json:"token_type"`
	ExpiresAt   time.Time             `json:"expires_at"`
	Member      *models.MemberProfile `json:"member"`
}

type ForumListResponse struct {
	Forums []*forummodels.Forum `json:"forums"`
}
