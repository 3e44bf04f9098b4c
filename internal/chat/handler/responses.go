package handler

import "rankgate/internal/chat/models"

type ListResponse struct {
	Sessions []*models.PrivateChatSession `json:"sessions"`
}
