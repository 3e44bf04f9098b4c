package handler

import "rankgate/internal/forum/models"

type ListResponse struct {
	Forums []*models.Forum `json:"forums"`
}
