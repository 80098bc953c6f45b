package http

import (
	"time"

	"github.com/itemshare/item-share-backend/internal/item"
)

type ItemResponse struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Available   bool      `json:"available"`
	HasPhoto    bool      `json:"has_photo"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewItemResponse(it *item.Item) ItemResponse {
	return ItemResponse{
		ID:          it.ID,
		OwnerID:     it.OwnerID,
		Name:        it.Name,
		Description: it.Description,
		Available:   it.Available,
		HasPhoto:    it.PhotoPath != nil,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

// ItemTag holds minimal item info embedded in other responses.
type ItemTag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CommentResponse struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewCommentResponse(cm *item.Comment) CommentResponse {
	return CommentResponse{
		ID:         cm.ID,
		AuthorID:   cm.AuthorID,
		AuthorName: cm.AuthorName,
		Text:       cm.Text,
		CreatedAt:  cm.CreatedAt,
	}
}

type CreateItemBody struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Available   *bool  `json:"available" binding:"required"`
}

type UpdateItemBody struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

type CreateCommentBody struct {
	Text string `json:"text" binding:"required"`
}
