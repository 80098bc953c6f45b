package item

import (
	"net/http"
	"time"

	"github.com/itemshare/item-share-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "item not found")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, "only the item owner may do this")
	ErrNameRequired      = apperror.New(http.StatusBadRequest, "item name is required")
	ErrCommentNotAllowed = apperror.New(http.StatusBadRequest, "commenting requires a finished approved booking of the item")
	ErrEmptyComment      = apperror.New(http.StatusBadRequest, "comment text is required")
	ErrPhotoNotFound     = apperror.New(http.StatusNotFound, "item has no photo")
	ErrInvalidPhoto      = apperror.New(http.StatusBadRequest, "photo must be a decodable image")
)

// Item is something a user offers for booking. It refers to its owner by id
// only; no entity holds a live reference to another entity.
type Item struct {
	ID            int64
	OwnerID       int64
	Name          string
	Description   string
	Available     bool
	PhotoPath     *string
	ThumbnailPath *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Comment is feedback left on an item by a user who finished an approved
// booking of it.
type Comment struct {
	ID         int64
	ItemID     int64
	AuthorID   int64
	AuthorName string
	Text       string
	CreatedAt  time.Time
}
