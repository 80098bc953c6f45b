package item

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/itemshare/item-share-backend/internal/pkg/request"
	"github.com/itemshare/item-share-backend/internal/pkg/storage"
)

// BookingChecker reports whether a user holds an approved booking of an
// item that has already ended. Implemented by the booking repository and
// injected here to keep the dependency one-directional.
type BookingChecker interface {
	HasFinishedApprovedBooking(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error)
}

type CreateRequest struct {
	OwnerID     int64
	Name        string
	Description string
	Available   bool
}

// UpdateRequest is a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	Name        *string
	Description *string
	Available   *bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Item, error)
	Update(ctx context.Context, id, callerID int64, req UpdateRequest) (*Item, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
	ListByOwner(ctx context.Context, ownerID int64, page request.ListParams) ([]*Item, error)
	Search(ctx context.Context, text string, page request.ListParams) ([]*Item, error)

	AddComment(ctx context.Context, itemID, authorID int64, text string) (*Comment, error)
	Comments(ctx context.Context, itemID int64) ([]*Comment, error)

	AttachPhoto(ctx context.Context, itemID, callerID int64, content io.Reader) error
	Photo(ctx context.Context, itemID int64, thumbnail bool) (io.ReadCloser, error)
}

const (
	thumbnailMaxWidth  = 320
	thumbnailMaxHeight = 320
)

type service struct {
	repo     Repository
	bookings BookingChecker
	store    storage.Storage
	images   *storage.ImageProcessor
	logger   zerolog.Logger
}

func NewService(
	repo Repository,
	bookings BookingChecker,
	store storage.Storage,
	images *storage.ImageProcessor,
	logger zerolog.Logger,
) Service {
	return &service{
		repo:     repo,
		bookings: bookings,
		store:    store,
		images:   images,
		logger:   logger,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	it := &Item{
		OwnerID:     req.OwnerID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Available:   req.Available,
	}

	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("item_id", it.ID).Int64("owner_id", it.OwnerID).Msg("item created")

	return it, nil
}

func (s *service) Update(ctx context.Context, id, callerID int64, req UpdateRequest) (*Item, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if it.OwnerID != callerID {
		return nil, ErrPermissionDenied
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		it.Name = name
	}
	if req.Description != nil {
		it.Description = strings.TrimSpace(*req.Description)
	}
	if req.Available != nil {
		it.Available = *req.Available
	}

	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}

	return it, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByOwner(ctx context.Context, ownerID int64, page request.ListParams) ([]*Item, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, ownerID, page.Size, page.From)
}

func (s *service) Search(ctx context.Context, text string, page request.ListParams) ([]*Item, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	// A blank query matches nothing rather than everything.
	text = strings.TrimSpace(text)
	if text == "" {
		return []*Item{}, nil
	}

	return s.repo.Search(ctx, text, page.Size, page.From)
}

func (s *service) AddComment(ctx context.Context, itemID, authorID int64, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	if _, err := s.repo.GetByID(ctx, itemID); err != nil {
		return nil, err
	}

	ok, err := s.bookings.HasFinishedApprovedBooking(ctx, itemID, authorID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to check booking history: %w", err)
	}
	if !ok {
		return nil, ErrCommentNotAllowed
	}

	cm := &Comment{
		ItemID:   itemID,
		AuthorID: authorID,
		Text:     text,
	}
	if err := s.repo.CreateComment(ctx, cm); err != nil {
		return nil, err
	}

	return cm, nil
}

func (s *service) Comments(ctx context.Context, itemID int64) ([]*Comment, error) {
	if _, err := s.repo.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, itemID)
}

func (s *service) AttachPhoto(ctx context.Context, itemID, callerID int64, content io.Reader) error {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if it.OwnerID != callerID {
		return ErrPermissionDenied
	}

	// Buffer the upload once; it is read twice (original + thumbnail).
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	thumb, err := s.images.GenerateThumbnail(bytes.NewReader(data), thumbnailMaxWidth, thumbnailMaxHeight)
	if err != nil {
		return ErrInvalidPhoto
	}

	photoPath := fmt.Sprintf("items/%d/photo.jpg", itemID)
	thumbPath := fmt.Sprintf("items/%d/thumbnail.jpg", itemID)

	if err := s.store.Save(ctx, photoPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store photo: %w", err)
	}
	if err := s.store.Save(ctx, thumbPath, thumb); err != nil {
		return fmt.Errorf("failed to store thumbnail: %w", err)
	}

	return s.repo.SetPhotoPaths(ctx, itemID, photoPath, thumbPath)
}

func (s *service) Photo(ctx context.Context, itemID int64, thumbnail bool) (io.ReadCloser, error) {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	path := it.PhotoPath
	if thumbnail {
		path = it.ThumbnailPath
	}
	if path == nil {
		return nil, ErrPhotoNotFound
	}

	rc, err := s.store.Get(ctx, *path)
	if err != nil {
		return nil, ErrPhotoNotFound
	}
	return rc, nil
}
