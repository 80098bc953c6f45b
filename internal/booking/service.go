package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/itemshare/item-share-backend/internal/cache"
	"github.com/itemshare/item-share-backend/internal/item"
	"github.com/itemshare/item-share-backend/internal/metrics"
	"github.com/itemshare/item-share-backend/internal/pkg/keylock"
	"github.com/itemshare/item-share-backend/internal/pkg/request"
	"github.com/itemshare/item-share-backend/internal/user"
)

// ItemFinder is the slice of the item module the booking engine needs.
type ItemFinder interface {
	GetByID(ctx context.Context, id int64) (*item.Item, error)
}

// UserFinder is the slice of the user module the booking engine needs.
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

type CreateRequest struct {
	ItemID   int64
	BookerID int64
	Start    time.Time
	End      time.Time
}

type Service interface {
	// Create records a reservation request in status WAITING. Overlap with
	// existing WAITING or APPROVED bookings is deliberately allowed here;
	// competing requests stay visible to the owner and the conflict is
	// resolved at decision time.
	Create(ctx context.Context, req CreateRequest) (*Booking, error)

	// Decide is the owner's one-shot WAITING -> APPROVED/REJECTED transition.
	Decide(ctx context.Context, bookingID, callerID int64, approved bool) (*Booking, error)

	// GetByID returns the booking to its booker or the item's owner. Anyone
	// else gets ErrNotFound, indistinguishable from a nonexistent id.
	GetByID(ctx context.Context, bookingID, callerID int64) (*Booking, error)

	// ListByBooker returns the caller's own bookings filtered by state.
	ListByBooker(ctx context.Context, callerID int64, state string, page request.ListParams) ([]*Booking, error)

	// ListByOwner returns bookings against the caller's items filtered by state.
	ListByOwner(ctx context.Context, callerID int64, state string, page request.ListParams) ([]*Booking, error)
}

type service struct {
	repo    Repository
	items   ItemFinder
	users   UserFinder
	locks   *keylock.KeyLock
	cache   cache.Cache
	metrics *metrics.Metrics
	logger  zerolog.Logger

	now func() time.Time
}

func NewService(
	repo Repository,
	items ItemFinder,
	users UserFinder,
	listCache cache.Cache,
	m *metrics.Metrics,
	logger zerolog.Logger,
) Service {
	return &service{
		repo:    repo,
		items:   items,
		users:   users,
		locks:   keylock.New(),
		cache:   listCache,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if err := validateInterval(req.Start, req.End, s.now()); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, req.BookerID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	it, err := s.items.GetByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if err := checkBookable(it, req.BookerID); err != nil {
		return nil, err
	}

	b := &Booking{
		ItemID:   req.ItemID,
		BookerID: req.BookerID,
		Start:    req.Start,
		End:      req.End,
		Status:   StatusWaiting,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.metrics.BookingsCreated.Inc()
	s.invalidateLists(ctx, b.BookerID, it.OwnerID)
	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("item_id", b.ItemID).
		Int64("booker_id", b.BookerID).
		Msg("booking created")

	return b, nil
}

func (s *service) Decide(ctx context.Context, bookingID, callerID int64, approved bool) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	it, err := s.items.GetByID(ctx, b.ItemID)
	if err != nil {
		return nil, err
	}

	// The booking's existence is already established, so an unauthorized
	// caller gets a Forbidden here, unlike the view path.
	if callerID != it.OwnerID {
		return nil, ErrPermissionDenied
	}

	if b.Status != StatusWaiting {
		return nil, ErrAlreadyDecided
	}

	// Serialize the read-decide-write sequence per item. The repository
	// transaction re-verifies both conditions, so a second process cannot
	// slip through even without this lock.
	s.locks.Lock(b.ItemID)
	defer s.locks.Unlock(b.ItemID)

	outcome := "rejected"
	if approved {
		siblings, err := s.repo.ListApprovedForItem(ctx, b.ItemID)
		if err != nil {
			return nil, err
		}
		for _, sib := range siblings {
			if sib.ID != b.ID && sib.Overlaps(b.Start, b.End) {
				return nil, ErrTimeConflict
			}
		}

		if err := s.repo.Approve(ctx, bookingID); err != nil {
			return nil, err
		}
		outcome = "approved"
	} else {
		if err := s.repo.Reject(ctx, bookingID); err != nil {
			return nil, err
		}
	}

	b, err = s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.metrics.BookingDecisions.WithLabelValues(outcome).Inc()
	s.invalidateLists(ctx, b.BookerID, it.OwnerID)
	s.logger.Info().
		Int64("booking_id", b.ID).
		Str("status", string(b.Status)).
		Msg("booking decided")

	return b, nil
}

func (s *service) GetByID(ctx context.Context, bookingID, callerID int64) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	it, err := s.items.GetByID(ctx, b.ItemID)
	if err != nil {
		return nil, err
	}

	// Existence is hidden from anyone who is neither booker nor owner.
	if callerID != b.BookerID && callerID != it.OwnerID {
		return nil, ErrNotFound
	}

	return b, nil
}

func (s *service) ListByBooker(ctx context.Context, callerID int64, state string, page request.ListParams) ([]*Booking, error) {
	return s.list(ctx, "booker", callerID, state, page, s.repo.ListByBooker)
}

func (s *service) ListByOwner(ctx context.Context, callerID int64, state string, page request.ListParams) ([]*Booking, error) {
	return s.list(ctx, "owner", callerID, state, page, s.repo.ListByOwnedItems)
}

func (s *service) list(
	ctx context.Context,
	scope string,
	callerID int64,
	state string,
	page request.ListParams,
	fetch func(context.Context, int64) ([]*Booking, error),
) ([]*Booking, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	st, err := ParseState(state)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, callerID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	key := listKey(scope, callerID, st, page)

	var cached []*Booking
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("booking list cache read failed")
	} else if hit {
		s.metrics.CacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	s.metrics.CacheHits.WithLabelValues("miss").Inc()

	all, err := fetch(ctx, callerID)
	if err != nil {
		return nil, err
	}

	result := request.Slice(Classify(all, s.now(), st), page)

	if err := s.cache.Set(ctx, key, result, callerID); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("booking list cache write failed")
	}

	return result, nil
}

func listKey(scope string, callerID int64, st State, page request.ListParams) string {
	return fmt.Sprintf("bookings:%s:%d:%s:%d:%d", scope, callerID, st, page.From, page.Size)
}

func (s *service) invalidateLists(ctx context.Context, bookerID, ownerID int64) {
	if err := s.cache.Invalidate(ctx, bookerID, ownerID); err != nil {
		s.logger.Warn().Err(err).Msg("booking list cache invalidation failed")
	}
}
