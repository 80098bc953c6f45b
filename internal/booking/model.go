package booking

import (
	"net/http"
	"time"

	"github.com/itemshare/item-share-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "booking not found")
	ErrItemNotFound     = apperror.New(http.StatusNotFound, "item not found")
	ErrUserNotFound     = apperror.New(http.StatusNotFound, "user not found")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "only the item owner may decide a booking")
	ErrInvalidTimeRange = apperror.New(http.StatusBadRequest, "end time must be after start time")
	ErrStartTimePast    = apperror.New(http.StatusBadRequest, "cannot create booking in the past")
	ErrItemUnavailable  = apperror.New(http.StatusBadRequest, "item is not available for booking")
	ErrSelfBooking      = apperror.New(http.StatusBadRequest, "owner cannot book their own item")
	ErrAlreadyDecided   = apperror.New(http.StatusConflict, "booking has already been decided")
	ErrTimeConflict     = apperror.New(http.StatusConflict, "an approved booking already occupies this time slot")
)

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	// StatusCanceled is reserved; no operation currently produces it.
	StatusCanceled Status = "CANCELED"
)

// Booking is a reservation of one item by one user for a time interval.
// Item and booker are referenced by id only. Start, End, ItemID and
// BookerID are immutable after creation; only Status changes, exactly once,
// WAITING -> APPROVED or WAITING -> REJECTED.
type Booking struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	BookerID  int64     `json:"booker_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overlaps reports whether the booking's interval [Start, End) intersects
// [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}
