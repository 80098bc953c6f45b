package booking

import (
	"time"

	"github.com/itemshare/item-share-backend/internal/item"
)

// checkBookable is the availability rule check: an item can be booked only
// while its available flag is set, and never by its own owner. Pure
// predicate over already-fetched entities, no side effects.
func checkBookable(it *item.Item, requesterID int64) error {
	if !it.Available {
		return ErrItemUnavailable
	}
	if requesterID == it.OwnerID {
		return ErrSelfBooking
	}
	return nil
}

// validateInterval checks the requested time window: end strictly after
// start, and nothing in the past relative to now.
func validateInterval(start, end, now time.Time) error {
	if !end.After(start) {
		return ErrInvalidTimeRange
	}
	if start.Before(now) {
		return ErrStartTimePast
	}
	return nil
}
