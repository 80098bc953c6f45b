package booking

import (
	"net/http"
	"time"

	"github.com/itemshare/item-share-backend/internal/pkg/apperror"
)

// State selects a subset of bookings by temporal relation to a reference
// instant (CURRENT, PAST, FUTURE) or by decision status (WAITING, REJECTED).
type State string

const (
	StateAll      State = "ALL"
	StateCurrent  State = "CURRENT"
	StatePast     State = "PAST"
	StateFuture   State = "FUTURE"
	StateWaiting  State = "WAITING"
	StateRejected State = "REJECTED"
)

// ParseState validates a state token. Tokens are case-sensitive; anything
// unrecognized is a client error, never a silent fallback to ALL.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected:
		return State(s), nil
	default:
		return "", apperror.Newf(http.StatusBadRequest, "unknown state: %s", s)
	}
}

// matches reports whether the booking belongs to the state's subset at the
// reference instant. Temporal states ignore status entirely.
func (st State) matches(b *Booking, now time.Time) bool {
	switch st {
	case StateCurrent:
		return !b.Start.After(now) && !b.End.Before(now)
	case StatePast:
		return b.End.Before(now)
	case StateFuture:
		return b.Start.After(now)
	case StateWaiting:
		return b.Status == StatusWaiting
	case StateRejected:
		return b.Status == StatusRejected
	default:
		return true
	}
}
