package booking

import (
	"sort"
	"time"
)

// Classify filters bookings by state relative to now and returns them in
// the canonical list order: descending by start time, ties broken by
// ascending id. The total order is deterministic so pagination over an
// unchanged set is stable and non-overlapping.
func Classify(bookings []*Booking, now time.Time, state State) []*Booking {
	out := make([]*Booking, 0, len(bookings))
	for _, b := range bookings {
		if state.matches(b, now) {
			out = append(out, b)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.After(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})

	return out
}
