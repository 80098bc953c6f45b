package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/itemshare/item-share-backend/internal/item"
)

func TestCheckBookable(t *testing.T) {
	tests := []struct {
		name      string
		item      *item.Item
		requester int64
		wantErr   error
	}{
		{
			name:      "available item, different requester",
			item:      &item.Item{ID: 1, OwnerID: 10, Available: true},
			requester: 20,
			wantErr:   nil,
		},
		{
			name:      "unavailable item",
			item:      &item.Item{ID: 1, OwnerID: 10, Available: false},
			requester: 20,
			wantErr:   ErrItemUnavailable,
		},
		{
			name:      "owner booking own item",
			item:      &item.Item{ID: 1, OwnerID: 10, Available: true},
			requester: 10,
			wantErr:   ErrSelfBooking,
		},
		{
			name:      "unavailable wins over self-booking",
			item:      &item.Item{ID: 1, OwnerID: 10, Available: false},
			requester: 10,
			wantErr:   ErrItemUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBookable(tt.item, tt.requester)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateInterval(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start, end time.Time
		wantErr    error
	}{
		{"valid future window", now.Add(time.Hour), now.Add(2 * time.Hour), nil},
		{"starts exactly now", now, now.Add(time.Hour), nil},
		{"end before start", now.Add(2 * time.Hour), now.Add(time.Hour), ErrInvalidTimeRange},
		{"end equals start", now.Add(time.Hour), now.Add(time.Hour), ErrInvalidTimeRange},
		{"start in the past", now.Add(-time.Hour), now.Add(time.Hour), ErrStartTimePast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInterval(tt.start, tt.end, now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBookingOverlaps(t *testing.T) {
	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	b := &Booking{Start: base, End: base.Add(time.Hour)} // [10:00, 11:00)

	assert.True(t, b.Overlaps(base.Add(30*time.Minute), base.Add(90*time.Minute)))
	assert.True(t, b.Overlaps(base.Add(-30*time.Minute), base.Add(30*time.Minute)))
	assert.True(t, b.Overlaps(base, base.Add(time.Hour)))

	// Touching intervals do not overlap: [10:00,11:00) and [11:00,12:00).
	assert.False(t, b.Overlaps(base.Add(time.Hour), base.Add(2*time.Hour)))
	assert.False(t, b.Overlaps(base.Add(-time.Hour), base))
}
