package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itemshare/item-share-backend/internal/pkg/request"
)

var refTime = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func at(hours int) time.Time {
	return refTime.Add(time.Duration(hours) * time.Hour)
}

func mk(id int64, start, end time.Time, status Status) *Booking {
	return &Booking{ID: id, ItemID: 1, BookerID: 1, Start: start, End: end, Status: status}
}

func ids(bs []*Booking) []int64 {
	out := make([]int64, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

func TestClassify_States(t *testing.T) {
	set := []*Booking{
		mk(1, at(-5), at(-3), StatusApproved), // past
		mk(2, at(-1), at(1), StatusApproved),  // current
		mk(3, at(-1), at(1), StatusRejected),  // current, rejected
		mk(4, at(2), at(4), StatusWaiting),    // future, waiting
		mk(5, at(5), at(6), StatusRejected),   // future, rejected
	}

	tests := []struct {
		state State
		want  []int64
	}{
		{StateAll, []int64{5, 4, 2, 3, 1}},
		{StateCurrent, []int64{2, 3}}, // status is irrelevant for temporal states
		{StatePast, []int64{1}},
		{StateFuture, []int64{5, 4}},
		{StateWaiting, []int64{4}},
		{StateRejected, []int64{5, 3}},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			got := Classify(set, refTime, tt.state)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestClassify_BoundariesAreInclusiveForCurrent(t *testing.T) {
	startsNow := mk(1, refTime, at(1), StatusWaiting)
	endsNow := mk(2, at(-1), refTime, StatusWaiting)

	got := Classify([]*Booking{startsNow, endsNow}, refTime, StateCurrent)
	assert.ElementsMatch(t, []int64{1, 2}, ids(got))

	// Neither boundary case is PAST or FUTURE.
	assert.Empty(t, Classify([]*Booking{startsNow, endsNow}, refTime, StatePast))
	assert.Empty(t, Classify([]*Booking{startsNow, endsNow}, refTime, StateFuture))
}

func TestClassify_OrderIsStartDescThenIDAsc(t *testing.T) {
	set := []*Booking{
		mk(7, at(1), at(2), StatusWaiting),
		mk(3, at(3), at(4), StatusWaiting),
		mk(9, at(1), at(2), StatusWaiting), // same start as 7, higher id
		mk(5, at(2), at(3), StatusWaiting),
	}

	got := Classify(set, refTime, StateAll)
	assert.Equal(t, []int64{3, 5, 7, 9}, ids(got))
}

func TestClassify_PagesConcatenateWithoutOverlap(t *testing.T) {
	var set []*Booking
	for i := int64(1); i <= 5; i++ {
		set = append(set, mk(i, at(int(i)), at(int(i)+1), StatusWaiting))
	}

	ordered := Classify(set, refTime, StateAll)
	require.Len(t, ordered, 5)

	page1 := request.Slice(ordered, request.ListParams{From: 0, Size: 2})
	page2 := request.Slice(ordered, request.ListParams{From: 2, Size: 2})
	combined := request.Slice(ordered, request.ListParams{From: 0, Size: 4})

	assert.Equal(t, ids(combined), append(ids(page1), ids(page2)...))
}

func TestClassify_OffsetPastEnd(t *testing.T) {
	set := []*Booking{mk(1, at(1), at(2), StatusWaiting)}

	got := request.Slice(Classify(set, refTime, StateAll), request.ListParams{From: 10, Size: 5})
	assert.Empty(t, got)
}
