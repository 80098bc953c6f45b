package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itemshare/item-share-backend/internal/cache"
	"github.com/itemshare/item-share-backend/internal/item"
	"github.com/itemshare/item-share-backend/internal/metrics"
	"github.com/itemshare/item-share-backend/internal/pkg/request"
	"github.com/itemshare/item-share-backend/internal/user"
)

// promauto registers in the default registry, so the metrics bundle must be
// built exactly once per test binary.
var testMetrics = metrics.New()

type fakeItems struct {
	items map[int64]*item.Item
}

func (f *fakeItems) GetByID(ctx context.Context, id int64) (*item.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, item.ErrNotFound
	}
	return it, nil
}

type fakeUsers struct {
	users map[int64]*user.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

// fakeRepo mirrors the transactional guarantees of the pgx repository: the
// status guard and the overlap re-check both live inside Approve.
type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	store  map[int64]*Booking
	items  *fakeItems
}

func newFakeRepo(items *fakeItems) *fakeRepo {
	return &fakeRepo{store: make(map[int64]*Booking), items: items}
}

func (r *fakeRepo) Create(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = r.nextID
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	r.store[b.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id int64) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) ListByBooker(ctx context.Context, bookerID int64) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Booking
	for _, b := range r.store {
		if b.BookerID == bookerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListByOwnedItems(ctx context.Context, ownerID int64) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Booking
	for _, b := range r.store {
		if it, ok := r.items.items[b.ItemID]; ok && it.OwnerID == ownerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListApprovedForItem(ctx context.Context, itemID int64) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Booking
	for _, b := range r.store {
		if b.ItemID == itemID && b.Status == StatusApproved {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) Approve(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.store[id]
	if !ok {
		return ErrNotFound
	}
	if b.Status != StatusWaiting {
		return ErrAlreadyDecided
	}
	for _, sib := range r.store {
		if sib.ID != id && sib.ItemID == b.ItemID && sib.Status == StatusApproved &&
			sib.Overlaps(b.Start, b.End) {
			return ErrTimeConflict
		}
	}
	b.Status = StatusApproved
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeRepo) Reject(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.store[id]
	if !ok {
		return ErrNotFound
	}
	if b.Status != StatusWaiting {
		return ErrAlreadyDecided
	}
	b.Status = StatusRejected
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeRepo) HasFinishedApprovedBooking(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.store {
		if b.ItemID == itemID && b.BookerID == bookerID &&
			b.Status == StatusApproved && b.End.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	svc   *service
	repo  *fakeRepo
	items *fakeItems
	users *fakeUsers
}

const (
	ownerID    = int64(1)
	bookerID   = int64(2)
	strangerID = int64(3)
	itemID     = int64(100)
)

func newFixture(t *testing.T, c cache.Cache) *fixture {
	t.Helper()

	items := &fakeItems{items: map[int64]*item.Item{
		itemID: {ID: itemID, OwnerID: ownerID, Name: "drill", Available: true},
	}}
	users := &fakeUsers{users: map[int64]*user.User{
		ownerID:    {ID: ownerID, Email: "owner@example.com"},
		bookerID:   {ID: bookerID, Email: "booker@example.com"},
		strangerID: {ID: strangerID, Email: "stranger@example.com"},
	}}
	repo := newFakeRepo(items)

	if c == nil {
		c = cache.NewNoop()
	}
	svc := NewService(repo, items, users, c, testMetrics, zerolog.Nop()).(*service)
	svc.now = func() time.Time { return refTime }

	return &fixture{svc: svc, repo: repo, items: items, users: users}
}

func (f *fixture) create(t *testing.T, bookerID int64, start, end time.Time) *Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), CreateRequest{
		ItemID:   itemID,
		BookerID: bookerID,
		Start:    start,
		End:      end,
	})
	require.NoError(t, err)
	return b
}

func TestServiceCreate_StartsWaiting(t *testing.T) {
	f := newFixture(t, nil)

	b := f.create(t, bookerID, at(1), at(2))

	assert.Equal(t, StatusWaiting, b.Status)
	assert.NotZero(t, b.ID)
	assert.Equal(t, itemID, b.ItemID)
	assert.Equal(t, bookerID, b.BookerID)
}

func TestServiceCreate_ValidationFailures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{
			name:    "end before start",
			req:     CreateRequest{ItemID: itemID, BookerID: bookerID, Start: at(2), End: at(1)},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "zero-length window",
			req:     CreateRequest{ItemID: itemID, BookerID: bookerID, Start: at(1), End: at(1)},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "start in the past",
			req:     CreateRequest{ItemID: itemID, BookerID: bookerID, Start: at(-1), End: at(1)},
			wantErr: ErrStartTimePast,
		},
		{
			name:    "unknown booker",
			req:     CreateRequest{ItemID: itemID, BookerID: 999, Start: at(1), End: at(2)},
			wantErr: ErrUserNotFound,
		},
		{
			name:    "unknown item",
			req:     CreateRequest{ItemID: 999, BookerID: bookerID, Start: at(1), End: at(2)},
			wantErr: ErrItemNotFound,
		},
		{
			name:    "owner booking own item",
			req:     CreateRequest{ItemID: itemID, BookerID: ownerID, Start: at(1), End: at(2)},
			wantErr: ErrSelfBooking,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestServiceCreate_UnavailableItem(t *testing.T) {
	f := newFixture(t, nil)
	f.items.items[itemID].Available = false

	_, err := f.svc.Create(context.Background(), CreateRequest{
		ItemID: itemID, BookerID: bookerID, Start: at(1), End: at(2),
	})
	assert.ErrorIs(t, err, ErrItemUnavailable)
}

func TestServiceCreate_OverlappingWaitingRequestsBothSucceed(t *testing.T) {
	f := newFixture(t, nil)

	b1 := f.create(t, bookerID, at(1), at(3))
	b2 := f.create(t, strangerID, at(2), at(4))

	assert.Equal(t, StatusWaiting, b1.Status)
	assert.Equal(t, StatusWaiting, b2.Status)
}

func TestServiceDecide_Approve(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b := f.create(t, bookerID, at(1), at(2))

	decided, err := f.svc.Decide(ctx, b.ID, ownerID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, decided.Status)

	// The transition is one-shot.
	_, err = f.svc.Decide(ctx, b.ID, ownerID, true)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	_, err = f.svc.Decide(ctx, b.ID, ownerID, false)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestServiceDecide_Reject(t *testing.T) {
	f := newFixture(t, nil)

	b := f.create(t, bookerID, at(1), at(2))

	decided, err := f.svc.Decide(context.Background(), b.ID, ownerID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, decided.Status)
}

func TestServiceDecide_OnlyOwnerMayDecide(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b := f.create(t, bookerID, at(1), at(2))

	_, err := f.svc.Decide(ctx, b.ID, bookerID, true)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = f.svc.Decide(ctx, b.ID, strangerID, false)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestServiceDecide_UnknownBooking(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Decide(context.Background(), 999, ownerID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDecide_ApprovalConflictIsSymmetric(t *testing.T) {
	ctx := context.Background()

	// Approving the first of two overlapping requests blocks the second,
	// regardless of which one the owner picks.
	t.Run("first then second", func(t *testing.T) {
		f := newFixture(t, nil)
		b1 := f.create(t, bookerID, at(1), at(3))
		b2 := f.create(t, strangerID, at(2), at(4))

		_, err := f.svc.Decide(ctx, b1.ID, ownerID, true)
		require.NoError(t, err)

		_, err = f.svc.Decide(ctx, b2.ID, ownerID, true)
		assert.ErrorIs(t, err, ErrTimeConflict)
	})

	t.Run("second then first", func(t *testing.T) {
		f := newFixture(t, nil)
		b1 := f.create(t, bookerID, at(1), at(3))
		b2 := f.create(t, strangerID, at(2), at(4))

		_, err := f.svc.Decide(ctx, b2.ID, ownerID, true)
		require.NoError(t, err)

		_, err = f.svc.Decide(ctx, b1.ID, ownerID, true)
		assert.ErrorIs(t, err, ErrTimeConflict)
	})
}

func TestServiceDecide_TouchingWindowsDoNotConflict(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b1 := f.create(t, bookerID, at(1), at(2))
	b2 := f.create(t, strangerID, at(2), at(3))

	_, err := f.svc.Decide(ctx, b1.ID, ownerID, true)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, b2.ID, ownerID, true)
	assert.NoError(t, err)
}

func TestServiceDecide_RejectionNeverConflicts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b1 := f.create(t, bookerID, at(1), at(3))
	b2 := f.create(t, strangerID, at(2), at(4))

	_, err := f.svc.Decide(ctx, b1.ID, ownerID, true)
	require.NoError(t, err)

	decided, err := f.svc.Decide(ctx, b2.ID, ownerID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, decided.Status)
}

func TestServiceGetByID_Visibility(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b := f.create(t, bookerID, at(1), at(2))

	got, err := f.svc.GetByID(ctx, b.ID, bookerID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	got, err = f.svc.GetByID(ctx, b.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	// A stranger cannot tell an inaccessible booking from a missing one.
	_, err = f.svc.GetByID(ctx, b.ID, strangerID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetByID(ctx, 999, strangerID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceList_FiltersByState(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	waiting := f.create(t, bookerID, at(1), at(2))
	rejected := f.create(t, bookerID, at(3), at(4))
	_, err := f.svc.Decide(ctx, rejected.ID, ownerID, false)
	require.NoError(t, err)

	page := request.ListParams{From: 0, Size: request.DefaultPageSize}

	got, err := f.svc.ListByBooker(ctx, bookerID, "WAITING", page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, waiting.ID, got[0].ID)

	got, err = f.svc.ListByBooker(ctx, bookerID, "REJECTED", page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rejected.ID, got[0].ID)

	got, err = f.svc.ListByBooker(ctx, bookerID, "ALL", page)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestServiceList_OwnerScopeSeesAllBookers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.create(t, bookerID, at(1), at(2))
	f.create(t, strangerID, at(3), at(4))

	page := request.ListParams{From: 0, Size: request.DefaultPageSize}

	got, err := f.svc.ListByOwner(ctx, ownerID, "ALL", page)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// The booker's own scope only covers their requests.
	got, err = f.svc.ListByBooker(ctx, bookerID, "ALL", page)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestServiceList_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	page := request.ListParams{From: 0, Size: request.DefaultPageSize}

	_, err := f.svc.ListByBooker(ctx, bookerID, "BOGUS", page)
	assert.Error(t, err)

	_, err = f.svc.ListByBooker(ctx, bookerID, "ALL", request.ListParams{From: -1, Size: 20})
	assert.ErrorIs(t, err, request.ErrInvalidFrom)

	_, err = f.svc.ListByBooker(ctx, bookerID, "ALL", request.ListParams{From: 0, Size: 0})
	assert.ErrorIs(t, err, request.ErrInvalidSize)

	_, err = f.svc.ListByBooker(ctx, 999, "ALL", page)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestServiceList_Pagination(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.create(t, bookerID, at(2*i+1), at(2*i+2))
	}

	first, err := f.svc.ListByBooker(ctx, bookerID, "ALL", request.ListParams{From: 0, Size: 2})
	require.NoError(t, err)
	second, err := f.svc.ListByBooker(ctx, bookerID, "ALL", request.ListParams{From: 2, Size: 2})
	require.NoError(t, err)
	third, err := f.svc.ListByBooker(ctx, bookerID, "ALL", request.ListParams{From: 4, Size: 2})
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	require.Len(t, third, 1)

	seen := make(map[int64]bool)
	for _, b := range append(append(first, second...), third...) {
		assert.False(t, seen[b.ID], "booking %d appeared on two pages", b.ID)
		seen[b.ID] = true
	}

	empty, err := f.svc.ListByBooker(ctx, bookerID, "ALL", request.ListParams{From: 100, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestServiceList_CacheRoundTripAndInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := cache.NewRedisClient(mr.Addr(), "")
	f := newFixture(t, cache.NewRedisCache(client, time.Minute))
	ctx := context.Background()

	f.create(t, bookerID, at(1), at(2))

	page := request.ListParams{From: 0, Size: request.DefaultPageSize}

	first, err := f.svc.ListByBooker(ctx, bookerID, "ALL", page)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Second read is served from redis and still matches.
	cached, err := f.svc.ListByBooker(ctx, bookerID, "ALL", page)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, first[0].ID, cached[0].ID)

	// A new booking invalidates the booker's cached pages.
	f.create(t, bookerID, at(3), at(4))

	fresh, err := f.svc.ListByBooker(ctx, bookerID, "ALL", page)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestServiceDecide_InvalidatesOwnerLists(t *testing.T) {
	mr := miniredis.RunT(t)
	client := cache.NewRedisClient(mr.Addr(), "")
	f := newFixture(t, cache.NewRedisCache(client, time.Minute))
	ctx := context.Background()

	b := f.create(t, bookerID, at(1), at(2))

	page := request.ListParams{From: 0, Size: request.DefaultPageSize}

	got, err := f.svc.ListByOwner(ctx, ownerID, "WAITING", page)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = f.svc.Decide(ctx, b.ID, ownerID, true)
	require.NoError(t, err)

	got, err = f.svc.ListByOwner(ctx, ownerID, "WAITING", page)
	require.NoError(t, err)
	assert.Empty(t, got)
}
