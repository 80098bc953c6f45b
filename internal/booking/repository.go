package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id int64) (*Booking, error)

	// ListByBooker returns every booking made by the user, unfiltered;
	// classification happens in the service.
	ListByBooker(ctx context.Context, bookerID int64) ([]*Booking, error)

	// ListByOwnedItems returns every booking against items owned by the user.
	ListByOwnedItems(ctx context.Context, ownerID int64) ([]*Booking, error)

	// ListApprovedForItem returns the item's APPROVED bookings.
	ListApprovedForItem(ctx context.Context, itemID int64) ([]*Booking, error)

	// Approve flips WAITING -> APPROVED. The whole read-decide-write runs in
	// one transaction holding a lock on the item row, so two concurrent
	// approvals of overlapping slots cannot both succeed.
	Approve(ctx context.Context, id int64) error

	// Reject flips WAITING -> REJECTED. Rejection never conflicts.
	Reject(ctx context.Context, id int64) error

	// HasFinishedApprovedBooking reports whether the user holds an APPROVED
	// booking of the item that ended before now.
	HasFinishedApprovedBooking(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var bookingColumns = []string{
	"b.id", "b.item_id", "b.booker_id", "b.start_time", "b.end_time",
	"b.status", "b.created_at", "b.updated_at",
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	if err := row.Scan(
		&b.ID, &b.ItemID, &b.BookerID, &b.Start, &b.End,
		&b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("item_id", "booker_id", "start_time", "end_time", "status").
		Values(b.ItemID, b.BookerID, b.Start, b.End, b.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	return r.pool.QueryRow(ctx, query, args...).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *pgxRepository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) ListByBooker(ctx context.Context, bookerID int64) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.booker_id": bookerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list by booker query failed: %w", err)
	}

	return r.queryBookings(ctx, query, args)
}

func (r *pgxRepository) ListByOwnedItems(ctx context.Context, ownerID int64) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Join("public.items i ON b.item_id = i.id").
		Where(squirrel.Eq{"i.owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list by owner query failed: %w", err)
	}

	return r.queryBookings(ctx, query, args)
}

func (r *pgxRepository) ListApprovedForItem(ctx context.Context, itemID int64) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.item_id": itemID}).
		Where(squirrel.Eq{"b.status": StatusApproved}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list approved query failed: %w", err)
	}

	return r.queryBookings(ctx, query, args)
}

func (r *pgxRepository) queryBookings(ctx context.Context, query string, args []any) ([]*Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *pgxRepository) Approve(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin approve tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var itemID int64
	var start, end time.Time
	var status Status
	err = tx.QueryRow(ctx, `
		SELECT item_id, start_time, end_time, status
		FROM public.bookings
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&itemID, &start, &end, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load booking for approval failed: %w", err)
	}

	if status != StatusWaiting {
		return ErrAlreadyDecided
	}

	// Lock the item row so concurrent approvals on the same item serialize
	// and both see each other's committed result.
	if _, err := tx.Exec(ctx, `SELECT 1 FROM public.items WHERE id = $1 FOR UPDATE`, itemID); err != nil {
		return fmt.Errorf("lock item failed: %w", err)
	}

	var conflict bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM public.bookings
			WHERE item_id = $1
			  AND status = $2
			  AND id <> $3
			  AND start_time < $4
			  AND end_time > $5
		)
	`, itemID, StatusApproved, id, end, start).Scan(&conflict)
	if err != nil {
		return fmt.Errorf("check approved overlap failed: %w", err)
	}
	if conflict {
		return ErrTimeConflict
	}

	ct, err := tx.Exec(ctx, `
		UPDATE public.bookings
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, StatusApproved, id, StatusWaiting)
	if err != nil {
		return fmt.Errorf("approve booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAlreadyDecided
	}

	return tx.Commit(ctx)
}

func (r *pgxRepository) Reject(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE public.bookings
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, StatusRejected, id, StatusWaiting)
	if err != nil {
		return fmt.Errorf("reject booking failed: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: either the booking is gone or it was already decided.
	var status Status
	err = r.pool.QueryRow(ctx, `SELECT status FROM public.bookings WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("check booking status failed: %w", err)
	}
	return ErrAlreadyDecided
}

func (r *pgxRepository) HasFinishedApprovedBooking(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM public.bookings
			WHERE item_id = $1
			  AND booker_id = $2
			  AND status = $3
			  AND end_time <= $4
		)
	`, itemID, bookerID, StatusApproved, now).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check finished booking failed: %w", err)
	}
	return exists, nil
}
