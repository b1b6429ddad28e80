package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"samba-tours/internal/apperr"
	"samba-tours/internal/bookings"
	"samba-tours/internal/models"
)

var _ bookings.BookingDB = (*DB)(nil)

type DB struct {
	Bun *bun.DB
}

func orderItems(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("travel_date ASC")
}

func (d *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(b).Exec(ctx); err != nil {
			return err
		}
		if len(b.Items) > 0 {
			if _, err := tx.NewInsert().Model(&b.Items).Exec(ctx); err != nil {
				return fmt.Errorf("insert booking items: %w", err)
			}
		}
		return nil
	})
}

func (d *DB) getBooking(ctx context.Context, column, value string) (*models.Booking, error) {
	var b models.Booking
	err := d.Bun.NewSelect().
		Model(&b).
		Relation("Items", orderItems).
		Where("booking."+column+" = ?", value).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "booking", value)
	}
	return &b, nil
}

func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return d.getBooking(ctx, "id", id)
}

func (d *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return d.getBooking(ctx, "reference", reference)
}

func (d *DB) GetBookingByPaymentIntent(ctx context.Context, intentID string) (*models.Booking, error) {
	if intentID == "" {
		return nil, apperr.NotFound("booking", "payment intent")
	}
	return d.getBooking(ctx, "payment_intent_id", intentID)
}

func (d *DB) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	return d.Bun.NewSelect().Model((*models.Booking)(nil)).Where("reference = ?", reference).Exists(ctx)
}

func (d *DB) ListBookings(ctx context.Context, f bookings.BookingFilter) ([]models.Booking, int, error) {
	var list []models.Booking
	q := d.Bun.NewSelect().Model(&list).Relation("Items", orderItems)

	if f.Status != "" {
		q = q.Where("booking.status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("booking.payment_status = ?", f.PaymentStatus)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(booking.customer_email) LIKE ?", like).
				WhereOr("LOWER(booking.customer_name) LIKE ?", like).
				WhereOr("LOWER(booking.reference) LIKE ?", like)
		})
	}
	if f.From != nil {
		q = q.Where("booking.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("booking.created_at < ?", *f.To)
	}
	q = q.Order("booking.created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return list, total, nil
}

func (d *DB) UpdateBooking(ctx context.Context, b *models.Booking, columns ...string) error {
	q := d.Bun.NewUpdate().Model(b).WherePK()
	if len(columns) > 0 {
		q = q.Column(columns...)
	} else {
		q = q.ExcludeColumn("id", "reference", "created_at")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("booking", b.ID)
	}
	return nil
}

// DeleteBooking removes the items first, then the booking.
func (d *DB) DeleteBooking(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.BookingItem)(nil)).Where("booking_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete booking items: %w", err)
		}
		res, err := tx.NewDelete().Model((*models.Booking)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("booking", id)
		}
		return nil
	})
}
