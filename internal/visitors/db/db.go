package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"samba-tours/internal/apperr"
	"samba-tours/internal/models"
	"samba-tours/internal/visitors"
)

var _ visitors.VisitorDB = (*DB)(nil)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetVisitor(ctx context.Context, id string) (*models.Visitor, error) {
	var v models.Visitor
	if err := d.Bun.NewSelect().Model(&v).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, apperr.FromDB(err, "visitor", id)
	}
	return &v, nil
}

func (d *DB) InsertVisitor(ctx context.Context, v *models.Visitor) error {
	_, err := d.Bun.NewInsert().Model(v).Exec(ctx)
	return err
}

func (d *DB) TouchVisitor(ctx context.Context, id, page string, at time.Time) (*models.Visitor, error) {
	var v models.Visitor
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*models.Visitor)(nil)).
			Set("visit_count = visit_count + 1").
			Set("last_seen = ?", at).
			Set("last_page = ?", page).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("visitor", id)
		}
		return tx.NewSelect().Model(&v).Where("id = ?", id).Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *DB) seen(from, to time.Time) *bun.SelectQuery {
	return d.Bun.NewSelect().Model((*models.Visitor)(nil)).
		Where("last_seen >= ?", from).
		Where("last_seen < ?", to)
}

func (d *DB) CountSeen(ctx context.Context, from, to time.Time) (int, error) {
	return d.seen(from, to).Count(ctx)
}

func (d *DB) CountFirstSeen(ctx context.Context, from, to time.Time) (int, error) {
	return d.Bun.NewSelect().Model((*models.Visitor)(nil)).
		Where("first_seen >= ?", from).
		Where("first_seen < ?", to).
		Count(ctx)
}

func (d *DB) CountReturning(ctx context.Context, from, to time.Time) (int, error) {
	return d.seen(from, to).Where("visit_count > 1").Count(ctx)
}

func (d *DB) TopPages(ctx context.Context, from, to time.Time, limit int) ([]visitors.Count, error) {
	return d.top(ctx, d.seen(from, to), "last_page", limit)
}

// TopReferrers groups visitors acquired in the range by their first referrer.
func (d *DB) TopReferrers(ctx context.Context, from, to time.Time, limit int) ([]visitors.Count, error) {
	q := d.Bun.NewSelect().Model((*models.Visitor)(nil)).
		Where("first_seen >= ?", from).
		Where("first_seen < ?", to).
		Where("referrer <> ''")
	return d.top(ctx, q, "referrer", limit)
}

func (d *DB) top(ctx context.Context, q *bun.SelectQuery, column string, limit int) ([]visitors.Count, error) {
	out := []visitors.Count{}
	err := q.ColumnExpr("? AS label", bun.Ident(column)).
		ColumnExpr("COUNT(*) AS visitors").
		GroupExpr("?", bun.Ident(column)).
		OrderExpr("visitors DESC, label ASC").
		Limit(limit).
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("top %s: %w", column, err)
	}
	return out, nil
}
