package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"samba-tours/internal/apperr"
	"samba-tours/internal/models"
	"samba-tours/internal/tours"
)

var _ tours.TourDB = (*DB)(nil)

type DB struct {
	Bun *bun.DB
}

func orderImages(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("sort_order ASC", "created_at ASC")
}

func orderItinerary(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("day_number ASC")
}

func (d *DB) ListTours(ctx context.Context, f tours.TourFilter) ([]models.Tour, int, error) {
	var list []models.Tour
	q := d.Bun.NewSelect().Model(&list).Relation("Category")

	if f.Status != "" {
		q = q.Where("tour.status = ?", f.Status)
	}
	if f.CategorySlug != "" {
		q = q.Where("tour.category_id IN (SELECT id FROM tour_categories WHERE slug = ?)", f.CategorySlug)
	}
	if f.Featured != nil {
		q = q.Where("tour.featured = ?", *f.Featured)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(tour.title) LIKE ?", like).
				WhereOr("LOWER(tour.location) LIKE ?", like).
				WhereOr("LOWER(tour.summary) LIKE ?", like)
		})
	}
	if f.MinPrice != nil {
		q = q.Where("tour.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("tour.price <= ?", *f.MaxPrice)
	}

	switch f.Sort {
	case "price_asc":
		q = q.Order("tour.price ASC")
	case "price_desc":
		q = q.Order("tour.price DESC")
	case "rating":
		q = q.Order("tour.rating DESC", "tour.review_count DESC")
	default:
		q = q.Order("tour.created_at DESC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list tours: %w", err)
	}
	return list, total, nil
}

func (d *DB) getTour(ctx context.Context, column, value string) (*models.Tour, error) {
	var tour models.Tour
	err := d.Bun.NewSelect().
		Model(&tour).
		Relation("Category").
		Relation("Images", orderImages).
		Relation("Itinerary", orderItinerary).
		Where("tour."+column+" = ?", value).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "tour", value)
	}
	return &tour, nil
}

func (d *DB) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	return d.getTour(ctx, "id", id)
}

func (d *DB) GetTourBySlug(ctx context.Context, slug string) (*models.Tour, error) {
	return d.getTour(ctx, "slug", slug)
}

func (d *DB) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	q := d.Bun.NewSelect().Model((*models.Tour)(nil)).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Exists(ctx)
}

func (d *DB) CreateTour(ctx context.Context, tour *models.Tour, itinerary []models.TourItineraryDay) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(tour).Exec(ctx); err != nil {
			return err
		}
		if len(itinerary) > 0 {
			if _, err := tx.NewInsert().Model(&itinerary).Exec(ctx); err != nil {
				return fmt.Errorf("insert itinerary: %w", err)
			}
		}
		return nil
	})
}

func (d *DB) UpdateTour(ctx context.Context, tour *models.Tour, itinerary []models.TourItineraryDay) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(tour).
			ExcludeColumn("id", "created_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("tour", tour.ID)
		}
		if _, err := tx.NewDelete().Model((*models.TourItineraryDay)(nil)).Where("tour_id = ?", tour.ID).Exec(ctx); err != nil {
			return fmt.Errorf("clear itinerary: %w", err)
		}
		if len(itinerary) > 0 {
			if _, err := tx.NewInsert().Model(&itinerary).Exec(ctx); err != nil {
				return fmt.Errorf("insert itinerary: %w", err)
			}
		}
		return nil
	})
}

// DeleteTourCascade deletes child rows before the tour and returns the image
// rows that were removed so their objects can be cleaned up.
func (d *DB) DeleteTourCascade(ctx context.Context, id string) ([]models.TourImage, error) {
	var images []models.TourImage
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.Tour)(nil)).Where("id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("tour", id)
		}

		if err := tx.NewSelect().Model(&images).Where("tour_id = ?", id).Scan(ctx); err != nil {
			return fmt.Errorf("load tour images: %w", err)
		}

		children := []interface{}{
			(*models.TourImage)(nil),
			(*models.TourItineraryDay)(nil),
			(*models.BookingItem)(nil),
		}
		for _, model := range children {
			if _, err := tx.NewDelete().Model(model).Where("tour_id = ?", id).Exec(ctx); err != nil {
				return fmt.Errorf("delete %T rows: %w", model, err)
			}
		}

		_, err = tx.NewDelete().Model((*models.Tour)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (d *DB) VerifyTourDeleted(ctx context.Context, id string) (tours.DeletionReport, error) {
	report := tours.DeletionReport{}
	checks := map[string]interface{}{
		"tour_images":         (*models.TourImage)(nil),
		"tour_itinerary_days": (*models.TourItineraryDay)(nil),
		"booking_items":       (*models.BookingItem)(nil),
	}
	for table, model := range checks {
		n, err := d.Bun.NewSelect().Model(model).Where("tour_id = ?", id).Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		report[table] = n
	}
	n, err := d.Bun.NewSelect().Model((*models.Tour)(nil)).Where("id = ?", id).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tours: %w", err)
	}
	report["tours"] = n
	return report, nil
}

func (d *DB) AddImage(ctx context.Context, img *models.TourImage) error {
	_, err := d.Bun.NewInsert().Model(img).Exec(ctx)
	return err
}

func (d *DB) GetImage(ctx context.Context, id string) (*models.TourImage, error) {
	var img models.TourImage
	if err := d.Bun.NewSelect().Model(&img).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, apperr.FromDB(err, "tour image", id)
	}
	return &img, nil
}

func (d *DB) DeleteImage(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().Model((*models.TourImage)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func (d *DB) CountImages(ctx context.Context, tourID string) (int, error) {
	return d.Bun.NewSelect().Model((*models.TourImage)(nil)).Where("tour_id = ?", tourID).Count(ctx)
}

func (d *DB) SetCoverImage(ctx context.Context, tourID, url string) error {
	_, err := d.Bun.NewUpdate().Model((*models.Tour)(nil)).
		Set("cover_image = ?", url).
		Where("id = ?", tourID).
		Exec(ctx)
	return err
}

func (d *DB) ListCategories(ctx context.Context) ([]models.TourCategory, error) {
	var list []models.TourCategory
	if err := d.Bun.NewSelect().Model(&list).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tour categories: %w", err)
	}
	return list, nil
}

func (d *DB) GetCategory(ctx context.Context, id string) (*models.TourCategory, error) {
	var c models.TourCategory
	if err := d.Bun.NewSelect().Model(&c).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, apperr.FromDB(err, "tour category", id)
	}
	return &c, nil
}

func (d *DB) CategorySlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	q := d.Bun.NewSelect().Model((*models.TourCategory)(nil)).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Exists(ctx)
}

func (d *DB) CreateCategory(ctx context.Context, c *models.TourCategory) error {
	_, err := d.Bun.NewInsert().Model(c).Exec(ctx)
	return err
}

func (d *DB) UpdateCategory(ctx context.Context, c *models.TourCategory) error {
	_, err := d.Bun.NewUpdate().Model(c).Column("name", "slug", "description").WherePK().Exec(ctx)
	return err
}

func (d *DB) DeleteCategory(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().Model((*models.TourCategory)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func (d *DB) CountToursInCategory(ctx context.Context, categoryID string) (int, error) {
	return d.Bun.NewSelect().Model((*models.Tour)(nil)).Where("category_id = ?", categoryID).Count(ctx)
}
