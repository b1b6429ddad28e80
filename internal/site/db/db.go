package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"samba-tours/internal/apperr"
	"samba-tours/internal/models"
	"samba-tours/internal/site"
)

var _ site.SiteDB = (*DB)(nil)

type DB struct {
	Bun *bun.DB
}

const tourImagesQuery = `
SELECT ti.id, ti.url, ti.caption AS caption, 'tours' AS source,
       t.id AS owner_id, t.slug AS owner_slug, t.title AS owner_name, ti.created_at
FROM tour_images AS ti
JOIN tours AS t ON t.id = ti.tour_id
WHERE t.status = 'published'`

const serviceImagesQuery = `
SELECT si.id, si.url, si.alt_text AS caption, 'services' AS source,
       s.id AS owner_id, s.slug AS owner_slug, s.name AS owner_name, si.created_at
FROM service_images AS si
JOIN services AS s ON s.id = si.service_id
WHERE s.status = 'active'`

// ListGallery pages through images of published tours and active services.
func (d *DB) ListGallery(ctx context.Context, source string, limit, offset int) ([]site.GalleryImage, int, error) {
	var union string
	switch source {
	case site.GallerySourceTours:
		union = tourImagesQuery
	case site.GallerySourceServices:
		union = serviceImagesQuery
	default:
		union = tourImagesQuery + "\nUNION ALL\n" + serviceImagesQuery
	}

	var total int
	if err := d.Bun.NewRaw("SELECT COUNT(*) FROM ("+union+") AS gallery").Scan(ctx, &total); err != nil {
		return nil, 0, fmt.Errorf("count gallery: %w", err)
	}

	items := []site.GalleryImage{}
	q := "SELECT * FROM (" + union + ") AS gallery ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?"
	if err := d.Bun.NewRaw(q, limit, offset).Scan(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("list gallery: %w", err)
	}
	return items, total, nil
}

func (d *DB) CreateMessage(ctx context.Context, m *models.ContactMessage) error {
	_, err := d.Bun.NewInsert().Model(m).Exec(ctx)
	return err
}

func (d *DB) ListMessages(ctx context.Context, f site.MessageFilter) ([]models.ContactMessage, int, error) {
	list := []models.ContactMessage{}
	q := d.Bun.NewSelect().Model(&list).Order("created_at DESC")
	if f.Unread {
		q = q.Where("read = ?", false)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list contact messages: %w", err)
	}
	return list, total, nil
}

func (d *DB) SetMessageRead(ctx context.Context, id string, read bool) error {
	res, err := d.Bun.NewUpdate().Model((*models.ContactMessage)(nil)).Set("read = ?", read).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("contact message", id)
	}
	return nil
}

func (d *DB) DeleteMessage(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().Model((*models.ContactMessage)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("contact message", id)
	}
	return nil
}

func (d *DB) GetSubscriberByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	var sub models.NewsletterSubscriber
	if err := d.Bun.NewSelect().Model(&sub).Where("email = ?", email).Scan(ctx); err != nil {
		return nil, apperr.FromDB(err, "subscriber", email)
	}
	return &sub, nil
}

func (d *DB) CreateSubscriber(ctx context.Context, s *models.NewsletterSubscriber) error {
	_, err := d.Bun.NewInsert().Model(s).Exec(ctx)
	return err
}

func (d *DB) SetSubscriberStatus(ctx context.Context, id, status string) error {
	_, err := d.Bun.NewUpdate().Model((*models.NewsletterSubscriber)(nil)).Set("status = ?", status).Where("id = ?", id).Exec(ctx)
	return err
}

func (d *DB) ListSubscribers(ctx context.Context, status string, limit, offset int) ([]models.NewsletterSubscriber, int, error) {
	list := []models.NewsletterSubscriber{}
	q := d.Bun.NewSelect().Model(&list).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list subscribers: %w", err)
	}
	return list, total, nil
}

func (d *DB) DeleteSubscriber(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().Model((*models.NewsletterSubscriber)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("subscriber", id)
	}
	return nil
}
