package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"samba-tours/internal/apperr"
	"samba-tours/internal/models"
	"samba-tours/internal/services"
)

var _ services.ServiceDB = (*DB)(nil)

type DB struct {
	Bun *bun.DB
}

func orderImages(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("sort_order ASC", "created_at ASC")
}

func (d *DB) ListServices(ctx context.Context, f services.ServiceFilter) ([]models.Service, error) {
	var list []models.Service
	q := d.Bun.NewSelect().Model(&list).Relation("Category").Relation("Images", orderImages)

	if f.Status != "" {
		q = q.Where("service.status = ?", f.Status)
	}
	if f.CategorySlug != "" {
		q = q.Where("service.category_id IN (SELECT id FROM service_categories WHERE slug = ?)", f.CategorySlug)
	}
	if f.Featured != nil {
		q = q.Where("service.featured = ?", *f.Featured)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(service.name) LIKE ?", like).
				WhereOr("LOWER(service.short_description) LIKE ?", like)
		})
	}
	if err := q.Order("service.featured DESC", "service.name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return list, nil
}

func (d *DB) getService(ctx context.Context, column, value string) (*models.Service, error) {
	var svc models.Service
	err := d.Bun.NewSelect().
		Model(&svc).
		Relation("Category").
		Relation("Images", orderImages).
		Where("service."+column+" = ?", value).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "service", value)
	}
	return &svc, nil
}

func (d *DB) GetService(ctx context.Context, id string) (*models.Service, error) {
	return d.getService(ctx, "id", id)
}

func (d *DB) GetServiceBySlug(ctx context.Context, slug string) (*models.Service, error) {
	return d.getService(ctx, "slug", slug)
}

func (d *DB) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	q := d.Bun.NewSelect().Model((*models.Service)(nil)).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Exists(ctx)
}

func (d *DB) CreateService(ctx context.Context, svc *models.Service) error {
	_, err := d.Bun.NewInsert().Model(svc).Exec(ctx)
	return err
}

func (d *DB) UpdateService(ctx context.Context, svc *models.Service) error {
	res, err := d.Bun.NewUpdate().Model(svc).ExcludeColumn("id", "created_at").WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("service", svc.ID)
	}
	return nil
}

func (d *DB) DeleteService(ctx context.Context, id string) ([]models.ServiceImage, error) {
	var images []models.ServiceImage
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.Service)(nil)).Where("id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("service", id)
		}
		if err := tx.NewSelect().Model(&images).Where("service_id = ?", id).Scan(ctx); err != nil {
			return fmt.Errorf("load service images: %w", err)
		}
		if _, err := tx.NewDelete().Model((*models.ServiceImage)(nil)).Where("service_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete service images: %w", err)
		}
		_, err = tx.NewDelete().Model((*models.Service)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (d *DB) AddImage(ctx context.Context, img *models.ServiceImage) error {
	_, err := d.Bun.NewInsert().Model(img).Exec(ctx)
	return err
}

func (d *DB) GetImage(ctx context.Context, id string) (*models.ServiceImage, error) {
	var img models.ServiceImage
	if err := d.Bun.NewSelect().Model(&img).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, apperr.FromDB(err, "service image", id)
	}
	return &img, nil
}

func (d *DB) DeleteImage(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().Model((*models.ServiceImage)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func (d *DB) CountImages(ctx context.Context, serviceID string) (int, error) {
	return d.Bun.NewSelect().Model((*models.ServiceImage)(nil)).Where("service_id = ?", serviceID).Count(ctx)
}

func (d *DB) ListCategories(ctx context.Context) ([]models.ServiceCategory, error) {
	var list []models.ServiceCategory
	if err := d.Bun.NewSelect().Model(&list).Order("sort_order ASC", "name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list service categories: %w", err)
	}
	return list, nil
}

func (d *DB) GetCategory(ctx context.Context, id string) (*models.ServiceCategory, error) {
	var c models.ServiceCategory
	if err := d.Bun.NewSelect().Model(&c).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, apperr.FromDB(err, "service category", id)
	}
	return &c, nil
}

func (d *DB) CategorySlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	q := d.Bun.NewSelect().Model((*models.ServiceCategory)(nil)).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Exists(ctx)
}

func (d *DB) CreateCategory(ctx context.Context, c *models.ServiceCategory) error {
	_, err := d.Bun.NewInsert().Model(c).Exec(ctx)
	return err
}

func (d *DB) UpdateCategory(ctx context.Context, c *models.ServiceCategory) error {
	_, err := d.Bun.NewUpdate().Model(c).Column("name", "slug", "description", "sort_order").WherePK().Exec(ctx)
	return err
}

func (d *DB) DeleteCategory(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().Model((*models.ServiceCategory)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func (d *DB) CountServicesInCategory(ctx context.Context, categoryID string) (int, error) {
	return d.Bun.NewSelect().Model((*models.Service)(nil)).Where("category_id = ?", categoryID).Count(ctx)
}
