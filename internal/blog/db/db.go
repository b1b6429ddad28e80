package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"samba-tours/internal/apperr"
	"samba-tours/internal/blog"
	"samba-tours/internal/models"
)

var _ blog.PostDB = (*DB)(nil)

type DB struct {
	Bun *bun.DB
}

func (d *DB) ListPosts(ctx context.Context, f blog.PostFilter) ([]models.BlogPost, int, error) {
	var list []models.BlogPost
	q := d.Bun.NewSelect().Model(&list).Relation("Category").Relation("Author")

	if f.Status != "" {
		q = q.Where("blog_post.status = ?", f.Status)
	}
	if f.CategorySlug != "" {
		q = q.Where("blog_post.category_id IN (SELECT id FROM blog_categories WHERE slug = ?)", f.CategorySlug)
	}
	if f.Tag != "" {
		// Tags are stored lowercased as a JSON array of strings.
		q = q.Where("CAST(blog_post.tags AS TEXT) LIKE ?", `%"`+f.Tag+`"%`)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(blog_post.title) LIKE ?", like).
				WhereOr("LOWER(blog_post.excerpt) LIKE ?", like)
		})
	}
	q = q.OrderExpr("COALESCE(blog_post.published_at, blog_post.created_at) DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list blog posts: %w", err)
	}
	return list, total, nil
}

func (d *DB) getPost(ctx context.Context, column, value string) (*models.BlogPost, error) {
	var p models.BlogPost
	err := d.Bun.NewSelect().
		Model(&p).
		Relation("Category").
		Relation("Author").
		Where("blog_post."+column+" = ?", value).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "blog post", value)
	}
	return &p, nil
}

func (d *DB) GetPost(ctx context.Context, id string) (*models.BlogPost, error) {
	return d.getPost(ctx, "id", id)
}

func (d *DB) GetPostBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	return d.getPost(ctx, "slug", slug)
}

func (d *DB) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	q := d.Bun.NewSelect().Model((*models.BlogPost)(nil)).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Exists(ctx)
}

func (d *DB) CreatePost(ctx context.Context, p *models.BlogPost) error {
	_, err := d.Bun.NewInsert().Model(p).Exec(ctx)
	return err
}

func (d *DB) UpdatePost(ctx context.Context, p *models.BlogPost) error {
	res, err := d.Bun.NewUpdate().Model(p).
		ExcludeColumn("id", "created_at", "views", "likes").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("blog post", p.ID)
	}
	return nil
}

func (d *DB) DeletePost(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().Model((*models.BlogPost)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("blog post", id)
	}
	return nil
}

func (d *DB) IncrementViews(ctx context.Context, id string) (int, error) {
	return d.increment(ctx, id, "views")
}

func (d *DB) IncrementLikes(ctx context.Context, id string) (int, error) {
	return d.increment(ctx, id, "likes")
}

// increment bumps a counter column in the database, so concurrent requests
// never lose a count, and reads the new value back.
func (d *DB) increment(ctx context.Context, id, column string) (int, error) {
	var n int
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model((*models.BlogPost)(nil)).
			Set("? = COALESCE(?, 0) + 1", bun.Ident(column), bun.Ident(column)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		return tx.NewSelect().Model((*models.BlogPost)(nil)).Column(column).Where("id = ?", id).Scan(ctx, &n)
	})
	if err != nil {
		return 0, apperr.FromDB(err, "blog post", id)
	}
	return n, nil
}

// RelatedPosts returns other published posts from the same category, or the
// latest published posts when p has no category.
func (d *DB) RelatedPosts(ctx context.Context, p *models.BlogPost, limit int) ([]models.BlogPost, error) {
	var list []models.BlogPost
	q := d.Bun.NewSelect().Model(&list).
		Relation("Category").
		Where("blog_post.status = ?", models.PostStatusPublished).
		Where("blog_post.id <> ?", p.ID)
	if p.CategoryID != nil {
		q = q.Where("blog_post.category_id = ?", *p.CategoryID)
	}
	err := q.Order("blog_post.published_at DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("related posts of %s: %w", p.Slug, err)
	}
	return list, nil
}

func (d *DB) ProfileExists(ctx context.Context, id string) (bool, error) {
	return d.Bun.NewSelect().Model((*models.Profile)(nil)).Where("id = ?", id).Exists(ctx)
}

func (d *DB) ListCategories(ctx context.Context) ([]models.BlogCategory, error) {
	var list []models.BlogCategory
	if err := d.Bun.NewSelect().Model(&list).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list blog categories: %w", err)
	}
	return list, nil
}

func (d *DB) GetCategory(ctx context.Context, id string) (*models.BlogCategory, error) {
	var c models.BlogCategory
	if err := d.Bun.NewSelect().Model(&c).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, apperr.FromDB(err, "blog category", id)
	}
	return &c, nil
}

func (d *DB) CategorySlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	q := d.Bun.NewSelect().Model((*models.BlogCategory)(nil)).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Exists(ctx)
}

func (d *DB) CreateCategory(ctx context.Context, c *models.BlogCategory) error {
	_, err := d.Bun.NewInsert().Model(c).Exec(ctx)
	return err
}

func (d *DB) UpdateCategory(ctx context.Context, c *models.BlogCategory) error {
	_, err := d.Bun.NewUpdate().Model(c).Column("name", "slug", "description").WherePK().Exec(ctx)
	return err
}

func (d *DB) DeleteCategory(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().Model((*models.BlogCategory)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func (d *DB) CountPostsInCategory(ctx context.Context, categoryID string) (int, error) {
	return d.Bun.NewSelect().Model((*models.BlogPost)(nil)).Where("category_id = ?", categoryID).Count(ctx)
}
