package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/realtime"
	"samba-tours/internal/storage"
	"samba-tours/internal/utils"
)

const (
	changeTable    = "blog_posts"
	defaultRelated = 3
	maxRelated     = 12
)

type PostFilter struct {
	CategorySlug string
	Tag          string
	Search       string
	Status       string
	Limit        int
	Offset       int
}

type PostDB interface {
	ListPosts(ctx context.Context, f PostFilter) ([]models.BlogPost, int, error)
	GetPost(ctx context.Context, id string) (*models.BlogPost, error)
	GetPostBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	CreatePost(ctx context.Context, p *models.BlogPost) error
	UpdatePost(ctx context.Context, p *models.BlogPost) error
	DeletePost(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) (int, error)
	IncrementLikes(ctx context.Context, id string) (int, error)
	RelatedPosts(ctx context.Context, p *models.BlogPost, limit int) ([]models.BlogPost, error)
	ProfileExists(ctx context.Context, id string) (bool, error)

	ListCategories(ctx context.Context) ([]models.BlogCategory, error)
	GetCategory(ctx context.Context, id string) (*models.BlogCategory, error)
	CategorySlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	CreateCategory(ctx context.Context, c *models.BlogCategory) error
	UpdateCategory(ctx context.Context, c *models.BlogCategory) error
	DeleteCategory(ctx context.Context, id string) error
	CountPostsInCategory(ctx context.Context, categoryID string) (int, error)
}

type Service struct {
	DB      PostDB
	Storage storage.ObjectStorage
	Emitter *realtime.Emitter
	Logger  *logger.Logger
	now     func() time.Time
}

func NewService(db PostDB, store storage.ObjectStorage, emitter *realtime.Emitter, log *logger.Logger) *Service {
	return &Service{DB: db, Storage: store, Emitter: emitter, Logger: log, now: func() time.Time { return time.Now().UTC() }}
}

type PostInput struct {
	Title      string   `json:"title" validate:"required,min=3,max=200"`
	Slug       string   `json:"slug" validate:"omitempty,max=200"`
	Excerpt    string   `json:"excerpt" validate:"max=500"`
	Content    string   `json:"content" validate:"required"`
	CoverImage string   `json:"cover_image" validate:"omitempty,url"`
	CategoryID *string  `json:"category_id"`
	AuthorID   *string  `json:"author_id"`
	Status     string   `json:"status" validate:"omitempty,oneof=draft published"`
	Tags       []string `json:"tags" validate:"max=20,dive,min=1,max=40"`
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type ImageUpload struct {
	Data        []byte
	ContentType string
}

type UploadedImage struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (s *Service) ListPosts(ctx context.Context, f PostFilter) ([]models.BlogPost, int, error) {
	if f.Status != "" && !contains(models.PostStatuses, f.Status) {
		return nil, 0, apperr.Invalid("status", "Must be one of: draft published")
	}
	f.Tag = strings.ToLower(strings.TrimSpace(f.Tag))
	return s.DB.ListPosts(ctx, f)
}

func (s *Service) ListPublishedPosts(ctx context.Context, f PostFilter) ([]models.BlogPost, int, error) {
	f.Status = models.PostStatusPublished
	return s.ListPosts(ctx, f)
}

func (s *Service) GetPost(ctx context.Context, id string) (*models.BlogPost, error) {
	return s.DB.GetPost(ctx, id)
}

// GetPublishedPost is the public read: drafts are hidden and every read counts
// as a view.
func (s *Service) GetPublishedPost(ctx context.Context, slug string) (*models.BlogPost, error) {
	p, err := s.publishedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	views, err := s.DB.IncrementViews(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("count view of %s: %w", slug, err)
	}
	p.Views = views
	return p, nil
}

func (s *Service) LikePost(ctx context.Context, slug string) (int, error) {
	p, err := s.publishedBySlug(ctx, slug)
	if err != nil {
		return 0, err
	}
	likes, err := s.DB.IncrementLikes(ctx, p.ID)
	if err != nil {
		return 0, fmt.Errorf("like %s: %w", slug, err)
	}
	s.Emitter.Emit(ctx, changeTable, realtime.Update, p.ID, map[string]int{"likes": likes})
	return likes, nil
}

func (s *Service) RelatedPosts(ctx context.Context, slug string, limit int) ([]models.BlogPost, error) {
	if limit <= 0 {
		limit = defaultRelated
	}
	if limit > maxRelated {
		limit = maxRelated
	}
	p, err := s.publishedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.DB.RelatedPosts(ctx, p, limit)
}

func (s *Service) publishedBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	p, err := s.DB.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PostStatusPublished {
		return nil, apperr.NotFound("blog post", slug)
	}
	return p, nil
}

func (s *Service) CreatePost(ctx context.Context, in PostInput) (*models.BlogPost, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	now := s.now()
	p := &models.BlogPost{ID: utils.GenerateID(), CreatedAt: now, Tags: []string{}}
	s.apply(p, in, now)

	slug, err := s.uniqueSlug(ctx, in.Slug, in.Title, "")
	if err != nil {
		return nil, err
	}
	p.Slug = slug

	if err := s.DB.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("create blog post: %w", err)
	}
	s.Logger.Info("BLOG", fmt.Sprintf("Post %s created (%s)", p.Slug, p.Status))
	s.Emitter.Emit(ctx, changeTable, realtime.Insert, p.ID, p)
	return p, nil
}

func (s *Service) UpdatePost(ctx context.Context, id string, in PostInput) (*models.BlogPost, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	p, err := s.DB.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Slug != "" && utils.Slugify(in.Slug) != p.Slug {
		if p.Slug, err = s.uniqueSlug(ctx, in.Slug, in.Title, id); err != nil {
			return nil, err
		}
	}
	s.apply(p, in, s.now())

	if err := s.DB.UpdatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("update blog post: %w", err)
	}
	s.Emitter.Emit(ctx, changeTable, realtime.Update, p.ID, p)
	return p, nil
}

func (s *Service) DeletePost(ctx context.Context, id string) error {
	if err := s.DB.DeletePost(ctx, id); err != nil {
		return err
	}
	s.Emitter.Emit(ctx, changeTable, realtime.Delete, id, nil)
	return nil
}

func (s *Service) PublishPost(ctx context.Context, id string) (*models.BlogPost, error) {
	return s.setStatus(ctx, id, models.PostStatusPublished)
}

func (s *Service) UnpublishPost(ctx context.Context, id string) (*models.BlogPost, error) {
	return s.setStatus(ctx, id, models.PostStatusDraft)
}

func (s *Service) setStatus(ctx context.Context, id, status string) (*models.BlogPost, error) {
	p, err := s.DB.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	p.Status = status
	p.UpdatedAt = now
	if status == models.PostStatusPublished {
		if p.PublishedAt == nil {
			p.PublishedAt = &now
		}
	} else {
		p.PublishedAt = nil
	}
	if err := s.DB.UpdatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("set post status: %w", err)
	}
	s.Emitter.Emit(ctx, changeTable, realtime.Update, p.ID, p)
	return p, nil
}

// UploadImage stores an image for use inside post content or as a cover.
func (s *Service) UploadImage(ctx context.Context, up ImageUpload) (*UploadedImage, error) {
	if err := storage.CheckImage(up.ContentType, len(up.Data)); err != nil {
		return nil, err
	}
	key := storage.BlogImageKey(up.ContentType)
	if err := s.Storage.Upload(ctx, key, up.Data, up.ContentType); err != nil {
		return nil, err
	}
	return &UploadedImage{Key: key, URL: s.Storage.PublicURL(key)}, nil
}

func (s *Service) check(ctx context.Context, in *PostInput) error {
	if err := utils.Validate(in); err != nil {
		return err
	}
	if in.CategoryID != nil && *in.CategoryID != "" {
		if _, err := s.DB.GetCategory(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Invalid("category_id", "Unknown category")
			}
			return err
		}
	}
	if in.AuthorID != nil && *in.AuthorID != "" {
		ok, err := s.DB.ProfileExists(ctx, *in.AuthorID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Invalid("author_id", "Unknown author")
		}
	}
	return nil
}

func (s *Service) apply(p *models.BlogPost, in PostInput, now time.Time) {
	p.Title = strings.TrimSpace(in.Title)
	p.Excerpt = in.Excerpt
	p.Content = in.Content
	p.CoverImage = in.CoverImage
	p.CategoryID = nonEmpty(in.CategoryID)
	p.AuthorID = nonEmpty(in.AuthorID)
	p.Tags = normalizeTags(in.Tags)

	status := in.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if status == models.PostStatusPublished && p.PublishedAt == nil {
		p.PublishedAt = &now
	}
	if status == models.PostStatusDraft {
		p.PublishedAt = nil
	}
	p.Status = status
	p.UpdatedAt = now
}

func normalizeTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func (s *Service) uniqueSlug(ctx context.Context, requested, title, excludeID string) (string, error) {
	return utils.UniqueSlug(ctx, requested, title, func(ctx context.Context, slug string) (bool, error) {
		return s.DB.SlugExists(ctx, slug, excludeID)
	})
}

func (s *Service) ListCategories(ctx context.Context) ([]models.BlogCategory, error) {
	return s.DB.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.BlogCategory, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	slug, err := utils.UniqueSlug(ctx, in.Slug, in.Name, func(ctx context.Context, slug string) (bool, error) {
		return s.DB.CategorySlugExists(ctx, slug, "")
	})
	if err != nil {
		return nil, err
	}
	c := &models.BlogCategory{
		ID:          utils.GenerateID(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Description: in.Description,
		CreatedAt:   s.now(),
	}
	if err := s.DB.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create blog category: %w", err)
	}
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*models.BlogCategory, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	c, err := s.DB.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Slug != "" && utils.Slugify(in.Slug) != c.Slug {
		c.Slug, err = utils.UniqueSlug(ctx, in.Slug, in.Name, func(ctx context.Context, slug string) (bool, error) {
			return s.DB.CategorySlugExists(ctx, slug, id)
		})
		if err != nil {
			return nil, err
		}
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Description = in.Description
	if err := s.DB.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("update blog category: %w", err)
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.DB.GetCategory(ctx, id); err != nil {
		return err
	}
	n, err := s.DB.CountPostsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("category %s still has %d posts: %w", id, n, apperr.ErrConflict)
	}
	return s.DB.DeleteCategory(ctx, id)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
