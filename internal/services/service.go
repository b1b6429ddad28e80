// Package services manages the travel services (transfers, visas, car hire and
// the like) offered next to the tours.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/realtime"
	"samba-tours/internal/storage"
	"samba-tours/internal/utils"
)

const (
	changeTable      = "services"
	imageChangeTable = "service_images"
)

type ServiceFilter struct {
	Status       string
	CategorySlug string
	Featured     *bool
	Search       string
}

type ServiceDB interface {
	ListServices(ctx context.Context, f ServiceFilter) ([]models.Service, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
	GetServiceBySlug(ctx context.Context, slug string) (*models.Service, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	CreateService(ctx context.Context, svc *models.Service) error
	UpdateService(ctx context.Context, svc *models.Service) error
	// DeleteService removes the images and then the service in one transaction
	// and returns the removed images.
	DeleteService(ctx context.Context, id string) ([]models.ServiceImage, error)

	AddImage(ctx context.Context, img *models.ServiceImage) error
	GetImage(ctx context.Context, id string) (*models.ServiceImage, error)
	DeleteImage(ctx context.Context, id string) error
	CountImages(ctx context.Context, serviceID string) (int, error)

	ListCategories(ctx context.Context) ([]models.ServiceCategory, error)
	GetCategory(ctx context.Context, id string) (*models.ServiceCategory, error)
	CategorySlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	CreateCategory(ctx context.Context, c *models.ServiceCategory) error
	UpdateCategory(ctx context.Context, c *models.ServiceCategory) error
	DeleteCategory(ctx context.Context, id string) error
	CountServicesInCategory(ctx context.Context, categoryID string) (int, error)
}

type Service struct {
	DB      ServiceDB
	Storage storage.ObjectStorage
	Emitter *realtime.Emitter
	Logger  *logger.Logger
	now     func() time.Time
}

func NewService(db ServiceDB, store storage.ObjectStorage, emitter *realtime.Emitter, log *logger.Logger) *Service {
	return &Service{DB: db, Storage: store, Emitter: emitter, Logger: log, now: func() time.Time { return time.Now().UTC() }}
}

type ServiceInput struct {
	Name             string          `json:"name" validate:"required,min=2,max=200"`
	Slug             string          `json:"slug" validate:"omitempty,max=200"`
	ShortDescription string          `json:"short_description" validate:"max=300"`
	Description      string          `json:"description"`
	CategoryID       *string         `json:"category_id"`
	PriceFrom        decimal.Decimal `json:"price_from"`
	Icon             string          `json:"icon" validate:"max=100"`
	Status           string          `json:"status" validate:"omitempty,oneof=active inactive"`
	Featured         bool            `json:"featured"`
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"max=1000"`
	SortOrder   int    `json:"sort_order" validate:"gte=0"`
}

type ImageUpload struct {
	Data        []byte
	ContentType string
	AltText     string
}

// Group is one section of the public services page. Services without a
// category are collected under an unnamed group at the end.
type Group struct {
	Category *models.ServiceCategory `json:"category"`
	Services []models.Service        `json:"services"`
}

func (s *Service) ListServices(ctx context.Context, f ServiceFilter) ([]models.Service, error) {
	if f.Status != "" && !contains(models.ServiceStatuses, f.Status) {
		return nil, apperr.Invalid("status", "Must be one of: active inactive")
	}
	return s.DB.ListServices(ctx, f)
}

// ListActiveGrouped returns active services grouped by category in category
// sort order. Empty categories are left out.
func (s *Service) ListActiveGrouped(ctx context.Context) ([]Group, error) {
	cats, err := s.DB.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.DB.ListServices(ctx, ServiceFilter{Status: models.ServiceStatusActive})
	if err != nil {
		return nil, err
	}

	byCategory := map[string][]models.Service{}
	var loose []models.Service
	for _, svc := range list {
		if svc.CategoryID == nil {
			loose = append(loose, svc)
			continue
		}
		byCategory[*svc.CategoryID] = append(byCategory[*svc.CategoryID], svc)
	}

	groups := []Group{}
	for i := range cats {
		if members := byCategory[cats[i].ID]; len(members) > 0 {
			cat := cats[i]
			groups = append(groups, Group{Category: &cat, Services: members})
		}
	}
	if len(loose) > 0 {
		groups = append(groups, Group{Services: loose})
	}
	return groups, nil
}

func (s *Service) GetService(ctx context.Context, id string) (*models.Service, error) {
	return s.DB.GetService(ctx, id)
}

// GetServiceBySlug returns a service with its images. Inactive services are
// hidden when publicOnly is set.
func (s *Service) GetServiceBySlug(ctx context.Context, slug string, publicOnly bool) (*models.Service, error) {
	svc, err := s.DB.GetServiceBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if publicOnly && svc.Status != models.ServiceStatusActive {
		return nil, apperr.NotFound("service", slug)
	}
	return svc, nil
}

func (s *Service) CreateService(ctx context.Context, in ServiceInput) (*models.Service, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	now := s.now()
	svc := &models.Service{ID: utils.GenerateID(), CreatedAt: now}
	apply(svc, in, now)

	slug, err := s.uniqueSlug(ctx, in.Slug, in.Name, "")
	if err != nil {
		return nil, err
	}
	svc.Slug = slug

	if err := s.DB.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	s.Logger.Info("SERVICES", fmt.Sprintf("Service %s created", svc.Slug))
	s.Emitter.Emit(ctx, changeTable, realtime.Insert, svc.ID, svc)
	return svc, nil
}

func (s *Service) UpdateService(ctx context.Context, id string, in ServiceInput) (*models.Service, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	svc, err := s.DB.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Slug != "" && utils.Slugify(in.Slug) != svc.Slug {
		if svc.Slug, err = s.uniqueSlug(ctx, in.Slug, in.Name, id); err != nil {
			return nil, err
		}
	}
	apply(svc, in, s.now())

	if err := s.DB.UpdateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	s.Emitter.Emit(ctx, changeTable, realtime.Update, svc.ID, svc)
	return svc, nil
}

// DeleteService removes the image rows before the service row, then the
// bucket objects. Object removal failures are only logged.
func (s *Service) DeleteService(ctx context.Context, id string) error {
	images, err := s.DB.DeleteService(ctx, id)
	if err != nil {
		return err
	}
	for _, img := range images {
		if img.StorageKey == "" {
			continue
		}
		if err := s.Storage.Delete(ctx, img.StorageKey); err != nil {
			s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to delete object %s of service %s: %v", img.StorageKey, id, err))
		}
	}
	s.Logger.Info("SERVICES", fmt.Sprintf("Service %s deleted with %d images", id, len(images)))
	s.Emitter.Emit(ctx, changeTable, realtime.Delete, id, nil)
	return nil
}

func (s *Service) AddServiceImage(ctx context.Context, serviceID string, up ImageUpload) (*models.ServiceImage, error) {
	if err := storage.CheckImage(up.ContentType, len(up.Data)); err != nil {
		return nil, err
	}
	if _, err := s.DB.GetService(ctx, serviceID); err != nil {
		return nil, err
	}
	count, err := s.DB.CountImages(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	key := storage.ServiceImageKey(serviceID, up.ContentType)
	if err := s.Storage.Upload(ctx, key, up.Data, up.ContentType); err != nil {
		return nil, err
	}
	img := &models.ServiceImage{
		ID:         utils.GenerateID(),
		ServiceID:  serviceID,
		StorageKey: key,
		URL:        s.Storage.PublicURL(key),
		AltText:    up.AltText,
		SortOrder:  count,
		CreatedAt:  s.now(),
	}
	if err := s.DB.AddImage(ctx, img); err != nil {
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to remove orphaned object %s: %v", key, delErr))
		}
		return nil, fmt.Errorf("save service image: %w", err)
	}
	s.Emitter.Emit(ctx, imageChangeTable, realtime.Insert, img.ID, img)
	return img, nil
}

func (s *Service) DeleteServiceImage(ctx context.Context, imageID string) error {
	img, err := s.DB.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if err := s.DB.DeleteImage(ctx, imageID); err != nil {
		return err
	}
	if img.StorageKey != "" {
		if err := s.Storage.Delete(ctx, img.StorageKey); err != nil {
			s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to delete object %s: %v", img.StorageKey, err))
		}
	}
	s.Emitter.Emit(ctx, imageChangeTable, realtime.Delete, imageID, nil)
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.ServiceCategory, error) {
	return s.DB.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.ServiceCategory, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	slug, err := s.uniqueCategorySlug(ctx, in.Slug, in.Name, "")
	if err != nil {
		return nil, err
	}
	c := &models.ServiceCategory{
		ID:          utils.GenerateID(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Description: in.Description,
		SortOrder:   in.SortOrder,
	}
	if err := s.DB.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create service category: %w", err)
	}
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*models.ServiceCategory, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	c, err := s.DB.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Slug != "" && utils.Slugify(in.Slug) != c.Slug {
		if c.Slug, err = s.uniqueCategorySlug(ctx, in.Slug, in.Name, id); err != nil {
			return nil, err
		}
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Description = in.Description
	c.SortOrder = in.SortOrder
	if err := s.DB.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("update service category: %w", err)
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.DB.GetCategory(ctx, id); err != nil {
		return err
	}
	n, err := s.DB.CountServicesInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("category %s still has %d services: %w", id, n, apperr.ErrConflict)
	}
	return s.DB.DeleteCategory(ctx, id)
}

func (s *Service) check(ctx context.Context, in *ServiceInput) error {
	if err := utils.Validate(in); err != nil {
		return err
	}
	if in.PriceFrom.IsNegative() {
		return apperr.Invalid("price_from", "Must not be negative")
	}
	if in.CategoryID != nil && *in.CategoryID != "" {
		if _, err := s.DB.GetCategory(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Invalid("category_id", "Unknown category")
			}
			return err
		}
	}
	return nil
}

func apply(svc *models.Service, in ServiceInput, now time.Time) {
	svc.Name = strings.TrimSpace(in.Name)
	svc.ShortDescription = in.ShortDescription
	svc.Description = in.Description
	svc.CategoryID = in.CategoryID
	if svc.CategoryID != nil && *svc.CategoryID == "" {
		svc.CategoryID = nil
	}
	svc.PriceFrom = in.PriceFrom
	svc.Icon = in.Icon
	svc.Status = in.Status
	if svc.Status == "" {
		svc.Status = models.ServiceStatusActive
	}
	svc.Featured = in.Featured
	svc.UpdatedAt = now
}

func (s *Service) uniqueSlug(ctx context.Context, requested, name, excludeID string) (string, error) {
	return utils.UniqueSlug(ctx, requested, name, func(ctx context.Context, slug string) (bool, error) {
		return s.DB.SlugExists(ctx, slug, excludeID)
	})
}

func (s *Service) uniqueCategorySlug(ctx context.Context, requested, name, excludeID string) (string, error) {
	return utils.UniqueSlug(ctx, requested, name, func(ctx context.Context, slug string) (bool, error) {
		return s.DB.CategorySlugExists(ctx, slug, excludeID)
	})
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
