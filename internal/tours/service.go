package tours

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

const changeTable = "tours"

type TourFilter struct {
	CategorySlug string
	Status       string
	Featured     *bool
	Search       string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Sort         string
	Limit        int
	Offset       int
}

// DeletionReport counts rows still referencing a tour after deletion.
type DeletionReport map[string]int

func (r DeletionReport) Clean() bool {
	for _, n := range r {
		if n > 0 {
			return false
		}
	}
	return true
}

type TourDB interface {
	ListTours(ctx context.Context, f TourFilter) ([]models.Tour, int, error)
	GetTour(ctx context.Context, id string) (*models.Tour, error)
	GetTourBySlug(ctx context.Context, slug string) (*models.Tour, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	CreateTour(ctx context.Context, tour *models.Tour, itinerary []models.TourItineraryDay) error
	UpdateTour(ctx context.Context, tour *models.Tour, itinerary []models.TourItineraryDay) error
	DeleteTourCascade(ctx context.Context, id string) ([]models.TourImage, error)
	VerifyTourDeleted(ctx context.Context, id string) (DeletionReport, error)

	AddImage(ctx context.Context, img *models.TourImage) error
	GetImage(ctx context.Context, id string) (*models.TourImage, error)
	DeleteImage(ctx context.Context, id string) error
	CountImages(ctx context.Context, tourID string) (int, error)
	SetCoverImage(ctx context.Context, tourID, url string) error

	ListCategories(ctx context.Context) ([]models.TourCategory, error)
	GetCategory(ctx context.Context, id string) (*models.TourCategory, error)
	CategorySlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	CreateCategory(ctx context.Context, c *models.TourCategory) error
	UpdateCategory(ctx context.Context, c *models.TourCategory) error
	DeleteCategory(ctx context.Context, id string) error
	CountToursInCategory(ctx context.Context, categoryID string) (int, error)
}

type Service struct {
	DB      TourDB
	Storage storage.ObjectStorage
	Emitter *realtime.Emitter
	Logger  *logger.Logger
}

func NewService(db TourDB, store storage.ObjectStorage, emitter *realtime.Emitter, log *logger.Logger) *Service {
	return &Service{DB: db, Storage: store, Emitter: emitter, Logger: log}
}

type ItineraryDayInput struct {
	DayNumber   int    `json:"day_number" validate:"gte=1"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
}

type TourInput struct {
	Title         string              `json:"title" validate:"required,min=3,max=200"`
	Slug          string              `json:"slug" validate:"omitempty,max=200"`
	Summary       string              `json:"summary" validate:"max=500"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.Decimal     `json:"original_price"`
	DurationDays  int                 `json:"duration_days" validate:"gte=1,lte=90"`
	Location      string              `json:"location" validate:"required,max=200"`
	MaxGroupSize  int                 `json:"max_group_size" validate:"gte=0"`
	Difficulty    string              `json:"difficulty" validate:"omitempty,oneof=easy moderate challenging"`
	CategoryID    *string             `json:"category_id"`
	Status        string              `json:"status" validate:"omitempty,oneof=draft published archived"`
	Featured      bool                `json:"featured"`
	Rating        float64             `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount   int                 `json:"review_count" validate:"gte=0"`
	CoverImage    string              `json:"cover_image" validate:"omitempty,url"`
	Itinerary     []ItineraryDayInput `json:"itinerary" validate:"dive"`
}

func (in *TourInput) validate() error {
	if err := utils.Validate(in); err != nil {
		return err
	}
	if !in.Price.IsPositive() {
		return apperr.Invalid("price", "Must be greater than 0")
	}
	if in.OriginalPrice.IsNegative() {
		return apperr.Invalid("original_price", "Must not be negative")
	}
	seen := map[int]bool{}
	for _, day := range in.Itinerary {
		if seen[day.DayNumber] {
			return apperr.Invalid("itinerary", fmt.Sprintf("day %d appears twice", day.DayNumber))
		}
		seen[day.DayNumber] = true
	}
	return nil
}

type ImageUpload struct {
	Data        []byte
	ContentType string
	Caption     string
}

func (s *Service) ListTours(ctx context.Context, f TourFilter) ([]models.Tour, int, error) {
	if f.Status != "" && !contains(models.TourStatuses, f.Status) {
		return nil, 0, apperr.Invalid("status", "Must be one of: draft published archived")
	}
	switch f.Sort {
	case "", "newest", "price_asc", "price_desc", "rating":
	default:
		return nil, 0, apperr.Invalid("sort", "Must be one of: newest price_asc price_desc rating")
	}
	return s.DB.ListTours(ctx, f)
}

// ListPublishedTours is the public listing; the status filter is fixed.
func (s *Service) ListPublishedTours(ctx context.Context, f TourFilter) ([]models.Tour, int, error) {
	f.Status = models.TourStatusPublished
	return s.ListTours(ctx, f)
}

func (s *Service) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	return s.DB.GetTour(ctx, id)
}

// GetTourBySlug returns a tour with its category, images and itinerary. When
// publicOnly is set, unpublished tours are reported as missing.
func (s *Service) GetTourBySlug(ctx context.Context, slug string, publicOnly bool) (*models.Tour, error) {
	tour, err := s.DB.GetTourBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if publicOnly && tour.Status != models.TourStatusPublished {
		return nil, apperr.NotFound("tour", slug)
	}
	return tour, nil
}

func (s *Service) CreateTour(ctx context.Context, in TourInput) (*models.Tour, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tour := &models.Tour{ID: utils.GenerateID(), CreatedAt: now}
	applyTourInput(tour, in, now)

	slug, err := s.uniqueSlug(ctx, in.Slug, in.Title, "")
	if err != nil {
		return nil, err
	}
	tour.Slug = slug

	itinerary := buildItinerary(tour.ID, in.Itinerary)
	if err := s.DB.CreateTour(ctx, tour, itinerary); err != nil {
		return nil, fmt.Errorf("create tour: %w", err)
	}
	tour.Itinerary = itinerary

	s.Logger.Info("TOURS", fmt.Sprintf("Tour %s created with slug %s", tour.ID, tour.Slug))
	s.Emitter.Emit(ctx, changeTable, realtime.Insert, tour.ID, tour)
	return tour, nil
}

func (s *Service) UpdateTour(ctx context.Context, id string, in TourInput) (*models.Tour, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	tour, err := s.DB.GetTour(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	if in.Slug != "" && utils.Slugify(in.Slug) != tour.Slug {
		slug, err := s.uniqueSlug(ctx, in.Slug, in.Title, tour.ID)
		if err != nil {
			return nil, err
		}
		tour.Slug = slug
	}
	applyTourInput(tour, in, time.Now().UTC())

	itinerary := buildItinerary(tour.ID, in.Itinerary)
	if err := s.DB.UpdateTour(ctx, tour, itinerary); err != nil {
		return nil, fmt.Errorf("update tour %s: %w", id, err)
	}
	tour.Itinerary = itinerary

	s.Emitter.Emit(ctx, changeTable, realtime.Update, tour.ID, tour)
	return tour, nil
}

// DeleteTour removes the tour with its images, itinerary and booking items in
// one transaction, then reads every table back. Bucket objects are removed
// last and only logged on failure.
func (s *Service) DeleteTour(ctx context.Context, id string) error {
	images, err := s.DB.DeleteTourCascade(ctx, id)
	if err != nil {
		return err
	}

	report, err := s.DB.VerifyTourDeleted(ctx, id)
	if err != nil {
		return fmt.Errorf("verify tour deletion: %w", err)
	}
	if !report.Clean() {
		s.Logger.Error("TOURS", fmt.Sprintf("Tour %s deletion left rows behind: %v", id, report))
		return fmt.Errorf("tour deletion verification failed: %v: %w", report, apperr.ErrConflict)
	}

	for _, img := range images {
		if img.StorageKey == "" || s.Storage == nil {
			continue
		}
		if err := s.Storage.Delete(ctx, img.StorageKey); err != nil {
			s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to delete object %s of tour %s: %v", img.StorageKey, id, err))
		}
	}

	s.Logger.Info("TOURS", fmt.Sprintf("Tour %s deleted with %d images", id, len(images)))
	s.Emitter.Emit(ctx, changeTable, realtime.Delete, id, nil)
	return nil
}

// AddTourImage uploads to the bucket then records the row. The first image of
// a tour without a cover becomes its cover.
func (s *Service) AddTourImage(ctx context.Context, tourID string, up ImageUpload) (*models.TourImage, error) {
	if err := storage.CheckImage(up.ContentType, len(up.Data)); err != nil {
		return nil, err
	}
	tour, err := s.DB.GetTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	count, err := s.DB.CountImages(ctx, tourID)
	if err != nil {
		return nil, err
	}

	key := storage.TourImageKey(tourID, up.ContentType)
	if err := s.Storage.Upload(ctx, key, up.Data, up.ContentType); err != nil {
		return nil, err
	}

	img := &models.TourImage{
		ID:         utils.GenerateID(),
		TourID:     tourID,
		StorageKey: key,
		URL:        s.Storage.PublicURL(key),
		Caption:    up.Caption,
		SortOrder:  count,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.DB.AddImage(ctx, img); err != nil {
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to remove orphaned object %s: %v", key, delErr))
		}
		return nil, fmt.Errorf("save tour image: %w", err)
	}

	if tour.CoverImage == "" {
		if err := s.DB.SetCoverImage(ctx, tourID, img.URL); err != nil {
			return nil, err
		}
	}
	s.Emitter.Emit(ctx, "tour_images", realtime.Insert, img.ID, img)
	return img, nil
}

func (s *Service) DeleteTourImage(ctx context.Context, imageID string) error {
	img, err := s.DB.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if err := s.DB.DeleteImage(ctx, imageID); err != nil {
		return err
	}

	tour, err := s.DB.GetTour(ctx, img.TourID)
	if err == nil && tour.CoverImage == img.URL {
		next := ""
		for _, other := range tour.Images {
			if other.ID != img.ID {
				next = other.URL
				break
			}
		}
		if err := s.DB.SetCoverImage(ctx, tour.ID, next); err != nil {
			return err
		}
	}

	if img.StorageKey != "" {
		if err := s.Storage.Delete(ctx, img.StorageKey); err != nil {
			s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to delete object %s: %v", img.StorageKey, err))
		}
	}
	s.Emitter.Emit(ctx, "tour_images", realtime.Delete, imageID, nil)
	return nil
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

func (s *Service) ListCategories(ctx context.Context) ([]models.TourCategory, error) {
	return s.DB.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.TourCategory, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	slug, err := s.uniqueCategorySlug(ctx, in.Slug, in.Name, "")
	if err != nil {
		return nil, err
	}
	c := &models.TourCategory{
		ID:          utils.GenerateID(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.DB.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create tour category: %w", err)
	}
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*models.TourCategory, error) {
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
	if err := s.DB.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("update tour category: %w", err)
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.DB.GetCategory(ctx, id); err != nil {
		return err
	}
	n, err := s.DB.CountToursInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("category %s still has %d tours: %w", id, n, apperr.ErrConflict)
	}
	return s.DB.DeleteCategory(ctx, id)
}

func (s *Service) checkCategory(ctx context.Context, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	if _, err := s.DB.GetCategory(ctx, *id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Invalid("category_id", "Unknown category")
		}
		return err
	}
	return nil
}

func (s *Service) uniqueSlug(ctx context.Context, requested, title, excludeID string) (string, error) {
	return utils.UniqueSlug(ctx, requested, title, func(ctx context.Context, slug string) (bool, error) {
		return s.DB.SlugExists(ctx, slug, excludeID)
	})
}

func (s *Service) uniqueCategorySlug(ctx context.Context, requested, name, excludeID string) (string, error) {
	return utils.UniqueSlug(ctx, requested, name, func(ctx context.Context, slug string) (bool, error) {
		return s.DB.CategorySlugExists(ctx, slug, excludeID)
	})
}

func applyTourInput(tour *models.Tour, in TourInput, now time.Time) {
	tour.Title = strings.TrimSpace(in.Title)
	tour.Summary = in.Summary
	tour.Description = in.Description
	tour.Price = in.Price
	tour.OriginalPrice = in.OriginalPrice
	if tour.OriginalPrice.IsZero() {
		tour.OriginalPrice = in.Price
	}
	tour.DurationDays = in.DurationDays
	tour.Location = strings.TrimSpace(in.Location)
	tour.MaxGroupSize = in.MaxGroupSize
	tour.Difficulty = in.Difficulty
	tour.CategoryID = in.CategoryID
	if tour.CategoryID != nil && *tour.CategoryID == "" {
		tour.CategoryID = nil
	}
	tour.Status = in.Status
	if tour.Status == "" {
		tour.Status = models.TourStatusDraft
	}
	tour.Featured = in.Featured
	tour.Rating = in.Rating
	tour.ReviewCount = in.ReviewCount
	if in.CoverImage != "" {
		tour.CoverImage = in.CoverImage
	}
	tour.UpdatedAt = now
}

func buildItinerary(tourID string, days []ItineraryDayInput) []models.TourItineraryDay {
	out := make([]models.TourItineraryDay, 0, len(days))
	for _, d := range days {
		out = append(out, models.TourItineraryDay{
			ID:          utils.GenerateID(),
			TourID:      tourID,
			DayNumber:   d.DayNumber,
			Title:       d.Title,
			Description: d.Description,
		})
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
