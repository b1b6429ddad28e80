package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	TourStatusDraft     = "draft"
	TourStatusPublished = "published"
	TourStatusArchived  = "archived"
)

var TourStatuses = []string{TourStatusDraft, TourStatusPublished, TourStatusArchived}

type TourCategory struct {
	bun.BaseModel `bun:"table:tour_categories"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Slug        string    `bun:"slug,notnull,unique" json:"slug"`
	Description string    `bun:"description" json:"description"`
	CreatedAt   time.Time `bun:"created_at" json:"created_at"`
}

type Tour struct {
	bun.BaseModel `bun:"table:tours"`

	ID            string          `bun:"id,pk" json:"id"`
	Slug          string          `bun:"slug,notnull,unique" json:"slug"`
	Title         string          `bun:"title,notnull" json:"title"`
	Summary       string          `bun:"summary" json:"summary"`
	Description   string          `bun:"description" json:"description"`
	Price         decimal.Decimal `bun:"price,type:numeric(12,2)" json:"price"`
	OriginalPrice decimal.Decimal `bun:"original_price,type:numeric(12,2)" json:"original_price"`
	DurationDays  int             `bun:"duration_days" json:"duration_days"`
	Location      string          `bun:"location" json:"location"`
	MaxGroupSize  int             `bun:"max_group_size" json:"max_group_size"`
	Difficulty    string          `bun:"difficulty" json:"difficulty"`
	CategoryID    *string         `bun:"category_id" json:"category_id"`
	Status        string          `bun:"status,notnull" json:"status"`
	Featured      bool            `bun:"featured" json:"featured"`
	Rating        float64         `bun:"rating" json:"rating"`
	ReviewCount   int             `bun:"review_count" json:"review_count"`
	CoverImage    string          `bun:"cover_image" json:"cover_image"`
	CreatedAt     time.Time       `bun:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at" json:"updated_at"`

	Category  *TourCategory      `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
	Images    []TourImage        `bun:"rel:has-many,join:id=tour_id" json:"images,omitempty"`
	Itinerary []TourItineraryDay `bun:"rel:has-many,join:id=tour_id" json:"itinerary,omitempty"`
}

type TourImage struct {
	bun.BaseModel `bun:"table:tour_images"`

	ID         string    `bun:"id,pk" json:"id"`
	TourID     string    `bun:"tour_id,notnull" json:"tour_id"`
	StorageKey string    `bun:"storage_key" json:"storage_key"`
	URL        string    `bun:"url" json:"url"`
	Caption    string    `bun:"caption" json:"caption"`
	SortOrder  int       `bun:"sort_order" json:"sort_order"`
	CreatedAt  time.Time `bun:"created_at" json:"created_at"`
}

type TourItineraryDay struct {
	bun.BaseModel `bun:"table:tour_itinerary_days"`

	ID          string `bun:"id,pk" json:"id"`
	TourID      string `bun:"tour_id,notnull" json:"tour_id"`
	DayNumber   int    `bun:"day_number" json:"day_number"`
	Title       string `bun:"title" json:"title"`
	Description string `bun:"description" json:"description"`
}
