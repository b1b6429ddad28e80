package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	ServiceStatusActive   = "active"
	ServiceStatusInactive = "inactive"
)

var ServiceStatuses = []string{ServiceStatusActive, ServiceStatusInactive}

type ServiceCategory struct {
	bun.BaseModel `bun:"table:service_categories"`

	ID          string `bun:"id,pk" json:"id"`
	Name        string `bun:"name,notnull" json:"name"`
	Slug        string `bun:"slug,notnull,unique" json:"slug"`
	Description string `bun:"description" json:"description"`
	SortOrder   int    `bun:"sort_order" json:"sort_order"`

	Services []Service `bun:"rel:has-many,join:id=category_id" json:"services,omitempty"`
}

type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID               string          `bun:"id,pk" json:"id"`
	Slug             string          `bun:"slug,notnull,unique" json:"slug"`
	Name             string          `bun:"name,notnull" json:"name"`
	ShortDescription string          `bun:"short_description" json:"short_description"`
	Description      string          `bun:"description" json:"description"`
	CategoryID       *string         `bun:"category_id" json:"category_id"`
	PriceFrom        decimal.Decimal `bun:"price_from,type:numeric(12,2)" json:"price_from"`
	Icon             string          `bun:"icon" json:"icon"`
	Status           string          `bun:"status,notnull" json:"status"`
	Featured         bool            `bun:"featured" json:"featured"`
	CreatedAt        time.Time       `bun:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `bun:"updated_at" json:"updated_at"`

	Category *ServiceCategory `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
	Images   []ServiceImage   `bun:"rel:has-many,join:id=service_id" json:"images,omitempty"`
}

type ServiceImage struct {
	bun.BaseModel `bun:"table:service_images"`

	ID         string    `bun:"id,pk" json:"id"`
	ServiceID  string    `bun:"service_id,notnull" json:"service_id"`
	StorageKey string    `bun:"storage_key" json:"storage_key"`
	URL        string    `bun:"url" json:"url"`
	AltText    string    `bun:"alt_text" json:"alt_text"`
	SortOrder  int       `bun:"sort_order" json:"sort_order"`
	CreatedAt  time.Time `bun:"created_at" json:"created_at"`
}
