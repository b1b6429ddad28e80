package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

var PostStatuses = []string{PostStatusDraft, PostStatusPublished}

type BlogCategory struct {
	bun.BaseModel `bun:"table:blog_categories"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Slug        string    `bun:"slug,notnull,unique" json:"slug"`
	Description string    `bun:"description" json:"description"`
	CreatedAt   time.Time `bun:"created_at" json:"created_at"`
}

type BlogPost struct {
	bun.BaseModel `bun:"table:blog_posts"`

	ID          string     `bun:"id,pk" json:"id"`
	Slug        string     `bun:"slug,notnull,unique" json:"slug"`
	Title       string     `bun:"title,notnull" json:"title"`
	Excerpt     string     `bun:"excerpt" json:"excerpt"`
	Content     string     `bun:"content" json:"content"`
	CoverImage  string     `bun:"cover_image" json:"cover_image"`
	CategoryID  *string    `bun:"category_id" json:"category_id"`
	AuthorID    *string    `bun:"author_id" json:"author_id"`
	Status      string     `bun:"status,notnull" json:"status"`
	Tags        []string   `bun:"tags,type:jsonb" json:"tags"`
	Views       int        `bun:"views" json:"views"`
	Likes       int        `bun:"likes" json:"likes"`
	PublishedAt *time.Time `bun:"published_at" json:"published_at"`
	CreatedAt   time.Time  `bun:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at" json:"updated_at"`

	Category *BlogCategory `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
	Author   *Profile      `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
}
