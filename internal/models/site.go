package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SubscriberSubscribed   = "subscribed"
	SubscriberUnsubscribed = "unsubscribed"
)

type Visitor struct {
	bun.BaseModel `bun:"table:visitors"`

	ID         string    `bun:"id,pk" json:"id"`
	FirstSeen  time.Time `bun:"first_seen" json:"first_seen"`
	LastSeen   time.Time `bun:"last_seen" json:"last_seen"`
	VisitCount int       `bun:"visit_count" json:"visit_count"`
	LastPage   string    `bun:"last_page" json:"last_page"`
	Referrer   string    `bun:"referrer" json:"referrer"`
	UserAgent  string    `bun:"user_agent" json:"user_agent"`
	Country    string    `bun:"country" json:"country"`
}

type NewsletterSubscriber struct {
	bun.BaseModel `bun:"table:newsletter_subscribers"`

	ID        string    `bun:"id,pk" json:"id"`
	Email     string    `bun:"email,notnull,unique" json:"email"`
	Name      string    `bun:"name" json:"name"`
	Status    string    `bun:"status,notnull" json:"status"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
}

type ContactMessage struct {
	bun.BaseModel `bun:"table:contact_messages"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email,notnull" json:"email"`
	Phone     string    `bun:"phone" json:"phone"`
	Subject   string    `bun:"subject" json:"subject"`
	Message   string    `bun:"message,notnull" json:"message"`
	Read      bool      `bun:"read" json:"read"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
}

// AllTables lists every model in creation order, parents first.
func AllTables() []interface{} {
	return []interface{}{
		(*Profile)(nil),
		(*TourCategory)(nil),
		(*Tour)(nil),
		(*TourImage)(nil),
		(*TourItineraryDay)(nil),
		(*Booking)(nil),
		(*BookingItem)(nil),
		(*BlogCategory)(nil),
		(*BlogPost)(nil),
		(*ServiceCategory)(nil),
		(*Service)(nil),
		(*ServiceImage)(nil),
		(*Visitor)(nil),
		(*NewsletterSubscriber)(nil),
		(*ContactMessage)(nil),
	}
}
