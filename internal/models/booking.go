package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"

	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

var (
	BookingStatuses = []string{BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted}
	PaymentStatuses = []string{PaymentStatusUnpaid, PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded}
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID              string          `bun:"id,pk" json:"id"`
	Reference       string          `bun:"reference,notnull,unique" json:"reference"`
	CustomerName    string          `bun:"customer_name,notnull" json:"customer_name"`
	CustomerEmail   string          `bun:"customer_email,notnull" json:"customer_email"`
	CustomerPhone   string          `bun:"customer_phone" json:"customer_phone"`
	CustomerCountry string          `bun:"customer_country" json:"customer_country"`
	SpecialRequests string          `bun:"special_requests" json:"special_requests"`
	Status          string          `bun:"status,notnull" json:"status"`
	PaymentStatus   string          `bun:"payment_status,notnull" json:"payment_status"`
	PaymentIntentID string          `bun:"payment_intent_id" json:"payment_intent_id,omitempty"`
	TotalAmount     decimal.Decimal `bun:"total_amount,type:numeric(12,2)" json:"total_amount"`
	Currency        string          `bun:"currency" json:"currency"`
	CartID          string          `bun:"cart_id" json:"cart_id,omitempty"`
	CreatedAt       time.Time       `bun:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `bun:"updated_at" json:"updated_at"`

	Items []BookingItem `bun:"rel:has-many,join:id=booking_id" json:"items,omitempty"`
}

type BookingItem struct {
	bun.BaseModel `bun:"table:booking_items"`

	ID         string          `bun:"id,pk" json:"id"`
	BookingID  string          `bun:"booking_id,notnull" json:"booking_id"`
	TourID     string          `bun:"tour_id,notnull" json:"tour_id"`
	TourTitle  string          `bun:"tour_title" json:"tour_title"`
	TravelDate time.Time       `bun:"travel_date" json:"travel_date"`
	Travelers  int             `bun:"travelers" json:"travelers"`
	UnitPrice  decimal.Decimal `bun:"unit_price,type:numeric(12,2)" json:"unit_price"`
	Subtotal   decimal.Decimal `bun:"subtotal,type:numeric(12,2)" json:"subtotal"`
}
