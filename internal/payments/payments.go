// Package payments starts card payments for bookings and turns gateway
// webhooks into booking payment outcomes.
package payments

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeRefunded  Outcome = "refunded"
)

// Gateway is the payment provider seen by the booking flow.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type IntentRequest struct {
	BookingID string
	Reference string
	Email     string
	Amount    decimal.Decimal
	Currency  string
}

type Intent struct {
	ID           string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// WebhookEvent is a verified gateway event. Outcome is empty for event types
// that do not change a booking.
type WebhookEvent struct {
	ID        string
	Type      string
	IntentID  string
	BookingID string
	Outcome   Outcome
}

// WebhookError carries the status code and client-safe message for a
// rejected webhook; InternalError only goes to the logs.
type WebhookError struct {
	Category      string // "configuration", "validation", "processing"
	StatusCode    int
	PublicError   string
	InternalError string
	OriginalErr   error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

func (e *WebhookError) Unwrap() error {
	return e.OriginalErr
}

func validationError(public string, err error) *WebhookError {
	return &WebhookError{
		Category:      "validation",
		StatusCode:    http.StatusBadRequest,
		PublicError:   public,
		InternalError: public + ": " + errString(err),
		OriginalErr:   err,
	}
}

func errString(err error) string {
	if err == nil {
		return "no details"
	}
	return err.Error()
}

// Currencies the gateway charges in whole units.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// ToMinorUnits converts an amount to the integer the gateway expects.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimal[strings.ToLower(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}
