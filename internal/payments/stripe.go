package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"samba-tours/internal/config"
	"samba-tours/internal/logger"
)

var ErrGatewayNotConfigured = errors.New("payment gateway not configured")

var _ Gateway = (*StripeGateway)(nil)

type StripeGateway struct {
	client        *client.API
	webhookSecret string
	log           *logger.Logger
}

func NewStripeGateway(cfg config.PaymentConfig, log *logger.Logger) (*StripeGateway, error) {
	if cfg.StripeSecretKey == "" {
		return nil, ErrGatewayNotConfigured
	}
	sc := client.New(cfg.StripeSecretKey, nil)
	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeGateway{client: sc, webhookSecret: cfg.StripeWebhookSecret, log: log}, nil
}

// NewStripeWebhookVerifier only checks webhook signatures. It is used when the
// secret key is missing but events still have to be accepted.
func NewStripeWebhookVerifier(secret string, log *logger.Logger) *StripeGateway {
	return &StripeGateway{webhookSecret: secret, log: log}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if g.client == nil {
		return nil, ErrGatewayNotConfigured
	}
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(ToMinorUnits(req.Amount, req.Currency)),
		Currency:     stripe.String(req.Currency),
		Description:  stripe.String("Samba Tours booking " + req.Reference),
		ReceiptEmail: stripe.String(req.Email),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("booking_id", req.BookingID)
	params.AddMetadata("reference", req.Reference)

	pi, err := g.client.PaymentIntents.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to create payment intent for booking %s: %v", req.Reference, err))
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	g.log.Info("STRIPE", fmt.Sprintf("Created payment intent %s for booking %s (%s %s)", pi.ID, req.Reference, req.Amount.StringFixed(2), req.Currency))
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	if g.client == nil {
		return ErrGatewayNotConfigured
	}
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	if _, err := g.client.PaymentIntents.Cancel(intentID, params); err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to cancel payment intent %s: %v", intentID, err))
		return fmt.Errorf("cancel payment intent: %w", err)
	}
	g.log.Info("STRIPE", fmt.Sprintf("Cancelled payment intent %s", intentID))
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the booking
// the event refers to. Errors are always *WebhookError.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if g.webhookSecret == "" {
		return nil, &WebhookError{
			Category:      "configuration",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: "Stripe webhook secret is not configured",
		}
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, validationError("Webhook signature verification failed", err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, validationError("Invalid event data", err)
		}
		out.IntentID = pi.ID
		out.BookingID = pi.Metadata["booking_id"]
		out.Outcome = OutcomeSucceeded
		if event.Type == "payment_intent.payment_failed" {
			out.Outcome = OutcomeFailed
		}
	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, validationError("Invalid event data", err)
		}
		if ch.PaymentIntent != nil {
			out.IntentID = ch.PaymentIntent.ID
		}
		out.BookingID = ch.Metadata["booking_id"]
		out.Outcome = OutcomeRefunded
	default:
		g.log.Info("WEBHOOK", fmt.Sprintf("Unhandled event type: %s", event.Type))
		return out, nil
	}

	if out.BookingID == "" && out.IntentID == "" {
		return nil, &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid payment intent data",
			InternalError: fmt.Sprintf("%s event %s has neither booking_id nor payment intent", event.Type, event.ID),
		}
	}
	return out, nil
}
