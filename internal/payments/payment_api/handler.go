package payment_api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/payments"
	"samba-tours/internal/utils"
)

const maxWebhookBody = 64 << 10

// PaymentApplier records a verified payment outcome on the booking.
type PaymentApplier interface {
	ApplyPayment(ctx context.Context, ev payments.WebhookEvent) error
}

type Handler struct {
	Gateway  payments.Gateway
	Bookings PaymentApplier
	Logger   *logger.Logger
}

func NewHandler(gateway payments.Gateway, bookings PaymentApplier, log *logger.Logger) *Handler {
	return &Handler{Gateway: gateway, Bookings: bookings, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/webhook", h.StripeWebhook)
}

func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.handleWebhook(w, r); err != nil {
		var webhookErr *payments.WebhookError
		if errors.As(err, &webhookErr) {
			h.Logger.Error("WEBHOOK", fmt.Sprintf("category=%s status=%d: %s", webhookErr.Category, webhookErr.StatusCode, webhookErr.InternalError))
			utils.WriteJSON(w, webhookErr.StatusCode, utils.ErrorResponse(webhookErr.PublicError, webhookErr.Category))
			return
		}
		h.Logger.Error("WEBHOOK", fmt.Sprintf("StripeWebhook: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Webhook processing error", "processing"))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Webhook processed", nil)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) error {
	if h.Gateway == nil {
		return &payments.WebhookError{
			Category:      "configuration",
			StatusCode:    http.StatusServiceUnavailable,
			PublicError:   "Payments are not enabled",
			InternalError: "webhook received without a configured gateway",
		}
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &payments.WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusRequestEntityTooLarge,
			PublicError:   "Webhook payload too large",
			InternalError: fmt.Sprintf("webhook payload exceeds %d bytes", tooLarge.Limit),
			OriginalErr:   err,
		}
	}
	if err != nil {
		return &payments.WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: fmt.Sprintf("Failed to read webhook payload: %v", err),
			OriginalErr:   err,
		}
	}

	ev, err := h.Gateway.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		return err
	}
	h.Logger.Info("WEBHOOK", fmt.Sprintf("Processing event %s (%s)", ev.ID, ev.Type))
	if ev.Outcome == "" {
		return nil
	}

	err = h.Bookings.ApplyPayment(r.Context(), *ev)
	if errors.Is(err, apperr.ErrNotFound) {
		h.Logger.Warn("WEBHOOK", fmt.Sprintf("Event %s refers to an unknown booking: %v", ev.ID, err))
		return nil
	}
	if err != nil {
		return &payments.WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Failed to process payment",
			InternalError: fmt.Sprintf("apply %s to booking %s (intent %s): %v", ev.Outcome, ev.BookingID, ev.IntentID, err),
			OriginalErr:   err,
		}
	}
	return nil
}
