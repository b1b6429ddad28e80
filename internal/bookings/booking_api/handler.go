package booking_api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"samba-tours/internal/apperr"
	"samba-tours/internal/bookings"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/utils"
)

type VoucherRenderer interface {
	QRCode(b *models.Booking) ([]byte, error)
	PDF(b *models.Booking) ([]byte, error)
}

type Handler struct {
	BookingService *bookings.Service
	Vouchers       VoucherRenderer
	Logger         *logger.Logger
}

func NewHandler(svc *bookings.Service, vouchers VoucherRenderer, log *logger.Logger) *Handler {
	return &Handler{BookingService: svc, Vouchers: vouchers, Logger: log}
}

func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/bookings", h.CreateBooking)
	r.Get("/bookings/lookup", h.LookupBooking)
	r.Get("/bookings/{reference}/voucher.png", h.VoucherQR)
	r.Get("/bookings/{reference}/voucher.pdf", h.VoucherPDF)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", h.ListBookings)
		r.Get("/{bookingId}", h.GetBooking)
		r.Put("/{bookingId}", h.UpdateBooking)
		r.Patch("/{bookingId}/status", h.UpdateStatus)
		r.Patch("/{bookingId}/payment-status", h.UpdatePaymentStatus)
		r.Delete("/{bookingId}", h.DeleteBooking)
	})
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var in bookings.BookingInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "CreateBooking", "Invalid request body", err)
		return
	}
	b, err := h.BookingService.CreateBooking(r.Context(), in)
	if err != nil {
		utils.Fail(h.Logger, w, "CreateBooking", "Failed to create booking", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Booking created", b)
}

func (h *Handler) LookupBooking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := h.BookingService.GetBookingByReference(r.Context(), q.Get("reference"), q.Get("email"))
	if err != nil {
		utils.Fail(h.Logger, w, "LookupBooking", "Booking not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking", b)
}

func (h *Handler) VoucherQR(w http.ResponseWriter, r *http.Request) {
	h.voucher(w, r, "image/png", "VoucherQR", h.Vouchers.QRCode)
}

func (h *Handler) VoucherPDF(w http.ResponseWriter, r *http.Request) {
	h.voucher(w, r, "application/pdf", "VoucherPDF", h.Vouchers.PDF)
}

func (h *Handler) voucher(w http.ResponseWriter, r *http.Request, contentType, op string, render func(*models.Booking) ([]byte, error)) {
	ref := chi.URLParam(r, "reference")
	b, err := h.BookingService.GetBookingByReference(r.Context(), ref, r.URL.Query().Get("email"))
	if err != nil {
		utils.Fail(h.Logger, w, op, "Booking not found", err)
		return
	}
	if b.Status == models.BookingStatusCancelled {
		utils.Fail(h.Logger, w, op, "Voucher unavailable", fmt.Errorf("booking %s is cancelled: %w", ref, apperr.ErrConflict))
		return
	}
	data, err := render(b)
	if err != nil {
		utils.Fail(h.Logger, w, op, "Failed to render voucher", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if contentType == "application/pdf" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, b.Reference))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := utils.ParsePagination(r, 20, 100)
	f := bookings.BookingFilter{
		Status:        q.Get("status"),
		PaymentStatus: q.Get("payment_status"),
		Search:        q.Get("q"),
		Limit:         limit,
		Offset:        offset,
	}
	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if v := q.Get(key); v != "" {
			t, err := time.Parse(utils.DateLayout, v)
			if err != nil {
				utils.Fail(h.Logger, w, "ListBookings", "Invalid filter", apperr.Invalid(key, "must be YYYY-MM-DD"))
				return
			}
			if key == "to" {
				t = t.AddDate(0, 0, 1)
			}
			*dst = &t
		}
	}

	list, total, err := h.BookingService.ListBookings(r.Context(), f)
	if err != nil {
		utils.Fail(h.Logger, w, "ListBookings", "Failed to list bookings", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Bookings", utils.Page{Items: list, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.BookingService.GetBooking(r.Context(), chi.URLParam(r, "bookingId"))
	if err != nil {
		utils.Fail(h.Logger, w, "GetBooking", "Booking not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking", b)
}

func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var in bookings.BookingUpdate
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "UpdateBooking", "Invalid request body", err)
		return
	}
	b, err := h.BookingService.UpdateBooking(r.Context(), chi.URLParam(r, "bookingId"), in)
	if err != nil {
		utils.Fail(h.Logger, w, "UpdateBooking", "Failed to update booking", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking updated", b)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Fail(h.Logger, w, "UpdateStatus", "Invalid request body", err)
		return
	}
	id := chi.URLParam(r, "bookingId")
	h.Logger.Info("API", fmt.Sprintf("UpdateStatus: bookingId=%s status=%s", id, req.Status))
	b, err := h.BookingService.UpdateBookingStatus(r.Context(), id, req.Status)
	if err != nil {
		utils.Fail(h.Logger, w, "UpdateStatus", "Failed to update status", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking status updated", b)
}

func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Fail(h.Logger, w, "UpdatePaymentStatus", "Invalid request body", err)
		return
	}
	b, err := h.BookingService.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "bookingId"), req.Status)
	if err != nil {
		utils.Fail(h.Logger, w, "UpdatePaymentStatus", "Failed to update payment status", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payment status updated", b)
}

func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookingId")
	h.Logger.Info("API", fmt.Sprintf("DeleteBooking: bookingId=%s", id))
	if err := h.BookingService.DeleteBooking(r.Context(), id); err != nil {
		utils.Fail(h.Logger, w, "DeleteBooking", "Failed to delete booking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
