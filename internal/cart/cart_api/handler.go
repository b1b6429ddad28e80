package cart_api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"samba-tours/internal/bookings"
	"samba-tours/internal/cart"
	"samba-tours/internal/logger"
	"samba-tours/internal/utils"
)

type CheckoutService interface {
	CheckoutCart(ctx context.Context, cartID string, customer bookings.CustomerInput) (*bookings.CheckoutResult, error)
}

type Handler struct {
	CartService *cart.Service
	Checkout    CheckoutService
	Logger      *logger.Logger
}

func NewHandler(svc *cart.Service, checkout CheckoutService, log *logger.Logger) *Handler {
	return &Handler{CartService: svc, Checkout: checkout, Logger: log}
}

// cartView is a cart with its derived totals.
type cartView struct {
	cart.Cart
	Totals cart.Totals `json:"totals"`
}

func view(c cart.Cart) cartView {
	return cartView{Cart: c, Totals: c.Totals()}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Post("/", h.NewCart)
		r.Get("/{cartId}", h.GetCart)
		r.Post("/{cartId}/actions", h.Dispatch)
		r.Delete("/{cartId}", h.DeleteCart)
		r.Post("/{cartId}/checkout", h.CheckoutCart)
	})
}

func (h *Handler) NewCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.CartService.NewCart(r.Context())
	if err != nil {
		utils.Fail(h.Logger, w, "NewCart", "Failed to create cart", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Cart created", view(c))
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.CartService.Get(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		utils.Fail(h.Logger, w, "GetCart", "Failed to load cart", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Cart", view(c))
}

func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var a cart.Action
	if err := utils.DecodeJSON(r, &a); err != nil {
		utils.Fail(h.Logger, w, "Dispatch", "Invalid request body", err)
		return
	}
	c, err := h.CartService.Dispatch(r.Context(), chi.URLParam(r, "cartId"), a)
	if err != nil {
		utils.Fail(h.Logger, w, "Dispatch", "Failed to update cart", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Cart updated", view(c))
}

func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	if err := h.CartService.Delete(r.Context(), chi.URLParam(r, "cartId")); err != nil {
		utils.Fail(h.Logger, w, "DeleteCart", "Failed to delete cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	var customer bookings.CustomerInput
	if err := utils.DecodeJSON(r, &customer); err != nil {
		utils.Fail(h.Logger, w, "CheckoutCart", "Invalid request body", err)
		return
	}
	id := chi.URLParam(r, "cartId")
	if _, err := h.CartService.Get(r.Context(), id); err != nil {
		utils.Fail(h.Logger, w, "CheckoutCart", "Failed to load cart", err)
		return
	}
	result, err := h.Checkout.CheckoutCart(r.Context(), id, customer)
	if err != nil {
		utils.Fail(h.Logger, w, "CheckoutCart", "Checkout failed", err)
		return
	}
	h.Logger.LogBooking("CHECKOUT", result.Booking.Reference, "cart "+id+" checked out")
	utils.WriteSuccess(w, http.StatusCreated, "Booking created", result)
}
