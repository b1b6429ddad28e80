package site_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"samba-tours/internal/logger"
	"samba-tours/internal/site"
	"samba-tours/internal/utils"
)

type Handler struct {
	SiteService *site.Service
	Logger      *logger.Logger
}

func NewHandler(svc *site.Service, log *logger.Logger) *Handler {
	return &Handler{SiteService: svc, Logger: log}
}

func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/gallery", h.Gallery)
	r.Post("/contact", h.SubmitContact)
	r.Post("/newsletter", h.Subscribe)
	r.Post("/newsletter/unsubscribe", h.Unsubscribe)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/contact-messages", func(r chi.Router) {
		r.Get("/", h.ListMessages)
		r.Patch("/{messageId}/read", h.MarkRead)
		r.Delete("/{messageId}", h.DeleteMessage)
	})
	r.Route("/newsletter-subscribers", func(r chi.Router) {
		r.Get("/", h.ListSubscribers)
		r.Delete("/{subscriberId}", h.DeleteSubscriber)
	})
}

func (h *Handler) Gallery(w http.ResponseWriter, r *http.Request) {
	limit, offset := utils.ParsePagination(r, 24, 100)
	items, total, err := h.SiteService.Gallery(r.Context(), r.URL.Query().Get("source"), limit, offset)
	if err != nil {
		utils.Fail(h.Logger, w, "Gallery", "Failed to load gallery", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Gallery", utils.Page{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var in site.ContactInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "SubmitContact", "Invalid request body", err)
		return
	}
	m, err := h.SiteService.SubmitContact(r.Context(), in)
	if err != nil {
		utils.Fail(h.Logger, w, "SubmitContact", "Failed to send message", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Message received", map[string]string{"id": m.ID})
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var in site.SubscribeInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "Subscribe", "Invalid request body", err)
		return
	}
	sub, outcome, err := h.SiteService.Subscribe(r.Context(), in)
	if err != nil {
		utils.Fail(h.Logger, w, "Subscribe", "Failed to subscribe", err)
		return
	}
	switch outcome {
	case site.AlreadySubscribed:
		utils.WriteSuccess(w, http.StatusOK, "Already subscribed", sub)
	case site.Resubscribed:
		utils.WriteSuccess(w, http.StatusOK, "Subscription renewed", sub)
	default:
		utils.WriteSuccess(w, http.StatusCreated, "Subscribed", sub)
	}
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var in site.UnsubscribeInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "Unsubscribe", "Invalid request body", err)
		return
	}
	if err := h.SiteService.Unsubscribe(r.Context(), in); err != nil {
		utils.Fail(h.Logger, w, "Unsubscribe", "Failed to unsubscribe", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Unsubscribed", nil)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit, offset := utils.ParsePagination(r, 50, 200)
	f := site.MessageFilter{Unread: r.URL.Query().Get("unread") == "true", Limit: limit, Offset: offset}
	list, total, err := h.SiteService.ListMessages(r.Context(), f)
	if err != nil {
		utils.Fail(h.Logger, w, "ListMessages", "Failed to list messages", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Messages", utils.Page{Items: list, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Read *bool `json:"read"`
	}
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.Fail(h.Logger, w, "MarkRead", "Invalid request body", err)
			return
		}
	}
	read := body.Read == nil || *body.Read
	if err := h.SiteService.MarkMessageRead(r.Context(), chi.URLParam(r, "messageId"), read); err != nil {
		utils.Fail(h.Logger, w, "MarkRead", "Failed to update message", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Message updated", map[string]bool{"read": read})
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.SiteService.DeleteMessage(r.Context(), chi.URLParam(r, "messageId")); err != nil {
		utils.Fail(h.Logger, w, "DeleteMessage", "Failed to delete message", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	limit, offset := utils.ParsePagination(r, 50, 500)
	list, total, err := h.SiteService.ListSubscribers(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		utils.Fail(h.Logger, w, "ListSubscribers", "Failed to list subscribers", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Subscribers", utils.Page{Items: list, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) DeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	if err := h.SiteService.DeleteSubscriber(r.Context(), chi.URLParam(r, "subscriberId")); err != nil {
		utils.Fail(h.Logger, w, "DeleteSubscriber", "Failed to delete subscriber", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
