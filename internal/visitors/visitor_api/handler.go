package visitor_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"samba-tours/internal/logger"
	"samba-tours/internal/utils"
	"samba-tours/internal/visitors"
)

type Handler struct {
	VisitorService *visitors.Service
	Logger         *logger.Logger
}

func NewHandler(svc *visitors.Service, log *logger.Logger) *Handler {
	return &Handler{VisitorService: svc, Logger: log}
}

func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/visitors/track", h.Track)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/visitors/stats", h.Stats)
	r.Get("/visitors/active", h.Active)
}

// Track fills user agent and country from the request when the client left
// them out.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	var in visitors.TrackInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "Track", "Invalid request body", err)
		return
	}
	if in.UserAgent == "" {
		in.UserAgent = truncate(r.UserAgent(), 500)
	}
	if in.Referrer == "" {
		in.Referrer = r.Referer()
	}
	if in.Country == "" {
		in.Country = r.Header.Get("CF-IPCountry")
		if len(in.Country) != 2 {
			in.Country = ""
		}
	}
	if _, err := h.VisitorService.Track(r.Context(), in); err != nil {
		utils.Fail(h.Logger, w, "Track", "Failed to track visit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	from, to, err := utils.ParseDateRange(r, 30)
	if err != nil {
		utils.Fail(h.Logger, w, "Stats", "Invalid date range", err)
		return
	}
	st, err := h.VisitorService.Stats(r.Context(), from, to)
	if err != nil {
		utils.Fail(h.Logger, w, "Stats", "Failed to load visitor stats", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Visitor stats", st)
}

func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	n, err := h.VisitorService.ActiveVisitors(r.Context())
	if err != nil {
		utils.Fail(h.Logger, w, "Active", "Failed to count active visitors", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Active visitors", map[string]int{"active_visitors": n})
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
