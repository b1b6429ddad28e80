package analytics_api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"samba-tours/internal/analytics"
	"samba-tours/internal/logger"
	"samba-tours/internal/utils"
)

type Handler struct {
	AnalyticsService *analytics.Service
	Logger           *logger.Logger
}

func NewHandler(svc *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{AnalyticsService: svc, Logger: log}
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/dashboard", h.Dashboard)
		r.Get("/revenue", h.Revenue)
		r.Get("/bookings/status", h.BookingStatus)
		r.Get("/payments/status", h.PaymentStatus)
		r.Get("/tours/top", h.TopTours)
		r.Get("/posts/popular", h.PopularPosts)
		r.Get("/visitors", h.Visitors)
		r.Get("/report", h.Report)
		r.Get("/report.xlsx", h.ReportXLSX)
	})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.AnalyticsService.Dashboard(r.Context())
	if err != nil {
		utils.Fail(h.Logger, w, "Dashboard", "Failed to load dashboard", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Dashboard", d)
}

func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	from, to, err := utils.ParseDateRange(r, 30)
	if err != nil {
		utils.Fail(h.Logger, w, "Revenue", "Invalid date range", err)
		return
	}
	rev, err := h.AnalyticsService.Revenue(r.Context(), from, to)
	if err != nil {
		utils.Fail(h.Logger, w, "Revenue", "Failed to load revenue", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Revenue", rev)
}

func (h *Handler) BookingStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.AnalyticsService.BookingStatusBreakdown(r.Context())
	if err != nil {
		utils.Fail(h.Logger, w, "BookingStatus", "Failed to load booking statuses", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking status breakdown", counts)
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.AnalyticsService.PaymentStatusBreakdown(r.Context())
	if err != nil {
		utils.Fail(h.Logger, w, "PaymentStatus", "Failed to load payment statuses", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payment status breakdown", counts)
}

func (h *Handler) TopTours(w http.ResponseWriter, r *http.Request) {
	list, err := h.AnalyticsService.TopTours(r.Context(), utils.QueryInt(r, "limit", 5))
	if err != nil {
		utils.Fail(h.Logger, w, "TopTours", "Failed to load top tours", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Top tours", list)
}

func (h *Handler) PopularPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.AnalyticsService.PopularPosts(r.Context(), utils.QueryInt(r, "limit", 5))
	if err != nil {
		utils.Fail(h.Logger, w, "PopularPosts", "Failed to load popular posts", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Popular posts", list)
}

func (h *Handler) Visitors(w http.ResponseWriter, r *http.Request) {
	from, to, err := utils.ParseDateRange(r, 30)
	if err != nil {
		utils.Fail(h.Logger, w, "Visitors", "Invalid date range", err)
		return
	}
	if h.AnalyticsService.Visitors == nil {
		utils.WriteSuccess(w, http.StatusOK, "Visitor stats", nil)
		return
	}
	st, err := h.AnalyticsService.Visitors.Stats(r.Context(), from, to)
	if err != nil {
		utils.Fail(h.Logger, w, "Visitors", "Failed to load visitor stats", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Visitor stats", st)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	from, to, err := utils.ParseDateRange(r, 30)
	if err != nil {
		utils.Fail(h.Logger, w, "Report", "Invalid date range", err)
		return
	}
	rep, err := h.AnalyticsService.Report(r.Context(), from, to)
	if err != nil {
		utils.Fail(h.Logger, w, "Report", "Failed to build report", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Report", rep)
}

// ReportXLSX renders the workbook into memory first so a failure can still
// produce a JSON error.
func (h *Handler) ReportXLSX(w http.ResponseWriter, r *http.Request) {
	from, to, err := utils.ParseDateRange(r, 30)
	if err != nil {
		utils.Fail(h.Logger, w, "ReportXLSX", "Invalid date range", err)
		return
	}
	rep, err := h.AnalyticsService.Report(r.Context(), from, to)
	if err != nil {
		utils.Fail(h.Logger, w, "ReportXLSX", "Failed to build report", err)
		return
	}
	var buf bytes.Buffer
	if err := analytics.ExportReportXLSX(&buf, rep); err != nil {
		utils.Fail(h.Logger, w, "ReportXLSX", "Failed to export report", err)
		return
	}

	name := fmt.Sprintf("samba-tours-report-%s-%s.xlsx", rep.From.Format(utils.DateLayout), rep.To.AddDate(0, 0, -1).Format(utils.DateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("ReportXLSX: write failed: %v", err))
	}
}
