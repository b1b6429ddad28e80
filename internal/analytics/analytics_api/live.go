package analytics_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"samba-tours/internal/analytics"
	"samba-tours/internal/logger"
	"samba-tours/internal/realtime"
)

// LiveHandler streams change events and periodic dashboard snapshots to the
// admin dashboard over server-sent events.
type LiveHandler struct {
	AnalyticsService *analytics.Service
	Hub              *realtime.Hub
	Interval         time.Duration
	Logger           *logger.Logger
}

func NewLiveHandler(svc *analytics.Service, hub *realtime.Hub, interval time.Duration, log *logger.Logger) *LiveHandler {
	return &LiveHandler{AnalyticsService: svc, Hub: hub, Interval: interval, Logger: log}
}

func (h *LiveHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/analytics/live", h.Stream)
}

func parseTables(raw string) []string {
	var tables []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}
	return tables
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// Stream handles GET /analytics/live?tables=bookings,visitors. Without tables
// every change is forwarded.
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	tables := parseTables(r.URL.Query().Get("tables"))
	events := h.Hub.Subscribe(ctx, tables...)

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	connected := map[string]interface{}{"tables": tables, "subscribers": h.Hub.SubscriberCount()}
	if err := writeEvent(w, flusher, "connected", connected); err != nil {
		return
	}
	h.Logger.Debug("SSE", fmt.Sprintf("Live dashboard connected, tables=%v", tables))

	h.sendMetrics(w, r, flusher)
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, flusher, "change", ev); err != nil {
				h.Logger.Debug("SSE", fmt.Sprintf("Live dashboard write failed: %v", err))
				return
			}
		case <-ticker.C:
			h.sendMetrics(w, r, flusher)
		case <-ctx.Done():
			h.Logger.Debug("SSE", "Live dashboard disconnected")
			return
		}
	}
}

func (h *LiveHandler) sendMetrics(w http.ResponseWriter, r *http.Request, flusher http.Flusher) {
	d, err := h.AnalyticsService.Dashboard(r.Context())
	if err != nil {
		h.Logger.Warn("SSE", fmt.Sprintf("Failed to build live metrics: %v", err))
		return
	}
	if err := writeEvent(w, flusher, "metrics", d); err != nil {
		h.Logger.Debug("SSE", fmt.Sprintf("Live metrics write failed: %v", err))
	}
}
