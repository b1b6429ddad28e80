package analytics_api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/analytics"
	"samba-tours/internal/database/dbtest"
	"samba-tours/internal/logger"
	"samba-tours/internal/realtime"
)

func newRouter(t *testing.T, hub *realtime.Hub) http.Handler {
	log := logger.NewNopLogger()
	svc := analytics.NewService(dbtest.New(t), nil, log)
	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		NewHandler(svc, log).RegisterAdminRoutes(r)
		NewLiveHandler(svc, hub, time.Hour, log).RegisterAdminRoutes(r)
	})
	return r
}

func TestReportEndpoints(t *testing.T) {
	r := newRouter(t, realtime.NewHub())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/analytics/revenue?from=2026-01-01&to=2026-01-07", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"date":"2026-01-07"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/analytics/revenue?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/analytics/report.xlsx?from=2026-01-01&to=2026-01-31", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "samba-tours-report-2026-01-01-2026-01-31.xlsx")
	assert.Equal(t, "PK", rec.Body.String()[:2])
}

func TestLiveStream(t *testing.T) {
	hub := realtime.NewHub()
	srv := httptest.NewServer(newRouter(t, hub))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/admin/analytics/live?tables=bookings", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	next := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}

	assert.Equal(t, "connected", next())
	assert.Equal(t, "metrics", next())

	hub.Publish(realtime.NewChangeEvent("visitors", realtime.Insert, "v1", nil))
	hub.Publish(realtime.NewChangeEvent("bookings", realtime.Insert, "b1", nil))
	assert.Equal(t, "change", next())
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"record_id":"b1"`)
}
