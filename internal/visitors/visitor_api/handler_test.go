package visitor_api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/database/dbtest"
	"samba-tours/internal/logger"
	"samba-tours/internal/visitors"
	"samba-tours/internal/visitors/db"
)

func TestTrackFillsRequestHeaders(t *testing.T) {
	log := logger.NewNopLogger()
	bunDB := dbtest.New(t)
	svc := visitors.NewService(&db.DB{Bun: bunDB}, nil, nil, log)
	h := NewHandler(svc, log)
	r := chi.NewRouter()
	r.Route("/api", h.RegisterPublicRoutes)
	r.Route("/api/admin", h.RegisterAdminRoutes)

	req := httptest.NewRequest(http.MethodPost, "/api/visitors/track", bytes.NewBufferString(`{"visitor_id": "abc-123", "page": "/"}`))
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("CF-IPCountry", "UG")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	stats := httptest.NewRecorder()
	r.ServeHTTP(stats, httptest.NewRequest(http.MethodGet, "/api/admin/visitors/stats", nil))
	require.Equal(t, http.StatusOK, stats.Code, stats.Body.String())
	assert.Contains(t, stats.Body.String(), `"unique_visitors":1`)

	bad := httptest.NewRecorder()
	r.ServeHTTP(bad, httptest.NewRequest(http.MethodPost, "/api/visitors/track", bytes.NewBufferString(`{"page": "/"}`)))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}
