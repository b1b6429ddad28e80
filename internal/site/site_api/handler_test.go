package site_api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/database/dbtest"
	"samba-tours/internal/logger"
	"samba-tours/internal/site"
	"samba-tours/internal/site/db"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(t *testing.T) http.Handler {
	log := logger.NewNopLogger()
	h := NewHandler(site.NewService(&db.DB{Bun: dbtest.New(t)}, nil, log), log)

	r := chi.NewRouter()
	r.Route("/api", h.RegisterPublicRoutes)
	r.Route("/api/admin", h.RegisterAdminRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestNewsletterDuplicateReturnsOK(t *testing.T) {
	r := newRouter(t)

	rec, env := do(t, r, http.MethodPost, "/api/newsletter", `{"email": "a@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Subscribed", env.Message)

	rec, env = do(t, r, http.MethodPost, "/api/newsletter", `{"email": "A@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Already subscribed", env.Message)

	rec, _ = do(t, r, http.MethodPost, "/api/newsletter", `{"email": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, r, http.MethodPost, "/api/newsletter/unsubscribe", `{"email": "a@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContactFlow(t *testing.T) {
	r := newRouter(t)

	rec, env := do(t, r, http.MethodPost, "/api/contact", `{
		"name": "Peter",
		"email": "peter@example.com",
		"message": "Do you run trips to Kidepo in August?"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, _ = do(t, r, http.MethodPatch, "/api/admin/contact-messages/"+created.ID+"/read", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = do(t, r, http.MethodGet, "/api/admin/contact-messages?unread=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 0, page.Total)

	rec, _ = do(t, r, http.MethodDelete, "/api/admin/contact-messages/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = do(t, r, http.MethodDelete, "/api/admin/contact-messages/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGalleryRejectsUnknownSource(t *testing.T) {
	r := newRouter(t)

	rec, _ := do(t, r, http.MethodGet, "/api/gallery?source=blog", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := do(t, r, http.MethodGet, "/api/gallery", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"items":[]`)
}
