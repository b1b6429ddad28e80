package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/auth"
	"samba-tours/internal/config"
	"samba-tours/internal/database/dbtest"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/site"
	sitedb "samba-tours/internal/site/db"
	"samba-tours/internal/site/site_api"
	"samba-tours/internal/storage"
	"samba-tours/internal/storage/storage_api"
	"samba-tours/internal/tours"
	toursdb "samba-tours/internal/tours/db"
	"samba-tours/internal/tours/tour_api"
)

var keys = config.KeyConfig{AnonKey: "anon-key", ServiceRoleKey: "service-key", RequireAPIKey: true}

type fixture struct {
	router   http.Handler
	verifier *auth.HMACVerifier
}

func setup(t *testing.T) fixture {
	t.Helper()
	log := logger.NewNopLogger()
	bunDB := dbtest.New(t)
	store := storage.NewMemoryStorage("http://cdn.test")

	verifier, err := auth.NewHMACVerifier("router-test-secret-key", time.Hour, nil)
	require.NoError(t, err)

	h := Handlers{
		Tours:   tour_api.NewHandler(tours.NewService(&toursdb.DB{Bun: bunDB}, store, nil, log), log),
		Site:    site_api.NewHandler(site.NewService(&sitedb.DB{Bun: bunDB}, nil, log), log),
		Storage: storage_api.NewHandler(store, time.Minute, log),
		Auth:    &auth.Handler{Profiles: &auth.BunProfileStore{Bun: bunDB}, Issuer: verifier, Logger: log},
	}
	router := NewRouter(h, Options{
		Keys:           keys,
		Verifier:       verifier,
		AllowedOrigins: []string{"https://sambatours.example"},
		Logger:         log,
	})
	return fixture{router: router, verifier: verifier}
}

func (f fixture) token(t *testing.T, role string) string {
	tok, _, err := f.verifier.Issue(&models.Profile{ID: "u-" + role, Email: role + "@sambatours.example", Role: role})
	require.NoError(t, err)
	return tok
}

func (f fixture) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", keys.AnonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

const tourBody = `{"title":"Murchison Falls Safari","price":"450","duration_days":3,"location":"Murchison","status":"published"}`

func TestPublicRoutesNeedAPIKey(t *testing.T) {
	f := setup(t)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/tours", "", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/tours", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTourOnPublicPathRequiresStaff(t *testing.T) {
	f := setup(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/tours", tourBody, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/tours", tourBody, "forged").Code)

	rec := f.do(http.MethodPost, "/api/tours", tourBody, f.token(t, models.RoleEditor))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/tours/murchison-falls-safari", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoleSplit(t *testing.T) {
	f := setup(t)
	editor := f.token(t, models.RoleEditor)
	admin := f.token(t, models.RoleAdmin)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/admin/tours", "", editor).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/admin/contact-messages", "", editor).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/admin/contact-messages", "", admin).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/admin/contact-messages", "", keys.ServiceRoleKey).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/admin/tours", "", keys.AnonKey).Code)
}

func TestStorageUploadURLMounted(t *testing.T) {
	f := setup(t)
	body := `{"folder":"blog","content_type":"image/webp","size":512}`
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/admin/storage/upload-url", body, f.token(t, models.RoleEditor)).Code)
}

func TestAuthMe(t *testing.T) {
	f := setup(t)
	rec := f.do(http.MethodGet, "/api/auth/me", "", f.token(t, models.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/auth/me", "", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	f := setup(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/tours", nil)
	req.Header.Set("Origin", "https://sambatours.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,apikey")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, "https://sambatours.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/tours", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
