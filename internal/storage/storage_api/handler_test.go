package storage_api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/logger"
	"samba-tours/internal/storage"
)

func newRouter() http.Handler {
	h := NewHandler(storage.NewMemoryStorage("http://cdn.test/media"), 10*time.Minute, logger.NewNopLogger())
	r := chi.NewRouter()
	h.RegisterAdminRoutes(r)
	return r
}

func post(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/storage/upload-url", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateUploadURL(t *testing.T) {
	rec := post(t, newRouter(), `{"folder":"tours","owner_id":"t1","content_type":"image/png","size":2048}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data UploadURLResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Data.Key, "tours/t1/"))
	assert.True(t, strings.HasSuffix(resp.Data.Key, ".png"))
	assert.Equal(t, "http://cdn.test/media/"+resp.Data.Key, resp.Data.PublicURL)
	assert.Contains(t, resp.Data.UploadURL, resp.Data.Key)
	assert.True(t, resp.Data.ExpiresAt.After(time.Now()))
}

func TestCreateUploadURLRejectsBadInput(t *testing.T) {
	router := newRouter()
	for name, body := range map[string]string{
		"unknown folder":   `{"folder":"avatars","content_type":"image/png","size":10}`,
		"missing owner":    `{"folder":"services","content_type":"image/png","size":10}`,
		"not an image":     `{"folder":"blog","content_type":"application/pdf","size":10}`,
		"too large":        `{"folder":"blog","content_type":"image/jpeg","size":20971520}`,
		"missing size":     `{"folder":"blog","content_type":"image/jpeg"}`,
		"unexpected field": `{"folder":"blog","content_type":"image/jpeg","size":10,"acl":"public"}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, post(t, router, body).Code)
		})
	}
}
