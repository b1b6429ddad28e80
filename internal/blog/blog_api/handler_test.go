package blog_api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"samba-tours/internal/auth"
	"samba-tours/internal/blog"
	"samba-tours/internal/blog/db"
	"samba-tours/internal/database/dbtest"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type postView struct {
	ID       string  `json:"id"`
	Slug     string  `json:"slug"`
	Status   string  `json:"status"`
	AuthorID *string `json:"author_id"`
	Views    int     `json:"views"`
}

func newRouter(t *testing.T, identity *auth.Identity) (http.Handler, *bun.DB) {
	bunDB := dbtest.New(t)
	log := logger.NewNopLogger()
	svc := blog.NewService(&db.DB{Bun: bunDB}, storage.NewMemoryStorage(""), nil, log)
	h := NewHandler(svc, log)

	r := chi.NewRouter()
	r.Route("/api", h.RegisterPublicRoutes)
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if identity != nil {
					req = req.WithContext(auth.WithIdentity(req.Context(), identity))
				}
				next.ServeHTTP(w, req)
			})
		})
		h.RegisterAdminRoutes(r)
	})
	return r, bunDB
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

func TestPostLifecycle(t *testing.T) {
	editor := &auth.Identity{UserID: "editor-1", Role: models.RoleEditor}
	r, bunDB := newRouter(t, editor)
	_, err := bunDB.NewInsert().Model(&models.Profile{
		ID: "editor-1", Email: "editor@sambatours.test", Role: models.RoleEditor, CreatedAt: time.Now().UTC(),
	}).Exec(context.Background())
	require.NoError(t, err)

	rec, env := do(t, r, http.MethodPost, "/api/admin/blog", `{
		"title": "Rafting the White Nile",
		"content": "<p>Grade five rapids.</p>",
		"tags": ["Adventure"]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created postView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.PostStatusDraft, created.Status)
	require.NotNil(t, created.AuthorID)
	assert.Equal(t, "editor-1", *created.AuthorID)

	rec, _ = do(t, r, http.MethodGet, "/api/blog/rafting-the-white-nile", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, r, http.MethodPost, "/api/admin/blog/"+created.ID+"/publish", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, r, http.MethodGet, "/api/blog/rafting-the-white-nile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got postView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 1, got.Views)

	rec, env = do(t, r, http.MethodPost, "/api/blog/rafting-the-white-nile/like", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"likes":1}`, string(env.Data))

	rec, env = do(t, r, http.MethodGet, "/api/blog?tag=adventure", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []postView `json:"items"`
		Total int        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.Total)

	rec, _ = do(t, r, http.MethodDelete, "/api/admin/blog/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = do(t, r, http.MethodGet, "/api/blog/rafting-the-white-nile", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServiceRoleLeavesAuthorEmpty(t *testing.T) {
	r, _ := newRouter(t, &auth.Identity{UserID: "service", Role: models.RoleServiceRole})

	rec, env := do(t, r, http.MethodPost, "/api/admin/blog", `{"title": "Imported Post", "content": "Body"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created postView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Nil(t, created.AuthorID)
}

func TestCreatePostRejectsBadInput(t *testing.T) {
	r, _ := newRouter(t, nil)

	rec, env := do(t, r, http.MethodPost, "/api/admin/blog", `{"title": "No body"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)

	rec, _ = do(t, r, http.MethodPost, "/api/admin/blog", `{"title": "x", "content": "y", "mood": "happy"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryRoutes(t *testing.T) {
	r, _ := newRouter(t, nil)

	rec, env := do(t, r, http.MethodPost, "/api/admin/blog-categories", `{"name": "Wildlife"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c models.BlogCategory
	require.NoError(t, json.Unmarshal(env.Data, &c))
	assert.Equal(t, "wildlife", c.Slug)

	rec, env = do(t, r, http.MethodGet, "/api/blog-categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"Wildlife"`)

	rec, _ = do(t, r, http.MethodDelete, "/api/admin/blog-categories/"+c.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
