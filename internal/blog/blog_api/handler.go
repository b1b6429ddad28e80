package blog_api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"samba-tours/internal/auth"
	"samba-tours/internal/blog"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/storage"
	"samba-tours/internal/utils"
)

type Handler struct {
	BlogService *blog.Service
	Logger      *logger.Logger
}

func NewHandler(svc *blog.Service, log *logger.Logger) *Handler {
	return &Handler{BlogService: svc, Logger: log}
}

func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/blog", h.ListPublishedPosts)
	r.Get("/blog/{slug}", h.GetPostBySlug)
	r.Post("/blog/{slug}/like", h.LikePost)
	r.Get("/blog/{slug}/related", h.RelatedPosts)
	r.Get("/blog-categories", h.ListCategories)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/blog", func(r chi.Router) {
		r.Get("/", h.ListAllPosts)
		r.Post("/", h.CreatePost)
		r.Post("/images", h.UploadImage)
		r.Get("/{postId}", h.GetPost)
		r.Put("/{postId}", h.UpdatePost)
		r.Delete("/{postId}", h.DeletePost)
		r.Post("/{postId}/publish", h.PublishPost)
		r.Post("/{postId}/unpublish", h.UnpublishPost)
	})
	r.Route("/blog-categories", func(r chi.Router) {
		r.Post("/", h.CreateCategory)
		r.Put("/{categoryId}", h.UpdateCategory)
		r.Delete("/{categoryId}", h.DeleteCategory)
	})
}

func parseFilter(r *http.Request) blog.PostFilter {
	q := r.URL.Query()
	limit, offset := utils.ParsePagination(r, 9, 100)
	return blog.PostFilter{
		CategorySlug: q.Get("category"),
		Tag:          q.Get("tag"),
		Search:       q.Get("q"),
		Status:       q.Get("status"),
		Limit:        limit,
		Offset:       offset,
	}
}

func (h *Handler) ListPublishedPosts(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	list, total, err := h.BlogService.ListPublishedPosts(r.Context(), f)
	if err != nil {
		utils.Fail(h.Logger, w, "ListPublishedPosts", "Failed to list posts", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Posts", utils.Page{Items: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *Handler) ListAllPosts(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	list, total, err := h.BlogService.ListPosts(r.Context(), f)
	if err != nil {
		utils.Fail(h.Logger, w, "ListAllPosts", "Failed to list posts", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Posts", utils.Page{Items: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *Handler) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.BlogService.GetPublishedPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		utils.Fail(h.Logger, w, "GetPostBySlug", "Post not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Post", p)
}

func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	likes, err := h.BlogService.LikePost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		utils.Fail(h.Logger, w, "LikePost", "Failed to like post", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Post liked", map[string]int{"likes": likes})
}

func (h *Handler) RelatedPosts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.BlogService.RelatedPosts(r.Context(), chi.URLParam(r, "slug"), limit)
	if err != nil {
		utils.Fail(h.Logger, w, "RelatedPosts", "Failed to load related posts", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Related posts", list)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.BlogService.GetPost(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		utils.Fail(h.Logger, w, "GetPost", "Post not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Post", p)
}

// withAuthor defaults the author to the signed-in editor. The service-role
// key has no profile behind it.
func withAuthor(r *http.Request, in *blog.PostInput) {
	if in.AuthorID != nil && *in.AuthorID != "" {
		return
	}
	if auth.Role(r.Context()) == models.RoleServiceRole {
		return
	}
	if id := auth.UserID(r.Context()); id != "" {
		in.AuthorID = &id
	}
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in blog.PostInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "CreatePost", "Invalid request body", err)
		return
	}
	withAuthor(r, &in)
	p, err := h.BlogService.CreatePost(r.Context(), in)
	if err != nil {
		utils.Fail(h.Logger, w, "CreatePost", "Failed to create post", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreatePost: created post %s", p.ID))
	utils.WriteSuccess(w, http.StatusCreated, "Post created", p)
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var in blog.PostInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "UpdatePost", "Invalid request body", err)
		return
	}
	p, err := h.BlogService.UpdatePost(r.Context(), chi.URLParam(r, "postId"), in)
	if err != nil {
		utils.Fail(h.Logger, w, "UpdatePost", "Failed to update post", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Post updated", p)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "postId")
	h.Logger.Info("API", fmt.Sprintf("DeletePost: postId=%s", id))
	if err := h.BlogService.DeletePost(r.Context(), id); err != nil {
		utils.Fail(h.Logger, w, "DeletePost", "Failed to delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PublishPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.BlogService.PublishPost(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		utils.Fail(h.Logger, w, "PublishPost", "Failed to publish post", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Post published", p)
}

func (h *Handler) UnpublishPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.BlogService.UnpublishPost(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		utils.Fail(h.Logger, w, "UnpublishPost", "Failed to unpublish post", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Post unpublished", p)
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	up, err := storage.ReadImageUpload(r)
	if err != nil {
		utils.Fail(h.Logger, w, "UploadImage", "Invalid upload", err)
		return
	}
	img, err := h.BlogService.UploadImage(r.Context(), blog.ImageUpload{Data: up.Data, ContentType: up.ContentType})
	if err != nil {
		utils.Fail(h.Logger, w, "UploadImage", "Failed to upload image", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Image uploaded", img)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.BlogService.ListCategories(r.Context())
	if err != nil {
		utils.Fail(h.Logger, w, "ListCategories", "Failed to list categories", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Blog categories", list)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in blog.CategoryInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "CreateCategory", "Invalid request body", err)
		return
	}
	c, err := h.BlogService.CreateCategory(r.Context(), in)
	if err != nil {
		utils.Fail(h.Logger, w, "CreateCategory", "Failed to create category", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Category created", c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in blog.CategoryInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "UpdateCategory", "Invalid request body", err)
		return
	}
	c, err := h.BlogService.UpdateCategory(r.Context(), chi.URLParam(r, "categoryId"), in)
	if err != nil {
		utils.Fail(h.Logger, w, "UpdateCategory", "Failed to update category", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Category updated", c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.BlogService.DeleteCategory(r.Context(), chi.URLParam(r, "categoryId")); err != nil {
		utils.Fail(h.Logger, w, "DeleteCategory", "Failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
