package tour_api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/storage"
	"samba-tours/internal/tours"
	"samba-tours/internal/utils"
)

type Handler struct {
	TourService *tours.Service
	Logger      *logger.Logger
}

func NewHandler(svc *tours.Service, log *logger.Logger) *Handler {
	return &Handler{TourService: svc, Logger: log}
}

func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/tours", h.ListPublishedTours)
	r.Get("/tours/{slug}", h.GetTourBySlug)
	r.Get("/tour-categories", h.ListCategories)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/tours", func(r chi.Router) {
		r.Get("/", h.ListAllTours)
		r.Post("/", h.CreateTour)
		r.Get("/{tourId}", h.GetTour)
		r.Put("/{tourId}", h.UpdateTour)
		r.Delete("/{tourId}", h.DeleteTour)
		r.Post("/{tourId}/images", h.UploadImage)
	})
	r.Delete("/tour-images/{imageId}", h.DeleteImage)
	r.Route("/tour-categories", func(r chi.Router) {
		r.Post("/", h.CreateCategory)
		r.Put("/{categoryId}", h.UpdateCategory)
		r.Delete("/{categoryId}", h.DeleteCategory)
	})
}

func parseFilter(r *http.Request) (tours.TourFilter, error) {
	q := r.URL.Query()
	limit, offset := utils.ParsePagination(r, 12, 100)
	f := tours.TourFilter{
		CategorySlug: q.Get("category"),
		Status:       q.Get("status"),
		Search:       q.Get("q"),
		Sort:         q.Get("sort"),
		Limit:        limit,
		Offset:       offset,
	}
	if v := q.Get("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, apperr.Invalid("featured", "Must be true or false")
		}
		f.Featured = &b
	}
	for key, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		if v := q.Get(key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return f, apperr.Invalid(key, "Must be numeric")
			}
			*dst = &d
		}
	}
	return f, nil
}

func (h *Handler) ListPublishedTours(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		utils.Fail(h.Logger, w, "ListPublishedTours", "Invalid filter", err)
		return
	}
	list, total, err := h.TourService.ListPublishedTours(r.Context(), f)
	if err != nil {
		utils.Fail(h.Logger, w, "ListPublishedTours", "Failed to list tours", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tours", utils.Page{Items: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *Handler) ListAllTours(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		utils.Fail(h.Logger, w, "ListAllTours", "Invalid filter", err)
		return
	}
	list, total, err := h.TourService.ListTours(r.Context(), f)
	if err != nil {
		utils.Fail(h.Logger, w, "ListAllTours", "Failed to list tours", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tours", utils.Page{Items: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *Handler) GetTourBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	tour, err := h.TourService.GetTourBySlug(r.Context(), slug, true)
	if err != nil {
		utils.Fail(h.Logger, w, "GetTourBySlug", "Tour not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tour", tour)
}

func (h *Handler) GetTour(w http.ResponseWriter, r *http.Request) {
	tour, err := h.TourService.GetTour(r.Context(), chi.URLParam(r, "tourId"))
	if err != nil {
		utils.Fail(h.Logger, w, "GetTour", "Tour not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tour", tour)
}

func (h *Handler) CreateTour(w http.ResponseWriter, r *http.Request) {
	var in tours.TourInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "CreateTour", "Invalid request body", err)
		return
	}
	tour, err := h.TourService.CreateTour(r.Context(), in)
	if err != nil {
		utils.Fail(h.Logger, w, "CreateTour", "Failed to create tour", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateTour: created tour %s", tour.ID))
	utils.WriteSuccess(w, http.StatusCreated, "Tour created", tour)
}

func (h *Handler) UpdateTour(w http.ResponseWriter, r *http.Request) {
	var in tours.TourInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "UpdateTour", "Invalid request body", err)
		return
	}
	tour, err := h.TourService.UpdateTour(r.Context(), chi.URLParam(r, "tourId"), in)
	if err != nil {
		utils.Fail(h.Logger, w, "UpdateTour", "Failed to update tour", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tour updated", tour)
}

func (h *Handler) DeleteTour(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tourId")
	h.Logger.Info("API", fmt.Sprintf("DeleteTour: tourId=%s", id))
	if err := h.TourService.DeleteTour(r.Context(), id); err != nil {
		utils.Fail(h.Logger, w, "DeleteTour", "Failed to delete tour", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage takes a multipart form with a "file" part and optional "caption".
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	up, err := storage.ReadImageUpload(r)
	if err != nil {
		utils.Fail(h.Logger, w, "UploadImage", "Invalid upload", err)
		return
	}
	img, err := h.TourService.AddTourImage(r.Context(), chi.URLParam(r, "tourId"), tours.ImageUpload{
		Data:        up.Data,
		ContentType: up.ContentType,
		Caption:     r.FormValue("caption"),
	})
	if err != nil {
		utils.Fail(h.Logger, w, "UploadImage", "Failed to upload image", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Image uploaded", img)
}

func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := h.TourService.DeleteTourImage(r.Context(), chi.URLParam(r, "imageId")); err != nil {
		utils.Fail(h.Logger, w, "DeleteImage", "Failed to delete image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.TourService.ListCategories(r.Context())
	if err != nil {
		utils.Fail(h.Logger, w, "ListCategories", "Failed to list categories", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tour categories", list)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in tours.CategoryInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "CreateCategory", "Invalid request body", err)
		return
	}
	c, err := h.TourService.CreateCategory(r.Context(), in)
	if err != nil {
		utils.Fail(h.Logger, w, "CreateCategory", "Failed to create category", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Category created", c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in tours.CategoryInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "UpdateCategory", "Invalid request body", err)
		return
	}
	c, err := h.TourService.UpdateCategory(r.Context(), chi.URLParam(r, "categoryId"), in)
	if err != nil {
		utils.Fail(h.Logger, w, "UpdateCategory", "Failed to update category", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Category updated", c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.TourService.DeleteCategory(r.Context(), chi.URLParam(r, "categoryId")); err != nil {
		utils.Fail(h.Logger, w, "DeleteCategory", "Failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
