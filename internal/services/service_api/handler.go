package service_api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/services"
	"samba-tours/internal/storage"
	"samba-tours/internal/utils"
)

type Handler struct {
	ServiceService *services.Service
	Logger         *logger.Logger
}

func NewHandler(svc *services.Service, log *logger.Logger) *Handler {
	return &Handler{ServiceService: svc, Logger: log}
}

func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/services", h.ListActiveServices)
	r.Get("/services/{slug}", h.GetServiceBySlug)
	r.Get("/service-categories", h.ListCategories)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/services", func(r chi.Router) {
		r.Get("/", h.ListAllServices)
		r.Post("/", h.CreateService)
		r.Get("/{serviceId}", h.GetService)
		r.Put("/{serviceId}", h.UpdateService)
		r.Delete("/{serviceId}", h.DeleteService)
		r.Post("/{serviceId}/images", h.UploadImage)
	})
	r.Delete("/service-images/{imageId}", h.DeleteImage)
	r.Route("/service-categories", func(r chi.Router) {
		r.Post("/", h.CreateCategory)
		r.Put("/{categoryId}", h.UpdateCategory)
		r.Delete("/{categoryId}", h.DeleteCategory)
	})
}

func (h *Handler) ListActiveServices(w http.ResponseWriter, r *http.Request) {
	groups, err := h.ServiceService.ListActiveGrouped(r.Context())
	if err != nil {
		utils.Fail(h.Logger, w, "ListActiveServices", "Failed to list services", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Services", groups)
}

func (h *Handler) ListAllServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.ServiceFilter{
		Status:       q.Get("status"),
		CategorySlug: q.Get("category"),
		Search:       q.Get("q"),
	}
	if v := q.Get("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			utils.Fail(h.Logger, w, "ListAllServices", "Invalid filter", apperr.Invalid("featured", "Must be true or false"))
			return
		}
		f.Featured = &b
	}
	list, err := h.ServiceService.ListServices(r.Context(), f)
	if err != nil {
		utils.Fail(h.Logger, w, "ListAllServices", "Failed to list services", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Services", list)
}

func (h *Handler) GetServiceBySlug(w http.ResponseWriter, r *http.Request) {
	svc, err := h.ServiceService.GetServiceBySlug(r.Context(), chi.URLParam(r, "slug"), true)
	if err != nil {
		utils.Fail(h.Logger, w, "GetServiceBySlug", "Service not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Service", svc)
}

func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.ServiceService.GetService(r.Context(), chi.URLParam(r, "serviceId"))
	if err != nil {
		utils.Fail(h.Logger, w, "GetService", "Service not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Service", svc)
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var in services.ServiceInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "CreateService", "Invalid request body", err)
		return
	}
	svc, err := h.ServiceService.CreateService(r.Context(), in)
	if err != nil {
		utils.Fail(h.Logger, w, "CreateService", "Failed to create service", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateService: created service %s", svc.ID))
	utils.WriteSuccess(w, http.StatusCreated, "Service created", svc)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var in services.ServiceInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "UpdateService", "Invalid request body", err)
		return
	}
	svc, err := h.ServiceService.UpdateService(r.Context(), chi.URLParam(r, "serviceId"), in)
	if err != nil {
		utils.Fail(h.Logger, w, "UpdateService", "Failed to update service", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Service updated", svc)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "serviceId")
	h.Logger.Info("API", fmt.Sprintf("DeleteService: serviceId=%s", id))
	if err := h.ServiceService.DeleteService(r.Context(), id); err != nil {
		utils.Fail(h.Logger, w, "DeleteService", "Failed to delete service", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage takes a multipart form with a "file" part and optional "alt_text".
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	up, err := storage.ReadImageUpload(r)
	if err != nil {
		utils.Fail(h.Logger, w, "UploadImage", "Invalid upload", err)
		return
	}
	img, err := h.ServiceService.AddServiceImage(r.Context(), chi.URLParam(r, "serviceId"), services.ImageUpload{
		Data:        up.Data,
		ContentType: up.ContentType,
		AltText:     r.FormValue("alt_text"),
	})
	if err != nil {
		utils.Fail(h.Logger, w, "UploadImage", "Failed to upload image", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Image uploaded", img)
}

func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := h.ServiceService.DeleteServiceImage(r.Context(), chi.URLParam(r, "imageId")); err != nil {
		utils.Fail(h.Logger, w, "DeleteImage", "Failed to delete image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.ServiceService.ListCategories(r.Context())
	if err != nil {
		utils.Fail(h.Logger, w, "ListCategories", "Failed to list categories", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Service categories", list)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "CreateCategory", "Invalid request body", err)
		return
	}
	c, err := h.ServiceService.CreateCategory(r.Context(), in)
	if err != nil {
		utils.Fail(h.Logger, w, "CreateCategory", "Failed to create category", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Category created", c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.Fail(h.Logger, w, "UpdateCategory", "Invalid request body", err)
		return
	}
	c, err := h.ServiceService.UpdateCategory(r.Context(), chi.URLParam(r, "categoryId"), in)
	if err != nil {
		utils.Fail(h.Logger, w, "UpdateCategory", "Failed to update category", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Category updated", c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.ServiceService.DeleteCategory(r.Context(), chi.URLParam(r, "categoryId")); err != nil {
		utils.Fail(h.Logger, w, "DeleteCategory", "Failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
