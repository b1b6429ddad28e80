package storage_api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"samba-tours/internal/logger"
	"samba-tours/internal/storage"
	"samba-tours/internal/utils"
)

type Handler struct {
	Storage   storage.ObjectStorage
	ExpiresIn time.Duration
	Logger    *logger.Logger
}

func NewHandler(store storage.ObjectStorage, expiresIn time.Duration, log *logger.Logger) *Handler {
	return &Handler{Storage: store, ExpiresIn: expiresIn, Logger: log}
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/storage/upload-url", h.CreateUploadURL)
}

type UploadURLRequest struct {
	Folder      string `json:"folder" validate:"required"`
	OwnerID     string `json:"owner_id"`
	ContentType string `json:"content_type" validate:"required"`
	Size        int    `json:"size" validate:"required,gt=0"`
}

type UploadURLResponse struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateUploadURL hands out a presigned PUT URL so the browser can send the
// file straight to the bucket.
func (h *Handler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	var req UploadURLRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Fail(h.Logger, w, "CreateUploadURL", "Invalid request body", err)
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.Fail(h.Logger, w, "CreateUploadURL", "Invalid upload request", err)
		return
	}
	if err := storage.CheckImage(req.ContentType, req.Size); err != nil {
		utils.Fail(h.Logger, w, "CreateUploadURL", "Invalid upload request", err)
		return
	}
	key, err := storage.KeyForFolder(req.Folder, req.OwnerID, req.ContentType)
	if err != nil {
		utils.Fail(h.Logger, w, "CreateUploadURL", "Invalid upload request", err)
		return
	}
	url, expiresAt, err := h.Storage.GenerateUploadURL(r.Context(), key, req.ContentType, h.ExpiresIn)
	if err != nil {
		utils.Fail(h.Logger, w, "CreateUploadURL", "Failed to create upload URL", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Upload URL created", UploadURLResponse{
		UploadURL: url,
		Key:       key,
		PublicURL: h.Storage.PublicURL(key),
		ExpiresAt: expiresAt,
	})
}
