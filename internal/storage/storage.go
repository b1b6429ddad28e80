// Package storage keeps tour, service and blog images in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"samba-tours/internal/apperr"
)

const MaxImageSize = 10 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectStorage is the bucket the admin uploads images into.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error)
}

// CheckImage rejects content types other than jpeg, png, webp and gif, and
// anything larger than MaxImageSize.
func CheckImage(contentType string, size int) error {
	if _, ok := imageExtensions[normalizeContentType(contentType)]; !ok {
		return apperr.Invalid("content_type", "must be one of image/jpeg, image/png, image/webp, image/gif")
	}
	if size <= 0 {
		return apperr.Invalid("file", "is empty")
	}
	if size > MaxImageSize {
		return apperr.Invalid("file", fmt.Sprintf("must be at most %d bytes", MaxImageSize))
	}
	return nil
}

func normalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ct == "image/jpg" {
		return "image/jpeg"
	}
	return ct
}

func extension(contentType string) string {
	return imageExtensions[normalizeContentType(contentType)]
}

func TourImageKey(tourID, contentType string) string {
	return path.Join("tours", tourID, uuid.NewString()+extension(contentType))
}

func ServiceImageKey(serviceID, contentType string) string {
	return path.Join("services", serviceID, uuid.NewString()+extension(contentType))
}

func BlogImageKey(contentType string) string {
	return path.Join("blog", uuid.NewString()+extension(contentType))
}

// KeyForFolder builds a key for a presigned upload into one of the known folders.
func KeyForFolder(folder, ownerID, contentType string) (string, error) {
	switch folder {
	case "tours":
		if ownerID == "" {
			return "", apperr.Invalid("owner_id", "is required for tour images")
		}
		return TourImageKey(ownerID, contentType), nil
	case "services":
		if ownerID == "" {
			return "", apperr.Invalid("owner_id", "is required for service images")
		}
		return ServiceImageKey(ownerID, contentType), nil
	case "blog":
		return BlogImageKey(contentType), nil
	default:
		return "", apperr.Invalid("folder", "must be one of tours, services, blog")
	}
}
