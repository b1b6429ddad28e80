package storage

import (
	"fmt"
	"io"
	"net/http"

	"samba-tours/internal/apperr"
)

type Upload struct {
	Data        []byte
	ContentType string
}

// ReadImageUpload reads the "file" part of a multipart form, capped at
// MaxImageSize.
func ReadImageUpload(r *http.Request) (Upload, error) {
	if err := r.ParseMultipartForm(MaxImageSize + 1<<20); err != nil {
		return Upload{}, apperr.Invalid("file", "Expected a multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return Upload{}, apperr.Invalid("file", "This field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return Upload{}, fmt.Errorf("read upload: %w", err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return Upload{Data: data, ContentType: contentType}, nil
}
