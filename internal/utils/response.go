package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
)

type APIResponse struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	Data      interface{}         `json:"data,omitempty"`
	Error     string              `json:"error,omitempty"`
	Details   []apperr.FieldError `json:"details,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Page wraps a list result with its total row count.
type Page struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now().UTC(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, SuccessResponse(message, data))
}

// WriteError picks the status from the error kind and attaches field details
// for validation failures.
func WriteError(w http.ResponseWriter, message string, err error) {
	status := apperr.HTTPStatus(err)
	resp := ErrorResponse(message, err.Error())
	if status == http.StatusInternalServerError {
		resp.Error = "internal server error"
	}
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Fields
	}
	WriteJSON(w, status, resp)
}

// Fail logs err under the API category (ERROR for server faults, WARN
// otherwise) and writes the error response.
func Fail(log *logger.Logger, w http.ResponseWriter, op, message string, err error) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		log.Error("API", fmt.Sprintf("%s: %s: %v", op, message, err))
	} else {
		log.Warn("API", fmt.Sprintf("%s: %s: %v", op, message, err))
	}
	WriteError(w, message, err)
}

// DecodeJSON reads a request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("body", "invalid JSON: "+err.Error())
	}
	return nil
}
