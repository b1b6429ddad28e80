package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/apperr"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Gorilla Trekking in Bwindi":   "gorilla-trekking-in-bwindi",
		"  Murchison Falls -- 3 Days ": "murchison-falls-3-days",
		"Café & Crème":                 "cafe-creme",
		"!!!":                          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"lake-mburo": true, "lake-mburo-2": true}
	exists := func(_ context.Context, s string) (bool, error) { return taken[s], nil }

	slug, err := UniqueSlug(context.Background(), "", "Lake Mburo", exists)
	require.NoError(t, err)
	assert.Equal(t, "lake-mburo-3", slug)

	slug, err = UniqueSlug(context.Background(), "Custom Slug", "Lake Mburo", exists)
	require.NoError(t, err)
	assert.Equal(t, "custom-slug", slug)

	_, err = UniqueSlug(context.Background(), "???", "", exists)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	boom := errors.New("db down")
	_, err = UniqueSlug(context.Background(), "x", "", func(context.Context, string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestGenerateReference(t *testing.T) {
	pattern := regexp.MustCompile(`^SMB-[A-Z2-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		ref := GenerateReference()
		assert.Regexp(t, pattern, ref)
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 190)
}

type contactForm struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	err := Validate(contactForm{Name: "A", Email: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "Must be at least 2 characters", fields["name"])
	assert.Equal(t, "Invalid email format", fields["email"])

	assert.NoError(t, Validate(contactForm{Name: "Amani", Email: "amani@example.com"}))
}

func TestWriteErrorStatusAndDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "Invalid form", apperr.Invalid("email", "Invalid email format"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "email", resp.Details[0].Field)

	rec = httptest.NewRecorder()
	WriteError(rec, "Failed", errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	var form contactForm
	err := DecodeJSON(req, &form)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParseDateRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-03-01&to=2026-03-07", nil)
	from, to, err := ParseDateRange(req, 30)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), to)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	from, to, err = ParseDateRange(req, 7)
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, to.Sub(from))

	req = httptest.NewRequest(http.MethodGet, "/?from=2026-03-09&to=2026-03-07", nil)
	_, _, err = ParseDateRange(req, 7)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-3", nil)
	limit, offset := ParsePagination(req, 12, 100)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 0, offset)
}
