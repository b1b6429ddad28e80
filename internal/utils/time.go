package utils

import (
	"net/http"
	"strconv"
	"time"

	"samba-tours/internal/apperr"
)

const DateLayout = "2006-01-02"

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDateRange reads ?from=&to= (YYYY-MM-DD). Missing values default to the
// last `days` days ending today. The returned `to` is exclusive.
func ParseDateRange(r *http.Request, days int) (time.Time, time.Time, error) {
	today := DayStart(time.Now())
	from := today.AddDate(0, 0, -(days - 1))
	to := today.AddDate(0, 0, 1)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.Invalid("from", "must be YYYY-MM-DD")
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.Invalid("to", "must be YYYY-MM-DD")
		}
		to = t.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, apperr.Invalid("from", "must not be after to")
	}
	return from, to, nil
}

// ParsePagination reads ?limit=&offset= with a default and maximum limit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit, offset := defaultLimit, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// QueryInt returns the integer query parameter or def when absent or malformed.
func QueryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}
