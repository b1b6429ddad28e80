package utils

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"samba-tours/internal/apperr"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func GenerateID() string {
	return uuid.NewString()
}

// GenerateReference returns a booking reference such as SMB-7KQ2M9XA.
func GenerateReference() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "SMB-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return "SMB-" + string(buf)
}

// Slugify lowercases, strips accents and joins words with single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// UniqueSlug slugifies requested (or fallback when requested is empty) and
// appends -2, -3, ... until exists reports the slug free.
func UniqueSlug(ctx context.Context, requested, fallback string, exists func(context.Context, string) (bool, error)) (string, error) {
	base := Slugify(requested)
	if base == "" {
		base = Slugify(fallback)
	}
	if base == "" {
		return "", apperr.Invalid("slug", "Must contain at least one letter or digit")
	}

	slug := base
	for i := 2; ; i++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug %s: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}
}
