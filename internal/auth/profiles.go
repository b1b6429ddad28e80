package auth

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"samba-tours/internal/apperr"
	"samba-tours/internal/models"
)

type ProfileStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
}

type BunProfileStore struct {
	Bun bun.IDB
}

func (s *BunProfileStore) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	err := s.Bun.NewSelect().Model(&p).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "profile", email)
	}
	return &p, nil
}
