// Package visitors records anonymous site visitors and summarizes their
// activity.
package visitors

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/realtime"
	"samba-tours/internal/utils"
)

const (
	changeTable = "visitors"
	topLimit    = 10
)

type VisitorDB interface {
	GetVisitor(ctx context.Context, id string) (*models.Visitor, error)
	InsertVisitor(ctx context.Context, v *models.Visitor) error
	// TouchVisitor bumps visit_count and records the latest page.
	TouchVisitor(ctx context.Context, id, page string, at time.Time) (*models.Visitor, error)

	CountSeen(ctx context.Context, from, to time.Time) (int, error)
	CountFirstSeen(ctx context.Context, from, to time.Time) (int, error)
	CountReturning(ctx context.Context, from, to time.Time) (int, error)
	TopPages(ctx context.Context, from, to time.Time, limit int) ([]Count, error)
	TopReferrers(ctx context.Context, from, to time.Time, limit int) ([]Count, error)
}

// ActiveSet tracks who was seen within the active window.
type ActiveSet interface {
	Touch(ctx context.Context, visitorID string, at time.Time) error
	Count(ctx context.Context, now time.Time) (int, error)
}

type Count struct {
	Label    string `bun:"label" json:"label"`
	Visitors int    `bun:"visitors" json:"visitors"`
}

type Stats struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	UniqueVisitors    int       `json:"unique_visitors"`
	NewVisitors       int       `json:"new_visitors"`
	ReturningVisitors int       `json:"returning_visitors"`
	ActiveVisitors    int       `json:"active_visitors"`
	TopPages          []Count   `json:"top_pages"`
	TopReferrers      []Count   `json:"top_referrers"`
}

type TrackInput struct {
	VisitorID string `json:"visitor_id" validate:"required,max=64,printascii"`
	Page      string `json:"page" validate:"required,max=500"`
	Referrer  string `json:"referrer" validate:"max=1000"`
	UserAgent string `json:"user_agent" validate:"max=500"`
	Country   string `json:"country" validate:"omitempty,len=2,alpha"`
}

type Service struct {
	DB      VisitorDB
	Active  ActiveSet
	Emitter *realtime.Emitter
	Logger  *logger.Logger
	now     func() time.Time
}

func NewService(db VisitorDB, active ActiveSet, emitter *realtime.Emitter, log *logger.Logger) *Service {
	return &Service{DB: db, Active: active, Emitter: emitter, Logger: log, now: func() time.Time { return time.Now().UTC() }}
}

// Track records one page view. The first sighting of an id creates the
// visitor with its referrer; later sightings bump the visit count.
func (s *Service) Track(ctx context.Context, in TrackInput) (*models.Visitor, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	now := s.now()

	v, err := s.DB.GetVisitor(ctx, in.VisitorID)
	switch {
	case err == nil:
		v, err = s.DB.TouchVisitor(ctx, in.VisitorID, in.Page, now)
		if err != nil {
			return nil, fmt.Errorf("touch visitor: %w", err)
		}
		s.Emitter.Emit(ctx, changeTable, realtime.Update, v.ID, v)
	case errors.Is(err, apperr.ErrNotFound):
		v = &models.Visitor{
			ID:         in.VisitorID,
			FirstSeen:  now,
			LastSeen:   now,
			VisitCount: 1,
			LastPage:   in.Page,
			Referrer:   referrerHost(in.Referrer),
			UserAgent:  in.UserAgent,
			Country:    strings.ToUpper(in.Country),
		}
		if err := s.DB.InsertVisitor(ctx, v); err != nil {
			// A concurrent first sighting won the insert.
			if v, err = s.DB.TouchVisitor(ctx, in.VisitorID, in.Page, now); err != nil {
				return nil, fmt.Errorf("insert visitor: %w", err)
			}
			s.Emitter.Emit(ctx, changeTable, realtime.Update, v.ID, v)
			break
		}
		s.Emitter.Emit(ctx, changeTable, realtime.Insert, v.ID, v)
	default:
		return nil, err
	}

	if s.Active != nil {
		if err := s.Active.Touch(ctx, v.ID, now); err != nil {
			s.Logger.Warn("VISITORS", fmt.Sprintf("Failed to mark visitor %s active: %v", v.ID, err))
		}
	}
	return v, nil
}

func (s *Service) ActiveVisitors(ctx context.Context) (int, error) {
	if s.Active == nil {
		return 0, nil
	}
	return s.Active.Count(ctx, s.now())
}

// Stats summarizes visitors last seen in [from, to).
func (s *Service) Stats(ctx context.Context, from, to time.Time) (*Stats, error) {
	if !to.After(from) {
		return nil, apperr.Invalid("to", "Must be after from")
	}
	st := &Stats{From: from, To: to}
	var err error
	if st.UniqueVisitors, err = s.DB.CountSeen(ctx, from, to); err != nil {
		return nil, err
	}
	if st.NewVisitors, err = s.DB.CountFirstSeen(ctx, from, to); err != nil {
		return nil, err
	}
	if st.ReturningVisitors, err = s.DB.CountReturning(ctx, from, to); err != nil {
		return nil, err
	}
	if st.TopPages, err = s.DB.TopPages(ctx, from, to, topLimit); err != nil {
		return nil, err
	}
	if st.TopReferrers, err = s.DB.TopReferrers(ctx, from, to, topLimit); err != nil {
		return nil, err
	}
	if st.ActiveVisitors, err = s.ActiveVisitors(ctx); err != nil {
		s.Logger.Warn("VISITORS", fmt.Sprintf("Active visitor count unavailable: %v", err))
		st.ActiveVisitors = 0
	}
	return st, nil
}

// referrerHost keeps only the host of a referrer URL; an empty or unparsable
// referrer counts as direct traffic.
func referrerHost(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
