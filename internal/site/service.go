// Package site holds the small public-facing pieces of the marketing site:
// the photo gallery, the contact form and the newsletter.
package site

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/realtime"
	"samba-tours/internal/utils"
)

const (
	GallerySourceTours    = "tours"
	GallerySourceServices = "services"
)

// Newsletter subscription outcomes.
const (
	Subscribed        = "subscribed"
	AlreadySubscribed = "already_subscribed"
	Resubscribed      = "resubscribed"
)

// GalleryImage is a tour or service image shown in the public gallery.
type GalleryImage struct {
	ID        string    `bun:"id" json:"id"`
	URL       string    `bun:"url" json:"url"`
	Caption   string    `bun:"caption" json:"caption"`
	Source    string    `bun:"source" json:"source"`
	OwnerID   string    `bun:"owner_id" json:"owner_id"`
	OwnerSlug string    `bun:"owner_slug" json:"owner_slug"`
	OwnerName string    `bun:"owner_name" json:"owner_name"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
}

type MessageFilter struct {
	Unread bool
	Limit  int
	Offset int
}

type SiteDB interface {
	ListGallery(ctx context.Context, source string, limit, offset int) ([]GalleryImage, int, error)

	CreateMessage(ctx context.Context, m *models.ContactMessage) error
	ListMessages(ctx context.Context, f MessageFilter) ([]models.ContactMessage, int, error)
	SetMessageRead(ctx context.Context, id string, read bool) error
	DeleteMessage(ctx context.Context, id string) error

	GetSubscriberByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	CreateSubscriber(ctx context.Context, s *models.NewsletterSubscriber) error
	SetSubscriberStatus(ctx context.Context, id, status string) error
	ListSubscribers(ctx context.Context, status string, limit, offset int) ([]models.NewsletterSubscriber, int, error)
	DeleteSubscriber(ctx context.Context, id string) error
}

type Service struct {
	DB      SiteDB
	Emitter *realtime.Emitter
	Logger  *logger.Logger
	now     func() time.Time
}

func NewService(db SiteDB, emitter *realtime.Emitter, log *logger.Logger) *Service {
	return &Service{DB: db, Emitter: emitter, Logger: log, now: func() time.Time { return time.Now().UTC() }}
}

type ContactInput struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"max=40"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

type SubscribeInput struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=120"`
}

type UnsubscribeInput struct {
	Email string `json:"email" validate:"required,email"`
}

// Gallery lists images newest first. An empty source means both.
func (s *Service) Gallery(ctx context.Context, source string, limit, offset int) ([]GalleryImage, int, error) {
	switch source {
	case "", GallerySourceTours, GallerySourceServices:
	default:
		return nil, 0, apperr.Invalid("source", "Must be one of: tours services")
	}
	return s.DB.ListGallery(ctx, source, limit, offset)
}

func (s *Service) SubmitContact(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	m := &models.ContactMessage{
		ID:        utils.GenerateID(),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Subject:   strings.TrimSpace(in.Subject),
		Message:   in.Message,
		CreatedAt: s.now(),
	}
	if err := s.DB.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("save contact message: %w", err)
	}
	s.Logger.Info("CONTACT", fmt.Sprintf("Message %s received from %s", m.ID, m.Email))
	s.Emitter.Emit(ctx, "contact_messages", realtime.Insert, m.ID, m)
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, f MessageFilter) ([]models.ContactMessage, int, error) {
	return s.DB.ListMessages(ctx, f)
}

func (s *Service) MarkMessageRead(ctx context.Context, id string, read bool) error {
	return s.DB.SetMessageRead(ctx, id, read)
}

func (s *Service) DeleteMessage(ctx context.Context, id string) error {
	return s.DB.DeleteMessage(ctx, id)
}

// Subscribe adds an email to the newsletter. Repeating a subscription is not an
// error; a previously unsubscribed address is switched back on.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (*models.NewsletterSubscriber, string, error) {
	if err := utils.Validate(in); err != nil {
		return nil, "", err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.DB.GetSubscriberByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Status == models.SubscriberSubscribed {
			return existing, AlreadySubscribed, nil
		}
		if err := s.DB.SetSubscriberStatus(ctx, existing.ID, models.SubscriberSubscribed); err != nil {
			return nil, "", fmt.Errorf("resubscribe %s: %w", email, err)
		}
		existing.Status = models.SubscriberSubscribed
		s.Emitter.Emit(ctx, "newsletter_subscribers", realtime.Update, existing.ID, existing)
		return existing, Resubscribed, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, "", err
	}

	sub := &models.NewsletterSubscriber{
		ID:        utils.GenerateID(),
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Status:    models.SubscriberSubscribed,
		CreatedAt: s.now(),
	}
	if err := s.DB.CreateSubscriber(ctx, sub); err != nil {
		return nil, "", fmt.Errorf("subscribe %s: %w", email, err)
	}
	s.Logger.Info("NEWSLETTER", fmt.Sprintf("New subscriber %s", email))
	s.Emitter.Emit(ctx, "newsletter_subscribers", realtime.Insert, sub.ID, sub)
	return sub, Subscribed, nil
}

func (s *Service) Unsubscribe(ctx context.Context, in UnsubscribeInput) error {
	if err := utils.Validate(in); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	sub, err := s.DB.GetSubscriberByEmail(ctx, email)
	if err != nil {
		return err
	}
	if sub.Status == models.SubscriberUnsubscribed {
		return nil
	}
	if err := s.DB.SetSubscriberStatus(ctx, sub.ID, models.SubscriberUnsubscribed); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", email, err)
	}
	s.Emitter.Emit(ctx, "newsletter_subscribers", realtime.Update, sub.ID, map[string]string{"status": models.SubscriberUnsubscribed})
	return nil
}

func (s *Service) ListSubscribers(ctx context.Context, status string, limit, offset int) ([]models.NewsletterSubscriber, int, error) {
	switch status {
	case "", models.SubscriberSubscribed, models.SubscriberUnsubscribed:
	default:
		return nil, 0, apperr.Invalid("status", "Must be one of: subscribed unsubscribed")
	}
	return s.DB.ListSubscribers(ctx, status, limit, offset)
}

func (s *Service) DeleteSubscriber(ctx context.Context, id string) error {
	return s.DB.DeleteSubscriber(ctx, id)
}
