package site_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"samba-tours/internal/apperr"
	"samba-tours/internal/database/dbtest"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/site"
	"samba-tours/internal/site/db"
)

func setup(t *testing.T) (*site.Service, *bun.DB) {
	bunDB := dbtest.New(t)
	return site.NewService(&db.DB{Bun: bunDB}, nil, logger.NewNopLogger()), bunDB
}

func insert(t *testing.T, bunDB *bun.DB, rows ...interface{}) {
	t.Helper()
	for _, row := range rows {
		_, err := bunDB.NewInsert().Model(row).Exec(context.Background())
		require.NoError(t, err)
	}
}

func TestGalleryUnionsTourAndServiceImages(t *testing.T) {
	svc, bunDB := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	insert(t, bunDB,
		&models.Tour{ID: "t1", Slug: "murchison", Title: "Murchison Falls", Status: models.TourStatusPublished, Price: decimal.NewFromInt(600), CreatedAt: base},
		&models.Tour{ID: "t2", Slug: "secret", Title: "Draft Tour", Status: models.TourStatusDraft, Price: decimal.NewFromInt(100), CreatedAt: base},
		&models.Service{ID: "s1", Slug: "transfers", Name: "Transfers", Status: models.ServiceStatusActive, CreatedAt: base},
		&models.TourImage{ID: "ti1", TourID: "t1", URL: "http://cdn/1.jpg", Caption: "Falls", CreatedAt: base.Add(time.Hour)},
		&models.TourImage{ID: "ti2", TourID: "t2", URL: "http://cdn/2.jpg", CreatedAt: base.Add(2 * time.Hour)},
		&models.ServiceImage{ID: "si1", ServiceID: "s1", URL: "http://cdn/3.jpg", AltText: "Van", CreatedAt: base.Add(3 * time.Hour)},
	)

	items, total, err := svc.Gallery(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "si1", items[0].ID)
	assert.Equal(t, site.GallerySourceServices, items[0].Source)
	assert.Equal(t, "Van", items[0].Caption)
	assert.Equal(t, "ti1", items[1].ID)
	assert.Equal(t, "murchison", items[1].OwnerSlug)

	items, total, err = svc.Gallery(ctx, site.GallerySourceTours, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Murchison Falls", items[0].OwnerName)

	items, _, err = svc.Gallery(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ti1", items[0].ID)

	_, _, err = svc.Gallery(ctx, "blog", 10, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestContactMessages(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.SubmitContact(ctx, site.ContactInput{Name: "Ann", Email: "not-an-email", Message: "Hello there, friends"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	m, err := svc.SubmitContact(ctx, site.ContactInput{
		Name:    "Ann Nakato",
		Email:   "Ann@Example.com",
		Subject: "Group booking",
		Message: "We are twelve people looking at the gorilla trek in June.",
	})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", m.Email)
	assert.False(t, m.Read)

	list, total, err := svc.ListMessages(ctx, site.MessageFilter{Unread: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, m.ID, list[0].ID)

	require.NoError(t, svc.MarkMessageRead(ctx, m.ID, true))
	_, total, err = svc.ListMessages(ctx, site.MessageFilter{Unread: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	require.NoError(t, svc.DeleteMessage(ctx, m.ID))
	assert.ErrorIs(t, svc.DeleteMessage(ctx, m.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, svc.MarkMessageRead(ctx, m.ID, true), apperr.ErrNotFound)
}

func TestNewsletterSubscriptionLifecycle(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	sub, outcome, err := svc.Subscribe(ctx, site.SubscribeInput{Email: "Traveller@Example.com", Name: "Tom"})
	require.NoError(t, err)
	assert.Equal(t, site.Subscribed, outcome)
	assert.Equal(t, "traveller@example.com", sub.Email)

	again, outcome, err := svc.Subscribe(ctx, site.SubscribeInput{Email: "traveller@example.com"})
	require.NoError(t, err)
	assert.Equal(t, site.AlreadySubscribed, outcome)
	assert.Equal(t, sub.ID, again.ID)

	require.NoError(t, svc.Unsubscribe(ctx, site.UnsubscribeInput{Email: "TRAVELLER@example.com"}))
	require.NoError(t, svc.Unsubscribe(ctx, site.UnsubscribeInput{Email: "traveller@example.com"}))
	assert.ErrorIs(t, svc.Unsubscribe(ctx, site.UnsubscribeInput{Email: "nobody@example.com"}), apperr.ErrNotFound)

	list, total, err := svc.ListSubscribers(ctx, models.SubscriberUnsubscribed, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, sub.ID, list[0].ID)

	back, outcome, err := svc.Subscribe(ctx, site.SubscribeInput{Email: "traveller@example.com"})
	require.NoError(t, err)
	assert.Equal(t, site.Resubscribed, outcome)
	assert.Equal(t, models.SubscriberSubscribed, back.Status)

	_, _, err = svc.Subscribe(ctx, site.SubscribeInput{Email: "bad"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, _, err = svc.ListSubscribers(ctx, "bounced", 10, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, svc.DeleteSubscriber(ctx, sub.ID))
	assert.ErrorIs(t, svc.DeleteSubscriber(ctx, sub.ID), apperr.ErrNotFound)
}
