package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/realtime"
)

type fakeTours map[string]*models.Tour

func (f fakeTours) GetTour(_ context.Context, id string) (*models.Tour, error) {
	if t, ok := f[id]; ok {
		return t, nil
	}
	return nil, apperr.NotFound("tour", id)
}

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis, <-chan realtime.ChangeEvent) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	events := hub.Subscribe(ctx, "carts")

	tours := fakeTours{
		"t1": {ID: "t1", Slug: "gorilla-trek", Title: "Gorilla Trek", Price: decimal.NewFromInt(1450), Status: models.TourStatusPublished, MaxGroupSize: 8, CoverImage: "http://cdn/g.jpg"},
		"t2": {ID: "t2", Title: "Draft", Price: decimal.NewFromInt(10), Status: models.TourStatusDraft},
	}
	log := logger.NewNopLogger()
	svc := NewService(NewRedisStore(client, time.Hour), tours, realtime.NewEmitter(realtime.NewLocalPublisher(hub), log), log)
	return svc, mr, events
}

func TestDispatchPricesFromTour(t *testing.T) {
	svc, mr, events := newTestService(t)
	ctx := context.Background()

	c, err := svc.NewCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, realtime.Insert, (<-events).Type)
	assert.True(t, mr.Exists(Key(c.ID)))

	c, err = svc.Dispatch(ctx, c.ID, Action{Type: ActionAddItem, Item: &CartItem{
		TourID: "t1", TravelDate: "2026-12-01", Travelers: 2, UnitPrice: decimal.NewFromInt(1), Title: "cheap",
	}})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Gorilla Trek", c.Items[0].Title)
	assert.True(t, c.Items[0].UnitPrice.Equal(decimal.NewFromInt(1450)))
	assert.Equal(t, realtime.Update, (<-events).Type)

	stored, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "2900", stored.Totals().Subtotal.String())
	assert.Equal(t, time.Hour, mr.TTL(Key(c.ID)))
}

func TestDispatchRejectsUnavailableTours(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c, err := svc.NewCart(ctx)
	require.NoError(t, err)

	_, err = svc.Dispatch(ctx, c.ID, Action{Type: ActionAddItem, Item: &CartItem{TourID: "t2", TravelDate: "2026-12-01", Travelers: 1}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Dispatch(ctx, c.ID, Action{Type: ActionAddItem, Item: &CartItem{TourID: "t1", TravelDate: "2026-12-01", Travelers: 9}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Dispatch(ctx, c.ID, Action{Type: ActionLoad, Items: []CartItem{{TourID: "nope", TravelDate: "2026-12-01", Travelers: 1}}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Get(ctx, "../../etc")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMissingCartIsEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)
	c, err := svc.Get(context.Background(), "6f1c2a4e-8d7b-4d9a-9a51-0d5b8f3a2c11")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2a4e-8d7b-4d9a-9a51-0d5b8f3a2c11", c.ID)
	assert.Empty(t, c.Items)
}

func TestCartExpires(t *testing.T) {
	svc, mr, _ := newTestService(t)
	ctx := context.Background()
	c, err := svc.NewCart(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestDeleteEmitsEvent(t *testing.T) {
	svc, mr, events := newTestService(t)
	ctx := context.Background()
	c, err := svc.NewCart(ctx)
	require.NoError(t, err)
	<-events

	require.NoError(t, svc.Delete(ctx, c.ID))
	assert.False(t, mr.Exists(Key(c.ID)))
	ev := <-events
	assert.Equal(t, realtime.Delete, ev.Type)
	assert.Equal(t, c.ID, ev.RecordID)
}

func TestExpiryWatcherHandlesCartKeysOnly(t *testing.T) {
	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := hub.Subscribe(ctx, "carts")

	log := logger.NewNopLogger()
	w := NewExpiryWatcher(redis.NewClient(&redis.Options{DB: 3}), realtime.NewEmitter(realtime.NewLocalPublisher(hub), log), log)
	assert.Equal(t, "__keyevent@3__:expired", w.Channel())

	w.HandleExpired(ctx, "revoked_token:abc")
	w.HandleExpired(ctx, "cart:abc")

	ev := <-events
	assert.Equal(t, "abc", ev.RecordID)
	assert.Equal(t, realtime.Delete, ev.Type)
	assert.Len(t, events, 0)
}
