package bookings_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"samba-tours/internal/apperr"
	"samba-tours/internal/bookings"
	"samba-tours/internal/bookings/db"
	"samba-tours/internal/cart"
	"samba-tours/internal/database/dbtest"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/payments"
	"samba-tours/internal/realtime"
	tourdb "samba-tours/internal/tours/db"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntent(ctx context.Context, req payments.IntentRequest) (*payments.Intent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Intent), args.Error(1)
}

func (m *MockGateway) CancelIntent(ctx context.Context, intentID string) error {
	return m.Called(ctx, intentID).Error(0)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.WebhookEvent), args.Error(1)
}

type fixture struct {
	svc     *bookings.Service
	bun     *bun.DB
	carts   *cart.Service
	gateway *MockGateway
	events  <-chan realtime.ChangeEvent
}

func setup(t *testing.T) *fixture {
	bunDB := dbtest.New(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := logger.NewNopLogger()
	emitter := realtime.NewEmitter(realtime.NewLocalPublisher(hub), log)

	tours := &tourdb.DB{Bun: bunDB}
	carts := cart.NewService(cart.NewRedisStore(client, time.Hour), tours, emitter, log)
	gateway := &MockGateway{}
	svc := bookings.NewService(&db.DB{Bun: bunDB}, tours, carts, gateway, emitter, log, "usd")

	for _, tour := range []*models.Tour{
		{ID: "t-gorilla", Slug: "gorilla", Title: "Gorilla Trek", Price: decimal.RequireFromString("1450.50"), Status: models.TourStatusPublished, MaxGroupSize: 8},
		{ID: "t-rafting", Slug: "rafting", Title: "Nile Rafting", Price: decimal.NewFromInt(120), Status: models.TourStatusPublished},
		{ID: "t-draft", Slug: "draft", Title: "Draft", Price: decimal.NewFromInt(1), Status: models.TourStatusDraft},
	} {
		_, err := bunDB.NewInsert().Model(tour).Exec(context.Background())
		require.NoError(t, err)
	}

	return &fixture{svc: svc, bun: bunDB, carts: carts, gateway: gateway, events: hub.Subscribe(ctx, "bookings")}
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func customer() bookings.CustomerInput {
	return bookings.CustomerInput{CustomerName: "Amara Nakato", CustomerEmail: "Amara@Example.com", CustomerCountry: "UG"}
}

func TestCreateBookingPricesServerSide(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, bookings.BookingInput{
		CustomerInput: customer(),
		Items: []bookings.ItemInput{
			{TourID: "t-gorilla", TravelDate: futureDate(30), Travelers: 2},
			{TourID: "t-rafting", TravelDate: futureDate(32), Travelers: 3},
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^SMB-[A-Z2-9]{8}$`, b.Reference)
	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, b.PaymentStatus)
	assert.Equal(t, "amara@example.com", b.CustomerEmail)
	assert.Equal(t, "3261.00", b.TotalAmount.StringFixed(2))

	ev := <-f.events
	assert.Equal(t, realtime.Insert, ev.Type)
	assert.Equal(t, b.ID, ev.RecordID)

	stored, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Gorilla Trek", stored.Items[0].TourTitle)
	assert.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("3261")))
}

func TestCreateBookingValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cases := map[string]bookings.BookingInput{
		"no items":     {CustomerInput: customer()},
		"bad email":    {CustomerInput: bookings.CustomerInput{CustomerName: "Amara", CustomerEmail: "nope"}, Items: []bookings.ItemInput{{TourID: "t-rafting", TravelDate: futureDate(3), Travelers: 1}}},
		"past date":    {CustomerInput: customer(), Items: []bookings.ItemInput{{TourID: "t-rafting", TravelDate: futureDate(-2), Travelers: 1}}},
		"draft tour":   {CustomerInput: customer(), Items: []bookings.ItemInput{{TourID: "t-draft", TravelDate: futureDate(3), Travelers: 1}}},
		"unknown tour": {CustomerInput: customer(), Items: []bookings.ItemInput{{TourID: "t-none", TravelDate: futureDate(3), Travelers: 1}}},
		"group size":   {CustomerInput: customer(), Items: []bookings.ItemInput{{TourID: "t-gorilla", TravelDate: futureDate(3), Travelers: 9}}},
	}
	for name, in := range cases {
		_, err := f.svc.CreateBooking(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}
}

func TestLookupRequiresMatchingEmail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	b, err := f.svc.CreateBooking(ctx, bookings.BookingInput{
		CustomerInput: customer(),
		Items:         []bookings.ItemInput{{TourID: "t-rafting", TravelDate: futureDate(5), Travelers: 1}},
	})
	require.NoError(t, err)

	got, err := f.svc.GetBookingByReference(ctx, " "+b.Reference+" ", "AMARA@example.com")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = f.svc.GetBookingByReference(ctx, b.Reference, "someone@else.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.GetBookingByReference(ctx, b.Reference, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListBookingsFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, email := range []string{"a@x.test", "b@x.test", "c@y.test"} {
		_, err := f.svc.CreateBooking(ctx, bookings.BookingInput{
			CustomerInput: bookings.CustomerInput{CustomerName: "Guest", CustomerEmail: email},
			Items:         []bookings.ItemInput{{TourID: "t-rafting", TravelDate: futureDate(5), Travelers: 1}},
		})
		require.NoError(t, err)
	}

	list, total, err := f.svc.ListBookings(ctx, bookings.BookingFilter{Search: "X.TEST", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 1)

	_, err = f.svc.UpdateBookingStatus(ctx, list[0].ID, models.BookingStatusConfirmed)
	require.NoError(t, err)
	_, total, err = f.svc.ListBookings(ctx, bookings.BookingFilter{Status: models.BookingStatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	_, total, err = f.svc.ListBookings(ctx, bookings.BookingFilter{From: &tomorrow})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, _, err = f.svc.ListBookings(ctx, bookings.BookingFilter{PaymentStatus: "maybe"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStatusUpdatesAcceptAnyEnumValue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	b, err := f.svc.CreateBooking(ctx, bookings.BookingInput{
		CustomerInput: customer(),
		Items:         []bookings.ItemInput{{TourID: "t-rafting", TravelDate: futureDate(5), Travelers: 1}},
	})
	require.NoError(t, err)

	for _, status := range []string{models.BookingStatusCompleted, models.BookingStatusPending, models.BookingStatusCancelled} {
		updated, err := f.svc.UpdateBookingStatus(ctx, b.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}
	_, err = f.svc.UpdateBookingStatus(ctx, b.ID, "lost")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := f.svc.UpdatePaymentStatus(ctx, b.ID, models.PaymentStatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, updated.PaymentStatus)

	_, err = f.svc.UpdateBookingStatus(ctx, "missing", models.BookingStatusConfirmed)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateAndDeleteBooking(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	b, err := f.svc.CreateBooking(ctx, bookings.BookingInput{
		CustomerInput: customer(),
		Items:         []bookings.ItemInput{{TourID: "t-rafting", TravelDate: futureDate(5), Travelers: 1}},
	})
	require.NoError(t, err)

	in := bookings.BookingUpdate{CustomerInput: customer()}
	in.SpecialRequests = "Vegetarian meals"
	updated, err := f.svc.UpdateBooking(ctx, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Vegetarian meals", updated.SpecialRequests)

	require.NoError(t, f.svc.DeleteBooking(ctx, b.ID))
	n, err := f.bun.NewSelect().Model((*models.BookingItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, f.svc.DeleteBooking(ctx, b.ID), apperr.ErrNotFound)
}

func fillCart(t *testing.T, f *fixture) cart.Cart {
	ctx := context.Background()
	c, err := f.carts.NewCart(ctx)
	require.NoError(t, err)
	c, err = f.carts.Dispatch(ctx, c.ID, cart.Action{Type: cart.ActionAddItem, Item: &cart.CartItem{TourID: "t-gorilla", TravelDate: futureDate(40), Travelers: 2}})
	require.NoError(t, err)
	return c
}

func TestCheckoutCartStartsPayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := fillCart(t, f)

	f.gateway.On("CreateIntent", mock.Anything, mock.MatchedBy(func(req payments.IntentRequest) bool {
		return req.Amount.Equal(decimal.RequireFromString("2901")) && req.Currency == "usd"
	})).Return(&payments.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil)

	result, err := f.svc.CheckoutCart(ctx, c.ID, customer())
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	assert.Equal(t, "pi_123_secret", result.Payment.ClientSecret)
	assert.Equal(t, c.ID, result.Booking.CartID)
	f.gateway.AssertExpectations(t)

	stored, err := f.svc.GetBooking(ctx, result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", stored.PaymentIntentID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)

	emptied, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, emptied.Items)

	_, err = f.svc.CheckoutCart(ctx, c.ID, customer())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCheckoutCartGatewayFailureKeepsBooking(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := fillCart(t, f)
	f.gateway.On("CreateIntent", mock.Anything, mock.Anything).Return(nil, errors.New("card network down"))

	result, err := f.svc.CheckoutCart(ctx, c.ID, customer())
	require.NoError(t, err)
	assert.Nil(t, result.Payment)
	assert.NotEmpty(t, result.PaymentError)
	assert.Equal(t, models.PaymentStatusUnpaid, result.Booking.PaymentStatus)
}

func TestApplyPayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := fillCart(t, f)
	f.gateway.On("CreateIntent", mock.Anything, mock.Anything).Return(&payments.Intent{ID: "pi_9"}, nil)
	result, err := f.svc.CheckoutCart(ctx, c.ID, customer())
	require.NoError(t, err)

	require.NoError(t, f.svc.ApplyPayment(ctx, payments.WebhookEvent{BookingID: result.Booking.ID, IntentID: "pi_9", Outcome: payments.OutcomeSucceeded}))
	b, err := f.svc.GetBooking(ctx, result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, b.PaymentStatus)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)

	require.NoError(t, f.svc.ApplyPayment(ctx, payments.WebhookEvent{IntentID: "pi_9", Outcome: payments.OutcomeRefunded}))
	b, err = f.svc.GetBooking(ctx, result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, b.PaymentStatus)

	err = f.svc.ApplyPayment(ctx, payments.WebhookEvent{IntentID: "pi_unknown", Outcome: payments.OutcomeFailed})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelCancelsOpenIntent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := fillCart(t, f)
	f.gateway.On("CreateIntent", mock.Anything, mock.Anything).Return(&payments.Intent{ID: "pi_7"}, nil)
	f.gateway.On("CancelIntent", mock.Anything, "pi_7").Return(nil).Once()

	result, err := f.svc.CheckoutCart(ctx, c.ID, customer())
	require.NoError(t, err)
	_, err = f.svc.UpdateBookingStatus(ctx, result.Booking.ID, models.BookingStatusCancelled)
	require.NoError(t, err)
	f.gateway.AssertExpectations(t)
}
