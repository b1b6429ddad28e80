package cart_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/apperr"
	"samba-tours/internal/bookings"
	"samba-tours/internal/cart"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
)

type fakeTours map[string]*models.Tour

func (f fakeTours) GetTour(_ context.Context, id string) (*models.Tour, error) {
	if t, ok := f[id]; ok {
		return t, nil
	}
	return nil, apperr.NotFound("tour", id)
}

type fakeCheckout struct {
	cartID   string
	customer bookings.CustomerInput
	err      error
}

func (f *fakeCheckout) CheckoutCart(_ context.Context, cartID string, customer bookings.CustomerInput) (*bookings.CheckoutResult, error) {
	f.cartID = cartID
	f.customer = customer
	if f.err != nil {
		return nil, f.err
	}
	return &bookings.CheckoutResult{Booking: &models.Booking{Reference: "ST-TEST01", CustomerEmail: customer.CustomerEmail}}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type cartBody struct {
	ID     string          `json:"id"`
	Items  []cart.CartItem `json:"items"`
	Totals cart.Totals     `json:"totals"`
}

func newRouter(t *testing.T) (http.Handler, *fakeCheckout, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tours := fakeTours{
		"t1": {ID: "t1", Slug: "gorilla-trek", Title: "Gorilla Trek", Price: decimal.NewFromInt(1450), Status: models.TourStatusPublished},
	}
	log := logger.NewNopLogger()
	svc := cart.NewService(cart.NewRedisStore(client, time.Hour), tours, nil, log)
	checkout := &fakeCheckout{}

	r := chi.NewRouter()
	r.Route("/api", NewHandler(svc, checkout, log).RegisterRoutes)
	return r, checkout, mr
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeCart(t *testing.T, env envelope) cartBody {
	var c cartBody
	require.NoError(t, json.Unmarshal(env.Data, &c))
	return c
}

func TestCartLifecycle(t *testing.T) {
	h, _, mr := newRouter(t)

	rec, env := do(t, h, http.MethodPost, "/api/cart", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeCart(t, env)
	require.NotEmpty(t, created.ID)
	assert.Empty(t, created.Items)
	assert.True(t, mr.Exists(cart.Key(created.ID)))

	base := "/api/cart/" + created.ID
	rec, env = do(t, h, http.MethodPost, base+"/actions",
		`{"type":"ADD_ITEM","item":{"tour_id":"t1","travel_date":"2026-12-01","travelers":2,"unit_price":"1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeCart(t, env)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Gorilla Trek", c.Items[0].Title)
	assert.Equal(t, 2, c.Totals.Travelers)
	assert.True(t, decimal.NewFromInt(2900).Equal(c.Totals.Subtotal))

	rec, env = do(t, h, http.MethodPost, base+"/actions",
		`{"type":"UPDATE_TRAVELERS","tour_id":"t1","travel_date":"2026-12-01","travelers":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeCart(t, env).Totals.Travelers)

	rec, env = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeCart(t, env).Items, 1)

	rec, _ = do(t, h, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, mr.Exists(cart.Key(created.ID)))
}

func TestDispatchErrors(t *testing.T) {
	h, _, _ := newRouter(t)
	_, env := do(t, h, http.MethodPost, "/api/cart", "")
	base := "/api/cart/" + decodeCart(t, env).ID

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown action", base + "/actions", `{"type":"EXPLODE"}`, http.StatusBadRequest},
		{"unknown field", base + "/actions", `{"type":"CLEAR","extra":1}`, http.StatusBadRequest},
		{"unknown tour", base + "/actions", `{"type":"ADD_ITEM","item":{"tour_id":"nope","travel_date":"2026-12-01","travelers":1}}`, http.StatusNotFound},
		{"missing line", base + "/actions", `{"type":"REMOVE_ITEM","tour_id":"t1","travel_date":"2026-12-01"}`, http.StatusNotFound},
		{"bad cart id", "/api/cart/not-a-uuid/actions", `{"type":"CLEAR"}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, c.path, c.body)
			assert.Equal(t, c.want, rec.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestCheckout(t *testing.T) {
	h, checkout, _ := newRouter(t)
	_, env := do(t, h, http.MethodPost, "/api/cart", "")
	id := decodeCart(t, env).ID

	rec, env := do(t, h, http.MethodPost, "/api/cart/"+id+"/checkout",
		`{"customer_name":"Ada Lovelace","customer_email":"ada@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, id, checkout.cartID)
	assert.Equal(t, "ada@example.com", checkout.customer.CustomerEmail)

	var result bookings.CheckoutResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "ST-TEST01", result.Booking.Reference)

	checkout.err = apperr.Invalid("items", "Cart is empty")
	rec, _ = do(t, h, http.MethodPost, "/api/cart/"+id+"/checkout",
		`{"customer_name":"Ada Lovelace","customer_email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	checkout.err = errors.New("db down")
	rec, _ = do(t, h, http.MethodPost, "/api/cart/"+id+"/checkout",
		`{"customer_name":"Ada Lovelace","customer_email":"ada@example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/cart/bad/checkout", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
