package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/config"
	"samba-tours/internal/logger"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2025-03-31.basil","type":%q,"data":{"object":%s}}`, eventType, object))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(145050), ToMinorUnits(decimal.RequireFromString("1450.50"), "usd"))
	assert.Equal(t, int64(1001), ToMinorUnits(decimal.RequireFromString("10.005"), "EUR"))
	assert.Equal(t, int64(250000), ToMinorUnits(decimal.NewFromInt(250000), "ugx"))
}

func TestParseWebhookSucceeded(t *testing.T) {
	g := NewStripeWebhookVerifier(testSecret, logger.NewNopLogger())
	payload := eventPayload("payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent","metadata":{"booking_id":"b-1"}}`)

	ev, err := g.ParseWebhook(payload, sign(payload, testSecret))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, ev.Outcome)
	assert.Equal(t, "b-1", ev.BookingID)
	assert.Equal(t, "pi_1", ev.IntentID)
}

func TestParseWebhookRefund(t *testing.T) {
	g := NewStripeWebhookVerifier(testSecret, logger.NewNopLogger())
	payload := eventPayload("charge.refunded", `{"id":"ch_1","object":"charge","payment_intent":"pi_2","metadata":{}}`)

	ev, err := g.ParseWebhook(payload, sign(payload, testSecret))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefunded, ev.Outcome)
	assert.Equal(t, "pi_2", ev.IntentID)
	assert.Empty(t, ev.BookingID)
}

func TestParseWebhookIgnoresOtherEvents(t *testing.T) {
	g := NewStripeWebhookVerifier(testSecret, logger.NewNopLogger())
	payload := eventPayload("customer.created", `{"id":"cus_1","object":"customer"}`)

	ev, err := g.ParseWebhook(payload, sign(payload, testSecret))
	require.NoError(t, err)
	assert.Empty(t, ev.Outcome)
}

func TestParseWebhookErrors(t *testing.T) {
	payload := eventPayload("payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent","metadata":{"booking_id":"b-1"}}`)

	var werr *WebhookError
	_, err := NewStripeWebhookVerifier(testSecret, logger.NewNopLogger()).ParseWebhook(payload, sign(payload, "whsec_other"))
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, http.StatusBadRequest, werr.StatusCode)
	assert.Equal(t, "validation", werr.Category)

	_, err = NewStripeWebhookVerifier("", logger.NewNopLogger()).ParseWebhook(payload, sign(payload, testSecret))
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, "configuration", werr.Category)
}

func TestGatewayRequiresSecretKey(t *testing.T) {
	_, err := NewStripeGateway(config.PaymentConfig{}, logger.NewNopLogger())
	assert.ErrorIs(t, err, ErrGatewayNotConfigured)
}
