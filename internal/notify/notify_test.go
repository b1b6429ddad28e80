package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/config"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/realtime"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func sampleBooking() models.Booking {
	return models.Booking{
		ID:              "b1",
		Reference:       "SMB-7KQ2M9XA",
		CustomerName:    "Jane Doe",
		CustomerEmail:   "jane@example.com",
		CustomerCountry: "Kenya",
		TotalAmount:     decimal.RequireFromString("2900"),
		Currency:        "usd",
		Items: []models.BookingItem{
			{TourTitle: "Gorilla Trek", TravelDate: time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC), Travelers: 2},
		},
	}
}

func TestFormatBooking(t *testing.T) {
	text := FormatBooking(sampleBooking())
	assert.Equal(t, "New booking SMB-7KQ2M9XA\n"+
		"Jane Doe <jane@example.com> from Kenya\n"+
		"- Gorilla Trek on 14 Jul 2026 x2\n"+
		"Total: 2900.00 USD", text)
}

func TestRunSendsOnlyInserts(t *testing.T) {
	hub := realtime.NewHub()
	sender := &fakeSender{}
	n := &BookingNotifier{Hub: hub, Sender: sender, ChatID: 42, Logger: logger.NewNopLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(realtime.NewChangeEvent("bookings", realtime.Update, "b0", nil))
	hub.Publish(realtime.NewChangeEvent("tours", realtime.Insert, "t1", nil))
	hub.Publish(realtime.NewChangeEvent("bookings", realtime.Insert, "b1", sampleBooking()))

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 5*time.Millisecond)
	msg := sender.messages()[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Contains(t, msg.Text, "SMB-7KQ2M9XA")

	cancel()
	<-done
}

func TestNotifyReportsSendErrors(t *testing.T) {
	n := &BookingNotifier{Sender: &fakeSender{err: errors.New("blocked")}, ChatID: 1, Logger: logger.NewNopLogger()}
	err := n.Notify(realtime.NewChangeEvent("bookings", realtime.Insert, "b1", nil))
	assert.Error(t, err)
}

func TestDisabledWithoutToken(t *testing.T) {
	n, err := NewTelegramNotifier(config.TelegramConfig{}, realtime.NewHub(), logger.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, n)
}
