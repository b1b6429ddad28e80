// Package notify alerts the office on Telegram when a booking comes in.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"samba-tours/internal/config"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/realtime"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type BookingNotifier struct {
	Hub    *realtime.Hub
	Sender Sender
	ChatID int64
	Logger *logger.Logger
}

// NewTelegramNotifier logs in to the bot API. It returns nil, nil when no
// token or chat is configured.
func NewTelegramNotifier(cfg config.TelegramConfig, hub *realtime.Hub, log *logger.Logger) (*BookingNotifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	log.Info("NOTIFY", fmt.Sprintf("Telegram notifications enabled as @%s", bot.Self.UserName))
	return &BookingNotifier{Hub: hub, Sender: bot, ChatID: cfg.ChatID, Logger: log}, nil
}

// Run forwards new bookings until ctx is done.
func (n *BookingNotifier) Run(ctx context.Context) {
	events := n.Hub.Subscribe(ctx, "bookings")
	for ev := range events {
		if ev.Type != realtime.Insert {
			continue
		}
		if err := n.Notify(ev); err != nil {
			n.Logger.Warn("NOTIFY", fmt.Sprintf("Booking %s notification failed: %v", ev.RecordID, err))
		}
	}
}

func (n *BookingNotifier) Notify(ev realtime.ChangeEvent) error {
	var b models.Booking
	if len(ev.Record) > 0 {
		if err := json.Unmarshal(ev.Record, &b); err != nil {
			return fmt.Errorf("decode booking: %w", err)
		}
	}
	if b.ID == "" {
		b.ID = ev.RecordID
	}
	msg := tgbotapi.NewMessage(n.ChatID, FormatBooking(b))
	_, err := n.Sender.Send(msg)
	return err
}

func FormatBooking(b models.Booking) string {
	var sb strings.Builder
	sb.WriteString("New booking")
	if b.Reference != "" {
		fmt.Fprintf(&sb, " %s", b.Reference)
	}
	sb.WriteString("\n")
	if b.CustomerName != "" {
		fmt.Fprintf(&sb, "%s <%s>", b.CustomerName, b.CustomerEmail)
		if b.CustomerCountry != "" {
			fmt.Fprintf(&sb, " from %s", b.CustomerCountry)
		}
		sb.WriteString("\n")
	}
	for _, it := range b.Items {
		fmt.Fprintf(&sb, "- %s on %s x%d\n", it.TourTitle, it.TravelDate.Format("2 Jan 2006"), it.Travelers)
	}
	if !b.TotalAmount.IsZero() {
		fmt.Fprintf(&sb, "Total: %s %s\n", b.TotalAmount.StringFixed(2), strings.ToUpper(b.Currency))
	}
	if b.SpecialRequests != "" {
		fmt.Fprintf(&sb, "Requests: %s\n", b.SpecialRequests)
	}
	return strings.TrimRight(sb.String(), "\n")
}
