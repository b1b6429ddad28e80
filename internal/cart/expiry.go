package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"samba-tours/internal/logger"
	"samba-tours/internal/realtime"
)

// ExpiryWatcher turns Redis expired-key notifications for carts into carts
// DELETE change events, so the live dashboard sees abandoned carts drop out.
// Redis must run with notify-keyspace-events containing "Ex".
type ExpiryWatcher struct {
	Client  *redis.Client
	Emitter *realtime.Emitter
	Logger  *logger.Logger
}

func NewExpiryWatcher(client *redis.Client, emitter *realtime.Emitter, log *logger.Logger) *ExpiryWatcher {
	return &ExpiryWatcher{Client: client, Emitter: emitter, Logger: log}
}

func (w *ExpiryWatcher) Channel() string {
	return fmt.Sprintf("__keyevent@%d__:expired", w.Client.Options().DB)
}

// Run blocks until ctx is cancelled.
func (w *ExpiryWatcher) Run(ctx context.Context) error {
	pubsub := w.Client.PSubscribe(ctx, w.Channel())
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", w.Channel(), err)
	}
	w.Logger.Info("REDIS", fmt.Sprintf("Subscribed to expired key notifications on %s", w.Channel()))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			w.HandleExpired(ctx, msg.Payload)
		}
	}
}

func (w *ExpiryWatcher) HandleExpired(ctx context.Context, key string) {
	if !strings.HasPrefix(key, keyPrefix) {
		return
	}
	id := strings.TrimPrefix(key, keyPrefix)
	w.Logger.Info("CART", fmt.Sprintf("Cart %s expired", id))
	w.Emitter.Emit(ctx, changeTable, realtime.Delete, id, nil)
}
