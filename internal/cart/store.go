package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "cart:"

type Store interface {
	Get(ctx context.Context, id string) (Cart, error)
	Save(ctx context.Context, c Cart) (Cart, error)
	Delete(ctx context.Context, id string) error
}

var _ Store = (*RedisStore)(nil)

// RedisStore keeps each cart as one JSON value that expires TTL after its
// last change.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{Client: client, TTL: ttl}
}

func Key(id string) string {
	return keyPrefix + id
}

// Get returns the stored cart, or an empty cart with that id when nothing is
// stored.
func (s *RedisStore) Get(ctx context.Context, id string) (Cart, error) {
	raw, err := s.Client.Get(ctx, Key(id)).Bytes()
	if err == redis.Nil {
		return Cart{ID: id, Items: []CartItem{}}, nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("get cart %s: %w", id, err)
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart %s: %w", id, err)
	}
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, c Cart) (Cart, error) {
	c.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(c)
	if err != nil {
		return Cart{}, fmt.Errorf("encode cart %s: %w", c.ID, err)
	}
	if err := s.Client.Set(ctx, Key(c.ID), raw, s.TTL).Err(); err != nil {
		return Cart{}, fmt.Errorf("save cart %s: %w", c.ID, err)
	}
	return c, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.Client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("delete cart %s: %w", id, err)
	}
	return nil
}
