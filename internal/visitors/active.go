package visitors

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const activeKey = "visitors:active"

var _ ActiveSet = (*RedisActiveSet)(nil)

// RedisActiveSet keeps visitor ids in a sorted set scored by the unix time
// they were last seen.
type RedisActiveSet struct {
	Client *redis.Client
	Window time.Duration
}

func NewRedisActiveSet(client *redis.Client, window time.Duration) *RedisActiveSet {
	return &RedisActiveSet{Client: client, Window: window}
}

func (a *RedisActiveSet) Touch(ctx context.Context, visitorID string, at time.Time) error {
	_, err := a.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, activeKey, &redis.Z{Score: float64(at.Unix()), Member: visitorID})
		pipe.ZRemRangeByScore(ctx, activeKey, "-inf", a.cutoff(at))
		return nil
	})
	if err != nil {
		return fmt.Errorf("touch active visitor: %w", err)
	}
	return nil
}

// Count prunes members older than the window and returns how many remain.
func (a *RedisActiveSet) Count(ctx context.Context, now time.Time) (int, error) {
	var card *redis.IntCmd
	_, err := a.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, activeKey, "-inf", a.cutoff(now))
		card = pipe.ZCard(ctx, activeKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count active visitors: %w", err)
	}
	return int(card.Val()), nil
}

func (a *RedisActiveSet) cutoff(now time.Time) string {
	return "(" + strconv.FormatInt(now.Add(-a.Window).Unix(), 10)
}
