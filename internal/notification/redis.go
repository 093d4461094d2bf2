package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/VitaminP8/trackid/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisChannel публикует уведомления в каналы Redis notifications:<topic>.
// Клиент nil превращает канал в no-op.
type RedisChannel struct {
	rdb *redis.Client
}

func NewRedisChannel(rdb *redis.Client) *RedisChannel {
	return &RedisChannel{rdb: rdb}
}

func RedisTopic(topic string) string {
	return "notifications:" + topic
}

func (c *RedisChannel) Name() string {
	return "redis"
}

func (c *RedisChannel) Deliver(ctx context.Context, topic string, n *model.Notification) error {
	if c.rdb == nil {
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.rdb.Publish(ctx, RedisTopic(topic), string(payload)).Err()
}

// NewRedisClient создает клиента по адресу или URL redis://.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
