package pubsub

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPort = 6379

type RedisConfig struct {
	Username string
	Password string
	DB       int
}

func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{}
}

// RedisDialer opens sessions that PUBLISH messages on redis channels
// named after the message subject.
// Only the first nameserver is used.
type RedisDialer struct {
	cfg *RedisConfig
}

func NewRedisDialer(cfg *RedisConfig) *RedisDialer {
	return &RedisDialer{cfg: cfg}
}

// Open implements [Dialer].
// It fails if the server cannot be reached.
func (rd *RedisDialer) Open(ctx context.Context, cfg *Config) (Session, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.addresses("localhost", defaultRedisPort)[0],
		Username:   rd.cfg.Username,
		Password:   rd.cfg.Password,
		DB:         rd.cfg.DB,
		ClientName: cfg.Name,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub: connecting to redis: %w", err)
	}

	return &redisSession{client: client}, nil
}

type redisSession struct {
	client *redis.Client
}

func (rs *redisSession) Publish(ctx context.Context, msg *Message) error {
	return rs.client.Publish(ctx, msg.Subject, msg.Encode()).Err()
}

func (rs *redisSession) Close() error {
	return rs.client.Close()
}
