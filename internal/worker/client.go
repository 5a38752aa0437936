package worker

import (
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// ParseRedisURL turns REDIS_URL into asynq connection options. Both
// redis:// URLs (including rediss:// and a /db path) and bare host:port work.
func ParseRedisURL(redisURL string) (asynq.RedisClientOpt, error) {
	if !strings.Contains(redisURL, "://") {
		return asynq.RedisClientOpt{Addr: redisURL}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}

// NewClient creates an asynq client for enqueueing step image tasks.
func NewClient(redisURL string) (*asynq.Client, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}
