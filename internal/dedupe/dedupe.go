// Package dedupe drops platform redeliveries of webhook events.
package dedupe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "seatbot:event:"
)

// Deduper reports whether an event id is being seen for the first time
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
}

// Client is the part of the Redis client used here
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

type Redis struct {
	client Client
	ttl    time.Duration
}

func NewRedis(client Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) FirstSeen(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, keyPrefix+id, 1, r.ttl).Result()
	if err != nil {
		return true, fmt.Errorf("failed to record event id: %w", err)
	}
	return ok, nil
}

// Noop treats every event as new
type Noop struct{}

func (Noop) FirstSeen(context.Context, string) (bool, error) {
	return true, nil
}

// Connect returns a Redis deduper, or Noop when addr is empty or Redis
// does not answer. addr is either a redis:// URL or host:port.
func Connect(ctx context.Context, addr, password string, ttl time.Duration, logger zerolog.Logger) Deduper {
	log := logger.With().Str("component", "dedupe").Logger()
	if addr == "" {
		log.Info().Msg("REDIS_URL not set, event dedupe disabled")
		return Noop{}
	}

	opts, err := options(addr, password)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid REDIS_URL, event dedupe disabled")
		return Noop{}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, event dedupe disabled")
		client.Close()
		return Noop{}
	}

	log.Info().Str("addr", opts.Addr).Msg("Event dedupe enabled")
	return NewRedis(client, ttl)
}

func options(addr, password string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		if password != "" {
			opts.Password = password
		}
		return opts, nil
	}
	return &redis.Options{Addr: addr, Password: password}, nil
}
