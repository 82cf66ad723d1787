package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New connects to the document cache and pings it before returning, so a
// misconfigured address fails at startup. connectTimeout bounds the dial
// and the probe; zero falls back to 3s.
func New(ctx context.Context, addr, password string, db int, connectTimeout time.Duration) (*redis.Client, error) {
	if connectTimeout <= 0 {
		connectTimeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  connectTimeout,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}
	return client, nil
}
