package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared connection behind the redis query cache and the
// redis job queue. The mock data itself never lives there.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts. Blocking queue reads
// extend the read timeout per call.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity within one second.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool. A nil Redis has nothing to close.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
