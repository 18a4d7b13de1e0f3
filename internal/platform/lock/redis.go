package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	platformredis "personad/internal/platform/redis"
)

const (
	defaultLeaseTTL      = 2 * time.Minute
	defaultRetryInterval = 50 * time.Millisecond
)

// releaseScript deletes the lease only if it is still owned by the caller.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by a Redis lease (SET NX PX). The lease TTL bounds
// how long a crashed holder can block other instances.
type Redis struct {
	client   *platformredis.Client
	ttl      time.Duration
	interval time.Duration
}

// NewRedis creates a Redis-backed locker.
func NewRedis(client *platformredis.Client) *Redis {
	return &Redis{
		client:   client,
		ttl:      defaultLeaseTTL,
		interval: defaultRetryInterval,
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	leaseKey := "personad:lock:" + key

	for {
		ok, err := r.client.SetNX(ctx, leaseKey, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			release := func() {
				// Best effort: the TTL reclaims the lease if this fails.
				relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_, _ = releaseScript.Run(relCtx, r.client, []string{leaseKey}, token).Result()
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.interval):
		}
	}
}
