package lock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "deptrooms:lock:"
	retryBackoff = 25 * time.Millisecond
)

// unlockScript deletes the key only while it still holds our token.
const unlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// Redis is a lock shared by every API instance talking to the same Redis.
// Keys expire after ttl so a crashed holder cannot block a room forever.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	token  func() string
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		token:  func() string { return uuid.NewString() },
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	full := keyPrefix + key
	token := r.token()

	for {
		ok, err := r.client.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		case <-time.After(retryBackoff):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := r.client.Eval(context.Background(), unlockScript, []string{full}, token).Err(); err != nil {
				log.Printf("[LOCK] release failed key=%s error=%v", full, err)
			}
		})
	}, nil
}

// Ping checks connectivity at startup.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
