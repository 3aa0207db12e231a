// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"wallet-ledger-service/internal/domain"
)

// Locker is a coarse mutual-exclusion primitive used by the expiry sweep so
// that only one instance runs a sweep at a time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type RedisLocker struct {
	client RedisClient
}

func NewLocker(client RedisClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrAlreadyExists
	}
	return token, nil
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	cli, ok := l.client.(*redClient)
	if !ok {
		// Non-scripted fallback for test doubles; last-writer-wins is fine there.
		return l.client.Del(ctx, key)
	}
	_, err := luaUnlock.Run(ctx, cli.cli, []string{key}, token).Result()
	return err
}
