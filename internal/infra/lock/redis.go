package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/metrics"
)

// releaseScript удаляет ключ, только если он всё ещё принадлежит владельцу токена.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker реализует domain.SectionLocker через SET NX.
type RedisLocker struct {
	client *redis.Client
}

// NewRedis создаёт блокировку поверх клиента Redis.
func NewRedis(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire занимает ключ на ttl. Освобождение не трогает ключ, перехваченный после истечения ttl.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	start := time.Now()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	metrics.ObserveNetworkRequest("redis", "setnx", "generation_lock", start, err)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrGenerationInProgress
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		start := time.Now()
		err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		metrics.ObserveNetworkRequest("redis", "release", "generation_lock", start, err)
	}, nil
}

// Connect создаёт клиент Redis и проверяет соединение пингом.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start := time.Now()
	err := client.Ping(ctx).Err()
	metrics.ObserveNetworkRequest("redis", "ping", addr, start, err)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}
