package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/stripe-link/internal/config"
	"github.com/magabrotheeeer/stripe-link/internal/lib/ulid"
)

// ErrNotHeld возвращается, когда ключ занят другим экземпляром
// и дождаться освобождения не удалось.
var ErrNotHeld = errors.New("lock is held by another instance")

// unlockScript удаляет ключ только если он принадлежит вызывающему.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLock — распределённая блокировка на SET NX с TTL.
// TTL страхует от зависшего держателя, токен — от чужого удаления.
type RedisLock struct {
	Db  *redis.Client
	ttl time.Duration
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisLock) (*RedisLock, error) {
	const op = "lock.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &RedisLock{Db: db, ttl: cfg.TTL}, nil
}

// Acquire захватывает ключ, ожидая освобождения до отмены контекста.
// Возвращает функцию освобождения.
func (r *RedisLock) Acquire(ctx context.Context, key string) (func(), error) {
	const op = "lock.Acquire"
	token := ulid.New()

	for {
		ok, err := r.Db.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			return func() {
				_, _ = unlockScript.Run(context.Background(), r.Db, []string{key}, token).Result()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w: %w", op, ErrNotHeld, ctx.Err())
		case <-time.After(50 * time.Millisecond):
		}
	}
}
