// cache реализует процессный кэш сессий поверх Redis.
// Ключ — sha256-хэш сессионного токена, TTL — остаток срока действия токена,
// поэтому запись в кэше не может пережить сам токен. Кэш опционален:
// сервис обязан корректно работать и без него (промах -> валидация JWT).
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-web-auth/internal/models"
)

// SessionCache — минимальный контракт кэша сессий.
type SessionCache interface {
	// Get возвращает сессию и признак её наличия в кэше.
	Get(ctx context.Context, hash string) (*models.Session, bool, error)
	// Set сохраняет сессию с TTL (обычно ExpiresAt-now).
	Set(ctx context.Context, hash string, sess *models.Session, ttl time.Duration) error
	// Delete удаляет запись (выход из системы).
	Delete(ctx context.Context, hash string) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:sess:".
func NewRedisCache(redisURL, prefix string) (SessionCache, error) {
	if prefix == "" {
		prefix = "auth:sess:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(hash string) string { return c.prefix + hash }

// Храним как Redis Hash с полями: uid, email, name, exp (unix).
func (c *redisCache) Get(ctx context.Context, hash string) (*models.Session, bool, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(hash)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	expUnix, err := strconv.ParseInt(m["exp"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	return &models.Session{
		User: &models.SessionUser{
			ID:    m["uid"],
			Email: m["email"],
			Name:  m["name"],
		},
		ExpiresAt: time.Unix(expUnix, 0).UTC(),
	}, true, nil
}

func (c *redisCache) Set(ctx context.Context, hash string, sess *models.Session, ttl time.Duration) error {
	if sess == nil || sess.User == nil || ttl <= 0 {
		return nil
	}

	kv := map[string]string{
		"uid":   sess.User.ID,
		"email": sess.User.Email,
		"name":  sess.User.Name,
		"exp":   strconv.FormatInt(sess.ExpiresAt.Unix(), 10),
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(hash), kv)
	pipe.Expire(ctx, c.key(hash), ttl)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) Delete(ctx context.Context, hash string) error {
	return c.rdb.Del(ctx, c.key(hash)).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
