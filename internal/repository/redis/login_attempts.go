package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ограничение по умолчанию: 5 неудачных попыток за 15 минут
const (
	DefaultLoginAttemptLimit  = 5
	DefaultLoginAttemptWindow = 15 * time.Minute
)

// LoginAttemptLimiter считает неудачные попытки входа по email в Redis.
// Окно начинается с первой неудачи и не продлевается последующими.
type LoginAttemptLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
}

// NewLoginAttemptLimiter создает новый экземпляр LoginAttemptLimiter
func NewLoginAttemptLimiter(client redis.UniversalClient, limit int, window time.Duration) *LoginAttemptLimiter {
	return &LoginAttemptLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func loginAttemptsKey(email string) string {
	return "login_attempts_" + email
}

// Allow сообщает, не исчерпан ли лимит неудачных попыток
func (l *LoginAttemptLimiter) Allow(ctx context.Context, email string) (bool, error) {
	count, err := l.client.Get(ctx, loginAttemptsKey(email)).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return count < l.limit, nil
}

// RecordFailure учитывает неудачную попытку
func (l *LoginAttemptLimiter) RecordFailure(ctx context.Context, email string) error {
	key := loginAttemptsKey(email)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return l.client.Expire(ctx, key, l.window).Err()
	}
	return nil
}

// Reset сбрасывает счетчик после успешного входа
func (l *LoginAttemptLimiter) Reset(ctx context.Context, email string) error {
	return l.client.Del(ctx, loginAttemptsKey(email)).Err()
}
