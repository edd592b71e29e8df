package database

import (
	"context"
	"time"

	"DetectiveProfileService/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient создает новое подключение к Redis.
// Таймауты чтения и записи не задаются: хранилище профилей не ограничивает операции по времени.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  -1,
		WriteTimeout: -1,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Проверка подключения при старте
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}
