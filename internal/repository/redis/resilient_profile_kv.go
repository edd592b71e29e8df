package redis

import (
	"context"
	"errors"
	"time"

	"DetectiveProfileService/config"
	"DetectiveProfileService/internal/profile"
	"DetectiveProfileService/pkg/apperrors"
	"DetectiveProfileService/pkg/resilience"
	"DetectiveProfileService/pkg/server"

	"go.uber.org/zap"
)

// ResilientProfileKV добавляет circuit breaker, повтор чтений и метрики к хранилищу профилей.
// Ошибки записи не скрываются: хранилище профилей не кэш.
type ResilientProfileKV struct {
	kv      profile.KV
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryOptions
	logger  *zap.Logger
}

// NewResilientProfileKV создает отказоустойчивую обертку над kv
func NewResilientProfileKV(kv profile.KV, cfg config.ResilienceConfig, logger *zap.Logger) *ResilientProfileKV {
	breaker := resilience.NewCircuitBreakerFromConfig("profile_kv", cfg, logger)
	breaker.OnStateChange(func(name string, state resilience.CircuitState) {
		server.RecordCircuitBreakerStateChange(name, int(state))
	})

	return &ResilientProfileKV{
		kv:      kv,
		breaker: breaker,
		retry:   resilience.RetryOptionsFromConfig(cfg),
		logger:  logger,
	}
}

// Get читает ключ с повторами при сбоях соединения
func (r *ResilientProfileKV) Get(ctx context.Context, key string) ([]byte, error) {
	startTime := time.Now()

	var data []byte
	err := resilience.WithRetry(ctx, r.logger, "profile_get", r.retry, func(ctx context.Context) error {
		return r.breaker.Execute(ctx, "profile_get", func(ctx context.Context) error {
			var opErr error
			data, opErr = r.kv.Get(ctx, key)
			return opErr
		})
	})

	// Отсутствие ключа не является сбоем
	if apperrors.IsNotFound(err) {
		server.RecordProfileStoreOperation("get", time.Since(startTime), nil)
		return nil, apperrors.ErrNotFound
	}
	server.RecordProfileStoreOperation("get", time.Since(startTime), err)
	if err != nil {
		return nil, r.storageError("get", key, err)
	}
	return data, nil
}

// Set записывает ключ через circuit breaker
func (r *ResilientProfileKV) Set(ctx context.Context, key string, value []byte) error {
	startTime := time.Now()

	err := r.breaker.Execute(ctx, "profile_set", func(ctx context.Context) error {
		return r.kv.Set(ctx, key, value)
	})

	server.RecordProfileStoreOperation("set", time.Since(startTime), err)
	if err != nil {
		return r.storageError("set", key, err)
	}
	return nil
}

// RemoveAll удаляет набор ключей через circuit breaker
func (r *ResilientProfileKV) RemoveAll(ctx context.Context, keys []string) error {
	startTime := time.Now()

	err := r.breaker.Execute(ctx, "profile_remove", func(ctx context.Context) error {
		return r.kv.RemoveAll(ctx, keys)
	})

	server.RecordProfileStoreOperation("remove", time.Since(startTime), err)
	if err != nil {
		key := ""
		if len(keys) > 0 {
			key = keys[0]
		}
		return r.storageError("remove", key, err)
	}
	return nil
}

// storageError гарантирует, что наружу уходит StorageError (в том числе при открытом circuit breaker)
func (r *ResilientProfileKV) storageError(op, key string, err error) error {
	var storageErr *apperrors.StorageError
	if errors.As(err, &storageErr) {
		return err
	}

	r.logger.Warn("Profile store operation failed",
		zap.String("operation", op),
		zap.String("key", key),
		zap.Error(err))
	return apperrors.NewStorageError(op, key, err)
}

// BreakerState возвращает состояние circuit breaker хранилища
func (r *ResilientProfileKV) BreakerState() resilience.CircuitState {
	return r.breaker.GetState()
}
