// Package app собирает зависимости сервиса из конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"

	"DetectiveProfileService/config"
	"DetectiveProfileService/internal/identity"
	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/internal/profile"
	"DetectiveProfileService/internal/repository/postgres"
	"DetectiveProfileService/internal/repository/redis"
	"DetectiveProfileService/internal/service"
	"DetectiveProfileService/pkg/database"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Components готовые к работе компоненты сервиса
type Components struct {
	DB       *gorm.DB
	Redis    *goredis.Client
	Profiles *profile.Store
	Provider *identity.AccountProvider
	Mirror   *postgres.ResilientProfileMirror
	Service  *service.DetectiveService
	Health   *database.HealthChecker
}

// Build подключается к PostgreSQL и Redis и собирает компоненты
func Build(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	resilience := config.DefaultResilienceConfig()

	db, err := database.NewPostgresDB(cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	logger.Info("Подключение к PostgreSQL установлено")

	redisClient, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("Подключение к Redis установлено")

	kv := redis.NewResilientProfileKV(redis.NewProfileKV(redisClient), resilience, logger)
	profiles := profile.NewStore(kv, logger)

	tokens := identity.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	opts := []identity.Option{
		identity.WithAttemptLimiter(redis.NewLoginAttemptLimiter(redisClient,
			redis.DefaultLoginAttemptLimit, redis.DefaultLoginAttemptWindow)),
	}
	if cfg.Auth.GoogleClientID != "" {
		opts = append(opts, identity.WithVerifier(models.ProviderGoogle, identity.NewGoogleVerifier(cfg.Auth.GoogleClientID)))
	}
	if cfg.Auth.AppleBundleID != "" {
		opts = append(opts, identity.WithVerifier(models.ProviderApple, identity.NewAppleVerifier(cfg.Auth.AppleBundleID, cfg.Auth.AppleKeysURL)))
	}
	provider := identity.NewAccountProvider(postgres.NewAccountRepository(db), tokens, logger, opts...)

	return &Components{
		DB:       db,
		Redis:    redisClient,
		Profiles: profiles,
		Provider: provider,
		Mirror:   postgres.NewResilientProfileMirror(postgres.NewProfileMirrorRepository(db), resilience, logger),
		Service:  service.NewDetectiveService(profiles, logger),
		Health:   database.NewDatabaseHealthChecker(db, redisClient, resilience, logger),
	}, nil
}

// Close закрывает соединения с хранилищами
func (c *Components) Close(ctx context.Context) error {
	var errs []error
	if err := c.Redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	if sqlDB, err := c.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
