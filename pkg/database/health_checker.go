package database

import (
	"context"
	"time"

	"DetectiveProfileService/config"
	"DetectiveProfileService/pkg/resilience"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthChecker проверяет доступность PostgreSQL и Redis
type HealthChecker struct {
	db           *gorm.DB
	redisClient  redis.UniversalClient
	logger       *zap.Logger
	pgCircuit    *resilience.CircuitBreaker
	redisCircuit *resilience.CircuitBreaker
}

// NewDatabaseHealthChecker создает новый экземпляр проверки состояния баз данных
func NewDatabaseHealthChecker(db *gorm.DB, redisClient redis.UniversalClient, cfg config.ResilienceConfig, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		db:           db,
		redisClient:  redisClient,
		logger:       logger,
		pgCircuit:    resilience.NewCircuitBreakerFromConfig("postgres_health", cfg, logger),
		redisCircuit: resilience.NewCircuitBreakerFromConfig("redis_health", cfg, logger),
	}
}

// IsDatabaseHealthy проверяет здоровье PostgreSQL
func (c *HealthChecker) IsDatabaseHealthy(ctx context.Context) bool {
	err := c.pgCircuit.Execute(ctx, "postgres_health_check", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if err != nil {
		c.logger.Debug("PostgreSQL недоступен", zap.Error(err))
	}
	return err == nil
}

// IsRedisHealthy проверяет здоровье Redis
func (c *HealthChecker) IsRedisHealthy(ctx context.Context) bool {
	err := c.redisCircuit.Execute(ctx, "redis_health_check", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		return c.redisClient.Ping(ctx).Err()
	})
	if err != nil {
		c.logger.Debug("Redis недоступен", zap.Error(err))
	}
	return err == nil
}
