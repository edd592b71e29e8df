package postgres

import (
	"context"
	"time"

	"DetectiveProfileService/config"
	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/pkg/resilience"
	"DetectiveProfileService/pkg/server"

	"go.uber.org/zap"
)

// mirrorStore операции зеркала, нужные обертке
type mirrorStore interface {
	Upsert(ctx context.Context, p *models.UserProfile) error
}

// ResilientProfileMirror выполняет upsert зеркала по возможности: с таймаутом и circuit breaker
type ResilientProfileMirror struct {
	repo    mirrorStore
	breaker *resilience.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewResilientProfileMirror создает новый экземпляр ResilientProfileMirror
func NewResilientProfileMirror(repo mirrorStore, cfg config.ResilienceConfig, logger *zap.Logger) *ResilientProfileMirror {
	breaker := resilience.NewCircuitBreakerFromConfig("profile_mirror", cfg, logger)
	breaker.OnStateChange(func(name string, state resilience.CircuitState) {
		server.RecordCircuitBreakerStateChange(name, int(state))
	})

	return &ResilientProfileMirror{
		repo:    repo,
		breaker: breaker,
		timeout: cfg.Database.CommandTimeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Upsert отражает вход пользователя в удаленном зеркале.
// Ошибка только логируется и возвращается для информации; вызывающий не должен от нее зависеть.
func (m *ResilientProfileMirror) Upsert(ctx context.Context, identity models.Identity) error {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	now := m.now().UTC()
	row := &models.UserProfile{
		UID:          identity.UID,
		DisplayName:  identity.DisplayNameOrDefault(),
		Email:        identity.Email,
		AuthProvider: identity.Provider,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	err := m.breaker.Execute(ctx, "mirror_upsert", func(ctx context.Context) error {
		return m.repo.Upsert(ctx, row)
	})

	server.RecordDBOperation("mirror_upsert", time.Since(startTime), err)
	if err != nil {
		m.logger.Warn("Не удалось обновить зеркало профиля",
			zap.String("uid", identity.UID),
			zap.Error(err))
	}
	return err
}
