package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"DetectiveProfileService/config"
	"DetectiveProfileService/pkg/apperrors"

	"go.uber.org/zap"
)

// CircuitState представляет состояние circuit breaker
type CircuitState int

const (
	// CircuitClosed означает, что circuit breaker закрыт (нормальное состояние)
	CircuitClosed CircuitState = iota
	// CircuitHalfOpen означает, что circuit breaker полуоткрыт (пробное состояние)
	CircuitHalfOpen
	// CircuitOpen означает, что circuit breaker открыт (состояние ошибки)
	CircuitOpen
)

// String возвращает строковое представление состояния
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// StateChangeFunc вызывается при каждой смене состояния
type StateChangeFunc func(name string, state CircuitState)

// CircuitBreaker реализует паттерн circuit breaker для хранилища профилей и зеркала
type CircuitBreaker struct {
	name             string
	state            CircuitState
	failureCount     int
	failureThreshold int
	resetTimeout     time.Duration
	lastStateChange  time.Time
	mutex            sync.Mutex
	logger           *zap.Logger
	ignoredErrors    []error
	onStateChange    StateChangeFunc
}

// NewCircuitBreaker создает новый экземпляр CircuitBreaker
func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration, logger *zap.Logger, ignoredErrors ...error) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		lastStateChange:  time.Now(),
		logger:           logger,
		ignoredErrors:    ignoredErrors,
	}
}

// NewCircuitBreakerFromConfig создает circuit breaker по настройкам отказоустойчивости
func NewCircuitBreakerFromConfig(name string, cfg config.ResilienceConfig, logger *zap.Logger) *CircuitBreaker {
	return NewCircuitBreaker(name, cfg.CircuitBreaker.FailureThreshold, cfg.CircuitBreaker.ResetTimeout, logger, apperrors.IgnoredErrors...)
}

// OnStateChange регистрирует обработчик смены состояния (например, для метрик)
func (cb *CircuitBreaker) OnStateChange(fn StateChangeFunc) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = fn
}

// Execute выполняет функцию с учетом состояния circuit breaker
func (cb *CircuitBreaker) Execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if !cb.allowRequest(operation) {
		cb.logger.Warn("Circuit breaker preventing operation execution",
			zap.String("breaker", cb.name),
			zap.String("operation", operation))
		return apperrors.ErrCircuitOpen
	}

	err := fn(ctx)

	cb.handleResult(operation, err)

	return err
}

// allowRequest проверяет, можно ли выполнить запрос в текущем состоянии
func (cb *CircuitBreaker) allowRequest(operation string) bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if time.Since(cb.lastStateChange) > cb.resetTimeout {
			cb.transition(CircuitHalfOpen, operation)
			return true
		}
		return false
	default:
		return false
	}
}

// handleResult обрабатывает результат выполнения функции
func (cb *CircuitBreaker) handleResult(operation string, err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	// Отсутствие ключа и отмена вызывающим не говорят о сбое зависимости
	if err != nil && cb.isIgnoredError(err) {
		cb.logger.Debug("Игнорируем ошибку для circuit breaker",
			zap.String("breaker", cb.name),
			zap.String("operation", operation),
			zap.Error(err))
		return
	}

	if err != nil {
		switch cb.state {
		case CircuitClosed:
			cb.failureCount++
			if cb.failureCount >= cb.failureThreshold {
				cb.transition(CircuitOpen, operation)
			}
		case CircuitHalfOpen:
			cb.transition(CircuitOpen, operation)
		}
		return
	}

	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0
	case CircuitHalfOpen:
		cb.transition(CircuitClosed, operation)
	}
}

// isIgnoredError проверяет, является ли ошибка игнорируемой
func (cb *CircuitBreaker) isIgnoredError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	for _, ignoredErr := range cb.ignoredErrors {
		if errors.Is(err, ignoredErr) {
			return true
		}
	}
	return false
}

// transition меняет состояние; вызывается под мьютексом
func (cb *CircuitBreaker) transition(state CircuitState, operation string) {
	cb.state = state
	cb.lastStateChange = time.Now()
	if state == CircuitClosed {
		cb.failureCount = 0
	}

	switch state {
	case CircuitOpen:
		cb.logger.Warn("Circuit breaker opened",
			zap.String("breaker", cb.name),
			zap.String("operation", operation),
			zap.Int("failures", cb.failureCount),
			zap.Duration("reset_timeout", cb.resetTimeout))
	default:
		cb.logger.Info("Circuit breaker state changed",
			zap.String("breaker", cb.name),
			zap.String("operation", operation),
			zap.Stringer("state", state))
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, state)
	}
}

// GetState возвращает текущее состояние circuit breaker
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Name возвращает имя circuit breaker
func (cb *CircuitBreaker) Name() string {
	return cb.name
}
