package config

import (
	"time"
)

// ResilienceConfig содержит настройки для механизмов отказоустойчивости
type ResilienceConfig struct {
	// CircuitBreaker содержит настройки для circuit breaker
	CircuitBreaker struct {
		// FailureThreshold количество ошибок, после которого circuit breaker откроется
		FailureThreshold int
		// ResetTimeout время, через которое circuit breaker перейдет в полуоткрытое состояние
		ResetTimeout time.Duration
	}

	// Retry содержит настройки для повторных попыток чтения профиля
	Retry struct {
		MaxRetries     int
		InitialBackoff time.Duration
		MaxBackoff     time.Duration
		BackoffFactor  float64
		Jitter         float64
	}

	// Database содержит настройки для зеркала профилей в PostgreSQL
	Database struct {
		// CommandTimeout таймаут для выполнения команд
		CommandTimeout time.Duration
	}
}

// DefaultResilienceConfig возвращает конфигурацию отказоустойчивости по умолчанию
func DefaultResilienceConfig() ResilienceConfig {
	config := ResilienceConfig{}

	config.CircuitBreaker.FailureThreshold = 5
	config.CircuitBreaker.ResetTimeout = 30 * time.Second

	// Чтения профиля короткие, поэтому повторов немного
	config.Retry.MaxRetries = 2
	config.Retry.InitialBackoff = 50 * time.Millisecond
	config.Retry.MaxBackoff = 500 * time.Millisecond
	config.Retry.BackoffFactor = 2.0
	config.Retry.Jitter = 0.2

	config.Database.CommandTimeout = 3 * time.Second

	return config
}
