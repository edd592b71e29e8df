package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthCheckerInterface проверки зависимостей сервиса
type HealthCheckerInterface interface {
	// IsDatabaseHealthy проверяет PostgreSQL (учетные записи и зеркало профилей)
	IsDatabaseHealthy(ctx context.Context) bool

	// IsRedisHealthy проверяет Redis (хранилище профилей)
	IsRedisHealthy(ctx context.Context) bool
}

const (
	statusUp      = "up"
	statusDown    = "down"
	statusUnknown = "unknown"
)

// HealthCheck HTTP сервис проверки здоровья
type HealthCheck struct {
	checker       HealthCheckerInterface
	logger        *zap.Logger
	interval      time.Duration
	server        *http.Server
	cancel        context.CancelFunc
	statusMutex   sync.RWMutex
	serviceStatus map[string]string
	version       string
}

// HealthResponse ответ эндпоинта /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
}

// NewHealthCheck создает сервис проверки здоровья
func NewHealthCheck(checker HealthCheckerInterface, logger *zap.Logger, version string) *HealthCheck {
	return &HealthCheck{
		checker:  checker,
		logger:   logger,
		interval: 10 * time.Second,
		version:  version,
		serviceStatus: map[string]string{
			"postgres": statusUnknown,
			"redis":    statusUnknown,
		},
	}
}

// Handler возвращает маршруты проверки здоровья
func (h *HealthCheck) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", h.livenessHandler)
	mux.HandleFunc("/health/ready", h.readinessHandler)
	mux.HandleFunc("/health", h.healthHandler)
	return LoggingMiddleware(h.logger, mux)
}

// StartServer запускает HTTP сервер и фоновую проверку зависимостей
func (h *HealthCheck) StartServer(addr string) {
	h.server = &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		h.logger.Info("Starting health check server", zap.String("addr", addr))
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("Health check server failed", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.monitorHealth(ctx)
}

// Stop останавливает мониторинг и HTTP сервер
func (h *HealthCheck) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

func (h *HealthCheck) livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": statusUp})
}

// readinessHandler: без хранилища профилей и учетных записей сервис не может обслуживать запросы
func (h *HealthCheck) readinessHandler(w http.ResponseWriter, r *http.Request) {
	services := h.snapshot()

	for _, name := range []string{"postgres", "redis"} {
		if services[name] != statusUp {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  statusDown,
				"message": name + " is not available",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": statusUp})
}

func (h *HealthCheck) healthHandler(w http.ResponseWriter, r *http.Request) {
	services := h.snapshot()

	overall := statusUp
	for _, s := range services {
		if s != statusUp {
			overall = statusDown
			break
		}
	}

	code := http.StatusOK
	if overall != statusUp {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:    overall,
		Services:  services,
		Timestamp: time.Now(),
		Version:   h.version,
	})
}

func (h *HealthCheck) snapshot() map[string]string {
	h.statusMutex.RLock()
	defer h.statusMutex.RUnlock()

	services := make(map[string]string, len(h.serviceStatus))
	for k, v := range h.serviceStatus {
		services[k] = v
	}
	return services
}

func (h *HealthCheck) monitorHealth(ctx context.Context) {
	h.checkServicesHealth(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.checkServicesHealth(ctx)
		}
	}
}

// checkServicesHealth обновляет статусы зависимостей
func (h *HealthCheck) checkServicesHealth(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	pgStatus := statusUp
	if !h.checker.IsDatabaseHealthy(ctx) {
		pgStatus = statusDown
		h.logger.Warn("PostgreSQL health check failed")
	}

	redisStatus := statusUp
	if !h.checker.IsRedisHealthy(ctx) {
		redisStatus = statusDown
		h.logger.Warn("Redis health check failed")
	}

	h.statusMutex.Lock()
	h.serviceStatus["postgres"] = pgStatus
	h.serviceStatus["redis"] = redisStatus
	h.statusMutex.Unlock()
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
