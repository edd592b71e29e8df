package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"DetectiveProfileService/config"
	"DetectiveProfileService/internal/app"
	"DetectiveProfileService/internal/database/seed"
	"DetectiveProfileService/internal/delivery/grpc"
	"DetectiveProfileService/pkg/logger"
	"DetectiveProfileService/pkg/server"

	"go.uber.org/zap"
)

// Версия сервиса
const (
	ServiceVersion = "1.0.0"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger().Fatal("Не удалось загрузить конфигурацию", zap.Error(err))
	}

	log := logger.NewLoggerWithLevel(cfg.Log.Level)
	defer func() { _ = log.Sync() }()
	log.Info("Запуск сервиса профилей детектива", zap.String("version", ServiceVersion))

	// Определение номеров портов
	grpcPort := cfg.GRPC.Port
	healthPort := grpcPort + 100
	metricsPort := grpcPort + 200

	// Создаем механизм graceful shutdown
	gracefulShutdown := server.NewGracefulShutdown(log, 30*time.Second)

	components, err := app.Build(cfg, log)
	if err != nil {
		log.Fatal("Не удалось инициализировать хранилища", zap.Error(err))
	}
	gracefulShutdown.AddShutdownFunc("storage", func(ctx context.Context) error {
		log.Info("Закрытие соединений с PostgreSQL и Redis")
		return components.Close(ctx)
	})

	// Заполняем тестовыми данными в режиме разработки
	seeder := seed.NewDevEnvironmentSeeder(components.Provider, components.Service, log)
	if err := seeder.SeedAllDevData(gracefulShutdown.Context()); err != nil {
		log.Warn("Не удалось заполнить данные для разработки", zap.Error(err))
	}

	// Запускаем сервер для метрик Prometheus
	metricsServer := server.MetricsServer(fmt.Sprintf(":%d", metricsPort), log)
	gracefulShutdown.AddShutdownFunc("metrics", func(ctx context.Context) error {
		log.Info("Остановка сервера метрик")
		return metricsServer.Shutdown(ctx)
	})

	// Создаем и запускаем HTTP сервер для проверки здоровья
	healthCheck := server.NewHealthCheck(components.Health, log, ServiceVersion)
	healthCheck.StartServer(fmt.Sprintf(":%d", healthPort))
	gracefulShutdown.AddShutdownFunc("health", func(ctx context.Context) error {
		log.Info("Остановка сервера проверки здоровья")
		return healthCheck.Stop(ctx)
	})

	handler := grpc.NewDetectiveHandler(components.Provider, components.Mirror, components.Service, log)
	grpcServer := grpc.NewServer(handler, log, grpcPort)
	gracefulShutdown.AddShutdownFunc("grpc", func(ctx context.Context) error {
		grpcServer.Stop()
		return nil
	})

	// Запуск gRPC сервера в отдельной горутине
	go func() {
		if err := grpcServer.Run(); err != nil {
			log.Error("gRPC сервер остановлен с ошибкой", zap.Error(err))
			gracefulShutdown.Shutdown()
		}
	}()

	// Логируем информацию о версии и PID
	hostname, _ := os.Hostname()
	log.Info("Сервис успешно запущен",
		zap.Int("grpc_port", grpcPort),
		zap.Int("health_port", healthPort),
		zap.Int("metrics_port", metricsPort),
		zap.String("version", ServiceVersion),
		zap.Int("pid", os.Getpid()),
		zap.String("hostname", hostname))

	// Ожидаем сигнала остановки
	gracefulShutdown.Wait(context.Background())
	log.Info("Завершение работы сервиса выполнено")
}
