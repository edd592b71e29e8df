package main

import (
	"context"
	"errors"
	"os"
	"time"

	"DetectiveProfileService/config"
	"DetectiveProfileService/internal/app"
	"DetectiveProfileService/internal/gate"
	"DetectiveProfileService/internal/session"
	"DetectiveProfileService/internal/shell"
	"DetectiveProfileService/pkg/logger"
	"DetectiveProfileService/pkg/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger().Fatal("Не удалось загрузить конфигурацию", zap.Error(err))
	}

	// Терминал занят диалогом, поэтому по умолчанию пишем только предупреждения
	level := cfg.Log.Level
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	log := logger.NewLoggerWithLevel(level)
	defer func() { _ = log.Sync() }()

	gracefulShutdown := server.NewGracefulShutdown(log, 10*time.Second)

	components, err := app.Build(cfg, log)
	if err != nil {
		log.Fatal("Не удалось инициализировать хранилища", zap.Error(err))
	}
	gracefulShutdown.AddShutdownFunc("storage", components.Close)

	ctx := gracefulShutdown.Context()
	sess := session.New(components.Provider, components.Mirror, log)
	g := gate.New(components.Profiles, shell.Navigator{Out: os.Stdout}, cfg.Gate.SplashDelay, log)

	updates, unsubscribe := sess.Subscribe()
	gracefulShutdown.AddShutdownFunc("session", func(context.Context) error {
		unsubscribe()
		return nil
	})

	go func() {
		if err := g.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Навигационный шлюз остановлен с ошибкой", zap.Error(err))
		}
	}()

	// Сохраненный токен восстанавливает прошлую сессию
	sess.Restore(ctx, os.Getenv("DETECTIVE_TOKEN"))

	sh := shell.New(sess, g, components.Service, os.Stdout, log)
	go func() {
		if err := sh.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Ошибка чтения команд", zap.Error(err))
		}
		gracefulShutdown.Shutdown()
	}()

	gracefulShutdown.Wait(context.Background())
}
