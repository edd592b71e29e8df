package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type shutdownHook struct {
	name string
	fn   func(context.Context) error
}

// GracefulShutdown обеспечивает корректное завершение работы процесса
type GracefulShutdown struct {
	logger         *zap.Logger
	timeout        time.Duration
	mu             sync.Mutex
	hooks          []shutdownHook
	shutdownSignal chan os.Signal
	trigger        chan struct{}
	triggerOnce    sync.Once
	done           chan struct{}
	once           sync.Once
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewGracefulShutdown создает GracefulShutdown и подписывается на SIGINT/SIGTERM
func NewGracefulShutdown(logger *zap.Logger, timeout time.Duration) *GracefulShutdown {
	ctx, cancel := context.WithCancel(context.Background())
	gs := &GracefulShutdown{
		logger:         logger,
		timeout:        timeout,
		shutdownSignal: make(chan os.Signal, 1),
		trigger:        make(chan struct{}),
		done:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}

	signal.Notify(gs.shutdownSignal, syscall.SIGINT, syscall.SIGTERM)

	return gs
}

// AddShutdownFunc регистрирует функцию завершения; выполняются в обратном порядке
func (gs *GracefulShutdown) AddShutdownFunc(name string, f func(context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, shutdownHook{name: name, fn: f})
}

// Context отменяется в начале завершения работы.
// Компоненты с отложенными действиями привязываются к нему.
func (gs *GracefulShutdown) Context() context.Context {
	return gs.ctx
}

// Wait блокирует выполнение до сигнала, вызова Shutdown или отмены ctx, затем завершает работу
func (gs *GracefulShutdown) Wait(ctx context.Context) {
	select {
	case sig := <-gs.shutdownSignal:
		gs.logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case <-gs.trigger:
		gs.logger.Info("Shutdown requested")
	case <-ctx.Done():
		gs.logger.Info("Context cancelled, initiating shutdown")
	}

	gs.once.Do(func() {
		signal.Stop(gs.shutdownSignal)
		gs.cancel()
		gs.shutdown()
		close(gs.done)
	})
}

// Done закрывается после выполнения всех функций завершения
func (gs *GracefulShutdown) Done() <-chan struct{} {
	return gs.done
}

// Shutdown просит Wait начать завершение работы и не ждет его окончания
func (gs *GracefulShutdown) Shutdown() {
	gs.triggerOnce.Do(func() { close(gs.trigger) })
}

func (gs *GracefulShutdown) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	gs.mu.Lock()
	hooks := append([]shutdownHook(nil), gs.hooks...)
	gs.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].fn(ctx); err != nil {
			gs.logger.Error("Error during shutdown",
				zap.String("component", hooks[i].name),
				zap.Error(err))
		}
	}

	gs.logger.Info("Graceful shutdown completed")
}
