// Package gate реализует навигационный шлюз: выбор группы экранов по состоянию сессии и наличию профиля.
package gate

import (
	"context"
	"sync"
	"time"

	"DetectiveProfileService/internal/session"
	"DetectiveProfileService/pkg/server"

	"go.uber.org/zap"
)

// State состояние навигационного шлюза
type State int

const (
	// Unresolved сессия еще загружается
	Unresolved State = iota
	Unauthenticated
	AuthenticatedNoProfile
	AuthenticatedWithProfile
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Unauthenticated:
		return "unauthenticated"
	case AuthenticatedNoProfile:
		return "authenticated_no_profile"
	case AuthenticatedWithProfile:
		return "authenticated_with_profile"
	default:
		return "unknown"
	}
}

// Route группа экранов
type Route string

const (
	RouteSplash            Route = "/"
	RouteLogin             Route = "/(auth)/login"
	RouteCharacterCreation Route = "/(main)"
	RouteHome              Route = "/(main)/home"
)

// Route возвращает группу экранов для состояния
func (s State) Route() Route {
	switch s {
	case Unauthenticated:
		return RouteLogin
	case AuthenticatedNoProfile:
		return RouteCharacterCreation
	case AuthenticatedWithProfile:
		return RouteHome
	default:
		return RouteSplash
	}
}

// Decide вычисляет состояние шлюза по снимку сессии и наличию профиля
func Decide(st session.State, profilePresent bool) State {
	switch {
	case st.Loading:
		return Unresolved
	case st.Identity == nil:
		return Unauthenticated
	case profilePresent:
		return AuthenticatedWithProfile
	default:
		return AuthenticatedNoProfile
	}
}

// ProfileChecker сообщает, есть ли у пользователя профиль.
// Ошибка означает сбой хранилища, отсутствие ключа дает false без ошибки.
type ProfileChecker interface {
	Exists(ctx context.Context, uid string) (bool, error)
}

// Navigator выполняет навигацию с заменой текущего экрана.
// Вызывается без блокировки состояния: State и Route доступны из обработчика, Evaluate нет.
type Navigator interface {
	Replace(ctx context.Context, route Route) error
	ShowFailure(ctx context.Context, err error)
}

// Gate навигационный шлюз. Вычисления сериализованы.
type Gate struct {
	profiles ProfileChecker
	nav      Navigator
	splash   time.Duration
	logger   *zap.Logger

	// evalMu сериализует вычисления, mu защищает поля ниже
	evalMu  sync.Mutex
	mu      sync.Mutex
	session session.State
	ready   bool
	state   State
	route   Route
}

// New создает шлюз в состоянии Unresolved на экране заставки
func New(profiles ProfileChecker, nav Navigator, splash time.Duration, logger *zap.Logger) *Gate {
	return &Gate{
		profiles: profiles,
		nav:      nav,
		splash:   splash,
		logger:   logger,
		session:  session.State{Loading: true},
		ready:    splash <= 0,
		state:    Unresolved,
		route:    RouteSplash,
	}
}

// State возвращает текущее состояние
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Route возвращает текущую группу экранов
func (g *Gate) Route() Route {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.route
}

// Run обрабатывает обновления сессии до отмены ctx или закрытия канала.
// Первое решение принимается не раньше окончания заставки; отмена до этого отменяет навигацию.
func (g *Gate) Run(ctx context.Context, updates <-chan session.State) error {
	var splash <-chan time.Time
	if !g.isReady() {
		timer := time.NewTimer(g.splash)
		defer timer.Stop()
		splash = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-splash:
			splash = nil
			g.mu.Lock()
			g.ready = true
			g.mu.Unlock()
			g.evaluateAndLog(ctx)

		case st, ok := <-updates:
			if !ok {
				return nil
			}
			g.mu.Lock()
			g.session = st
			g.mu.Unlock()
			g.evaluateAndLog(ctx)
		}
	}
}

// SetSession заменяет снимок сессии без вычисления
func (g *Gate) SetSession(st session.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.session = st
}

// NotifyProfileChanged пересчитывает состояние после создания или сброса профиля
func (g *Gate) NotifyProfileChanged(ctx context.Context) (State, error) {
	return g.Evaluate(ctx)
}

// Evaluate пересчитывает состояние и выполняет навигацию, если группа экранов изменилась.
// Повторный вызов с теми же входными данными навигацию не повторяет.
func (g *Gate) Evaluate(ctx context.Context) (State, error) {
	g.evalMu.Lock()
	defer g.evalMu.Unlock()

	g.mu.Lock()
	ready, st, current, currentRoute := g.ready, g.session, g.state, g.route
	g.mu.Unlock()

	if !ready {
		return current, nil
	}

	present := false
	if !st.Loading && st.Identity != nil {
		exists, err := g.profiles.Exists(ctx, st.Identity.UID)
		if err != nil {
			// Сбой хранилища не означает отсутствие профиля: навигация блокируется
			g.logger.Error("Не удалось проверить наличие профиля",
				zap.String("uid", st.Identity.UID),
				zap.Error(err))
			g.nav.ShowFailure(ctx, err)
			return current, err
		}
		present = exists
	}

	next := Decide(st, present)
	if next != current {
		g.logger.Info("Переход навигационного шлюза",
			zap.Stringer("from", current),
			zap.Stringer("to", next))
		server.RecordGateTransition(next.String())
		g.mu.Lock()
		g.state = next
		g.mu.Unlock()
	}

	if route := next.Route(); route != currentRoute {
		if err := g.nav.Replace(ctx, route); err != nil {
			g.logger.Error("Навигация не выполнена",
				zap.String("route", string(route)),
				zap.Error(err))
			return next, err
		}
		g.mu.Lock()
		g.route = route
		g.mu.Unlock()
	}
	return next, nil
}

func (g *Gate) isReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

func (g *Gate) evaluateAndLog(ctx context.Context) {
	// Ошибки уже переданы навигатору и записаны в лог
	_, _ = g.Evaluate(ctx)
}
