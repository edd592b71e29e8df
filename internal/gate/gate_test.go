package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/internal/session"
	"DetectiveProfileService/pkg/apperrors"

	"go.uber.org/zap"
)

// mockProfiles отвечает на проверку наличия профиля
type mockProfiles struct {
	mu      sync.Mutex
	present map[string]bool
	err     error
}

func (m *mockProfiles) Exists(ctx context.Context, uid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.present[uid], nil
}

func (m *mockProfiles) set(uid string, present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.present[uid] = present
}

// recordingNavigator запоминает навигацию и сообщения об ошибках
type recordingNavigator struct {
	mu       sync.Mutex
	routes   []Route
	failures []error
	replaced chan Route
}

func newRecordingNavigator() *recordingNavigator {
	return &recordingNavigator{replaced: make(chan Route, 16)}
}

func (n *recordingNavigator) Replace(ctx context.Context, route Route) error {
	n.mu.Lock()
	n.routes = append(n.routes, route)
	n.mu.Unlock()
	n.replaced <- route
	return nil
}

func (n *recordingNavigator) ShowFailure(ctx context.Context, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, err)
}

func (n *recordingNavigator) snapshot() ([]Route, []error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Route(nil), n.routes...), append([]error(nil), n.failures...)
}

func signedIn(uid string) session.State {
	return session.State{Identity: &models.Identity{UID: uid}}
}

func waitRoute(t *testing.T, nav *recordingNavigator) Route {
	t.Helper()
	select {
	case route := <-nav.replaced:
		return route
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for navigation")
		return ""
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		state    session.State
		present  bool
		expected State
	}{
		{"Loading", session.State{Loading: true}, false, Unresolved},
		{"LoadingIgnoresProfile", session.State{Loading: true, Identity: &models.Identity{UID: "u1"}}, true, Unresolved},
		{"NoIdentity", session.State{}, false, Unauthenticated},
		{"NoProfile", signedIn("u1"), false, AuthenticatedNoProfile},
		{"WithProfile", signedIn("u1"), true, AuthenticatedWithProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.state, tt.present); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestStateRoutes(t *testing.T) {
	expected := map[State]Route{
		Unresolved:               RouteSplash,
		Unauthenticated:          RouteLogin,
		AuthenticatedNoProfile:   RouteCharacterCreation,
		AuthenticatedWithProfile: RouteHome,
	}
	for state, route := range expected {
		if got := state.Route(); got != route {
			t.Errorf("%v: expected %s, got %s", state, route, got)
		}
	}
}

func TestGate_SettlesToUnauthenticated(t *testing.T) {
	nav := newRecordingNavigator()
	g := New(&mockProfiles{present: map[string]bool{}}, nav, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan session.State, 2)
	updates <- session.State{Loading: true}
	updates <- session.State{}
	go func() { _ = g.Run(ctx, updates) }()

	if route := waitRoute(t, nav); route != RouteLogin {
		t.Errorf("Expected %s, got %s", RouteLogin, route)
	}
	if state := g.State(); state != Unauthenticated {
		t.Errorf("Expected Unauthenticated, got %v", state)
	}
}

func TestGate_ExistingProfileGoesHome(t *testing.T) {
	ctx := context.Background()
	profiles := &mockProfiles{present: map[string]bool{"u1": true}}
	nav := newRecordingNavigator()
	g := New(profiles, nav, 0, zap.NewNop())

	g.SetSession(signedIn("u1"))
	state, err := g.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if state != AuthenticatedWithProfile || g.Route() != RouteHome {
		t.Errorf("Expected home, got %v at %s", state, g.Route())
	}

	// Создание персонажа недоступно без сброса
	state, _ = g.NotifyProfileChanged(ctx)
	if state != AuthenticatedWithProfile {
		t.Errorf("Expected to stay home, got %v", state)
	}

	profiles.set("u1", false)
	state, _ = g.NotifyProfileChanged(ctx)
	if state != AuthenticatedNoProfile || g.Route() != RouteCharacterCreation {
		t.Errorf("Expected character creation after reset, got %v at %s", state, g.Route())
	}

	routes, _ := nav.snapshot()
	if len(routes) != 2 || routes[0] != RouteHome || routes[1] != RouteCharacterCreation {
		t.Errorf("Unexpected navigation %v", routes)
	}
}

func TestGate_EvaluateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	nav := newRecordingNavigator()
	g := New(&mockProfiles{present: map[string]bool{}}, nav, 0, zap.NewNop())
	g.SetSession(signedIn("u1"))

	for i := 0; i < 2; i++ {
		if _, err := g.Evaluate(ctx); err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
	}

	routes, _ := nav.snapshot()
	if len(routes) != 1 {
		t.Errorf("Expected exactly one navigation, got %v", routes)
	}
}

func TestGate_StorageFailureBlocksNavigation(t *testing.T) {
	ctx := context.Background()
	storageErr := apperrors.NewStorageError("get", "character_u1", errors.New("connection refused"))
	nav := newRecordingNavigator()
	g := New(&mockProfiles{err: storageErr}, nav, 0, zap.NewNop())
	g.SetSession(signedIn("u1"))

	state, err := g.Evaluate(ctx)
	if !apperrors.IsStorage(err) {
		t.Errorf("Expected storage error, got %v", err)
	}
	if state != Unresolved {
		t.Errorf("Expected state to stay Unresolved, got %v", state)
	}

	routes, failures := nav.snapshot()
	if len(routes) != 0 {
		t.Errorf("Expected no navigation, got %v", routes)
	}
	if len(failures) != 1 {
		t.Errorf("Expected failure to be shown once, got %v", failures)
	}
}

func TestGate_SignOutReturnsToLogin(t *testing.T) {
	ctx := context.Background()
	nav := newRecordingNavigator()
	g := New(&mockProfiles{present: map[string]bool{"u1": true}}, nav, 0, zap.NewNop())

	g.SetSession(signedIn("u1"))
	_, _ = g.Evaluate(ctx)
	g.SetSession(session.State{})
	state, _ := g.Evaluate(ctx)

	if state != Unauthenticated || g.Route() != RouteLogin {
		t.Errorf("Expected login after sign out, got %v at %s", state, g.Route())
	}
}

func TestGate_SplashDelay(t *testing.T) {
	nav := newRecordingNavigator()
	splash := 80 * time.Millisecond
	g := New(&mockProfiles{present: map[string]bool{}}, nav, splash, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan session.State, 1)
	updates <- session.State{}

	start := time.Now()
	go func() { _ = g.Run(ctx, updates) }()

	if route := waitRoute(t, nav); route != RouteLogin {
		t.Errorf("Expected %s, got %s", RouteLogin, route)
	}
	if elapsed := time.Since(start); elapsed < splash {
		t.Errorf("Navigation fired before splash delay: %v", elapsed)
	}

	// Последующие переходы без задержки
	updates <- signedIn("u2")
	begin := time.Now()
	if route := waitRoute(t, nav); route != RouteCharacterCreation {
		t.Errorf("Expected %s, got %s", RouteCharacterCreation, route)
	}
	if elapsed := time.Since(begin); elapsed >= splash {
		t.Errorf("Subsequent transition was delayed: %v", elapsed)
	}
}

func TestGate_CancelledBeforeSplash(t *testing.T) {
	nav := newRecordingNavigator()
	g := New(&mockProfiles{present: map[string]bool{}}, nav, 50*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan session.State, 1)
	updates <- session.State{}

	done := make(chan error, 1)
	go func() { done <- g.Run(ctx, updates) }()
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	routes, _ := nav.snapshot()
	if len(routes) != 0 {
		t.Errorf("Expected no navigation after cancellation, got %v", routes)
	}
}

// reentrantNavigator читает состояние шлюза из обработчиков навигации
type reentrantNavigator struct {
	gate     *Gate
	seen     []Route
	failures int
}

func (n *reentrantNavigator) Replace(ctx context.Context, route Route) error {
	n.seen = append(n.seen, n.gate.Route())
	_ = n.gate.State()
	return nil
}

func (n *reentrantNavigator) ShowFailure(ctx context.Context, err error) {
	_ = n.gate.Route()
	n.failures++
}

func TestGate_NavigatorMayReadGate(t *testing.T) {
	ctx := context.Background()
	profiles := &mockProfiles{present: map[string]bool{"u1": true}}
	nav := &reentrantNavigator{}
	g := New(profiles, nav, 0, zap.NewNop())
	nav.gate = g
	g.SetSession(signedIn("u1"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := g.Evaluate(ctx); err != nil {
			t.Errorf("Evaluate failed: %v", err)
		}
		profiles.mu.Lock()
		profiles.err = errors.New("connection refused")
		profiles.mu.Unlock()
		_, _ = g.Evaluate(ctx)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Navigator reading the gate blocked evaluation")
	}

	// Обработчик видит маршрут до замены
	if len(nav.seen) != 1 || nav.seen[0] != RouteSplash {
		t.Errorf("Expected navigator to observe splash route, got %v", nav.seen)
	}
	if nav.failures != 1 {
		t.Errorf("Expected one failure, got %d", nav.failures)
	}
	if g.Route() != RouteHome {
		t.Errorf("Expected home route, got %s", g.Route())
	}
}

// blockingProfiles держит проверку профиля до сигнала
type blockingProfiles struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProfiles) Exists(ctx context.Context, uid string) (bool, error) {
	close(b.entered)
	<-b.release
	return false, nil
}

func TestGate_SlowStoreDoesNotBlockReaders(t *testing.T) {
	profiles := &blockingProfiles{entered: make(chan struct{}), release: make(chan struct{})}
	g := New(profiles, newRecordingNavigator(), 0, zap.NewNop())
	g.SetSession(signedIn("u1"))

	result := make(chan State, 1)
	go func() {
		state, _ := g.Evaluate(context.Background())
		result <- state
	}()
	<-profiles.entered

	read := make(chan struct{})
	go func() {
		_ = g.State()
		_ = g.Route()
		close(read)
	}()
	select {
	case <-read:
	case <-time.After(time.Second):
		t.Fatal("State and Route blocked behind a profile lookup")
	}

	close(profiles.release)
	if state := <-result; state != AuthenticatedNoProfile {
		t.Errorf("Expected AuthenticatedNoProfile, got %v", state)
	}
}
