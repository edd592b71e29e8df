package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"DetectiveProfileService/internal/gate"
	"DetectiveProfileService/internal/identity"
	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/internal/profile"
	"DetectiveProfileService/internal/service"
	"DetectiveProfileService/internal/session"
	"DetectiveProfileService/pkg/apperrors"

	"go.uber.org/zap"
)

// mockProvider провайдер с одной учетной записью по паролю
type mockProvider struct {
	accounts map[string]models.Identity
}

func (m *mockProvider) SignInWithPassword(ctx context.Context, email, password string) (identity.AuthResult, error) {
	id, ok := m.accounts[email]
	if !ok || password != "elementary" {
		return identity.AuthResult{}, apperrors.NewProviderError(identity.CodeInvalidCredential, nil)
	}
	return identity.AuthResult{Identity: id, Token: "token-" + id.UID}, nil
}

func (m *mockProvider) RegisterWithPassword(ctx context.Context, email, password, displayName string) (identity.AuthResult, error) {
	if _, ok := m.accounts[email]; ok {
		return identity.AuthResult{}, apperrors.NewProviderError(identity.CodeEmailAlreadyInUse, nil)
	}
	id := models.Identity{UID: "uid-1", Email: email, DisplayName: displayName, Provider: models.ProviderEmail}
	m.accounts[email] = id
	return identity.AuthResult{Identity: id, Token: "token-" + id.UID}, nil
}

func (m *mockProvider) SignInWithSocialToken(ctx context.Context, provider models.AuthProvider, token string) (identity.AuthResult, error) {
	return identity.AuthResult{}, apperrors.NewProviderError(identity.CodeOperationNotAllowed, nil)
}

func (m *mockProvider) SignOut(ctx context.Context, uid string) error { return nil }

func (m *mockProvider) VerifyToken(ctx context.Context, token string) (models.Identity, error) {
	return models.Identity{}, apperrors.NewProviderError(identity.CodeInvalidUserToken, nil)
}

// memoryKV хранилище ключей в памяти
type memoryKV map[string][]byte

func (m memoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return v, nil
}

func (m memoryKV) Set(ctx context.Context, key string, value []byte) error {
	m[key] = value
	return nil
}

func (m memoryKV) RemoveAll(ctx context.Context, keys []string) error {
	for _, key := range keys {
		delete(m, key)
	}
	return nil
}

type testShell struct {
	shell *Shell
	gate  *gate.Gate
	sess  *session.Session
	out   *bytes.Buffer
}

func newTestShell() *testShell {
	logger := zap.NewNop()
	out := &bytes.Buffer{}
	store := profile.NewStore(memoryKV{}, logger)
	sess := session.New(&mockProvider{accounts: make(map[string]models.Identity)}, nil, logger)
	g := gate.New(store, Navigator{Out: out}, 0, logger)
	return &testShell{
		shell: New(sess, g, service.NewDetectiveService(store, logger), out, logger),
		gate:  g,
		sess:  sess,
		out:   out,
	}
}

// sync переносит снимок сессии в шлюз так же, как это делает Gate.Run
func (ts *testShell) sync(t *testing.T) {
	t.Helper()
	ts.gate.SetSession(ts.sess.State())
	if _, err := ts.gate.Evaluate(context.Background()); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
}

func TestShell_CharacterFlow(t *testing.T) {
	ts := newTestShell()
	ctx := context.Background()
	ts.sess.Restore(ctx, "")
	ts.sync(t)

	if route := ts.gate.Route(); route != gate.RouteLogin {
		t.Fatalf("Expected login route, got %q", route)
	}

	if err := ts.shell.Execute(ctx, "register", []string{"holmes@baker.st", "elementary", "Sherlock", "Holmes"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	ts.sync(t)
	if route := ts.gate.Route(); route != gate.RouteCharacterCreation {
		t.Errorf("Expected character creation route, got %q", route)
	}

	if err := ts.shell.Execute(ctx, "create", []string{"Sherlock", "Holmes", "Male", "34", "None"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if route := ts.gate.Route(); route != gate.RouteHome {
		t.Errorf("Expected home route after create, got %q", route)
	}

	if err := ts.shell.Execute(ctx, "solve", nil); err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if !strings.Contains(ts.out.String(), "раскрыто 1") {
		t.Errorf("Expected solved case in output, got:\n%s", ts.out.String())
	}

	if err := ts.shell.Execute(ctx, "skills", []string{"intelligence=5", "speed=3"}); err != nil {
		t.Fatalf("skills failed: %v", err)
	}
	if !strings.Contains(ts.out.String(), "Свободных очков: 12") {
		t.Errorf("Expected 12 free points, got:\n%s", ts.out.String())
	}

	if err := ts.shell.Execute(ctx, "reset", nil); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if route := ts.gate.Route(); route != gate.RouteCharacterCreation {
		t.Errorf("Expected character creation route after reset, got %q", route)
	}
}

func TestShell_RequiresSession(t *testing.T) {
	ts := newTestShell()
	ts.sess.Restore(context.Background(), "")

	err := ts.shell.Execute(context.Background(), "profile", nil)
	if err != apperrors.ErrUnauthenticated {
		t.Errorf("Expected ErrUnauthenticated, got %v", err)
	}
}

func TestShell_Run(t *testing.T) {
	ts := newTestShell()
	ts.sess.Restore(context.Background(), "")

	input := strings.Join([]string{
		"register bad-email short X",
		"login holmes@baker.st wrong-password",
		"unknown",
		"quit",
		"help",
	}, "\n")
	if err := ts.shell.Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := ts.out.String()
	for _, expected := range []string{
		"email: Invalid email",
		identity.FriendlyMessage(apperrors.NewProviderError(identity.CodeInvalidCredential, nil)),
		"неизвестная команда",
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("Expected output to contain %q, got:\n%s", expected, out)
		}
	}
	if strings.Contains(out, "Команды:") {
		t.Error("Commands after quit must not run")
	}
}

func TestParseSkills(t *testing.T) {
	skills, err := parseSkills([]string{"charisma=4", "tech=2"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if skills["charisma"] != 4 || skills["tech"] != 2 {
		t.Errorf("Unexpected skills %v", skills)
	}

	if _, err := parseSkills([]string{"charisma"}); err == nil {
		t.Error("Expected error for missing points")
	}
	if _, err := parseSkills([]string{"charisma=lots"}); err == nil {
		t.Error("Expected error for non-numeric points")
	}
}
