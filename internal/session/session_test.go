package session

import (
	"context"
	"errors"
	"testing"

	"DetectiveProfileService/internal/identity"
	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/pkg/apperrors"

	"go.uber.org/zap"
)

// mockProvider провайдер идентификации с заданными ответами
type mockProvider struct {
	identity  models.Identity
	err       error
	signOut   error
	signedOut []string
	tokens    map[string]models.Identity
}

func (m *mockProvider) result() (identity.AuthResult, error) {
	if m.err != nil {
		return identity.AuthResult{}, m.err
	}
	return identity.AuthResult{Identity: m.identity, Token: "token-" + m.identity.UID}, nil
}

func (m *mockProvider) SignInWithPassword(ctx context.Context, email, password string) (identity.AuthResult, error) {
	return m.result()
}

func (m *mockProvider) RegisterWithPassword(ctx context.Context, email, password, displayName string) (identity.AuthResult, error) {
	return m.result()
}

func (m *mockProvider) SignInWithSocialToken(ctx context.Context, provider models.AuthProvider, token string) (identity.AuthResult, error) {
	return m.result()
}

func (m *mockProvider) SignOut(ctx context.Context, uid string) error {
	if m.signOut != nil {
		return m.signOut
	}
	m.signedOut = append(m.signedOut, uid)
	return nil
}

func (m *mockProvider) VerifyToken(ctx context.Context, token string) (models.Identity, error) {
	id, ok := m.tokens[token]
	if !ok {
		return models.Identity{}, apperrors.NewProviderError(identity.CodeInvalidUserToken, nil)
	}
	return id, nil
}

// mockMirror запоминает upsert и может вернуть ошибку
type mockMirror struct {
	upserts []models.Identity
	err     error
}

func (m *mockMirror) Upsert(ctx context.Context, id models.Identity) error {
	m.upserts = append(m.upserts, id)
	return m.err
}

var holmes = models.Identity{UID: "u1", DisplayName: "Sherlock", Email: "s@b.st", Provider: models.ProviderEmail}

func TestSession_StartsLoading(t *testing.T) {
	s := New(&mockProvider{}, nil, zap.NewNop())
	state := s.State()
	if !state.Loading {
		t.Error("Expected new session to be loading")
	}
	if state.Authenticated() {
		t.Error("Loading session must not be authenticated")
	}
}

func TestSession_Restore(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{tokens: map[string]models.Identity{"valid": holmes}}

	t.Run("ValidToken", func(t *testing.T) {
		s := New(provider, nil, zap.NewNop())
		state := s.Restore(ctx, "valid")
		if !state.Authenticated() || state.Identity.UID != "u1" {
			t.Errorf("Expected restored identity, got %+v", state)
		}
		if s.Token() != "valid" {
			t.Errorf("Expected token to be kept, got %q", s.Token())
		}
	})

	t.Run("InvalidToken", func(t *testing.T) {
		s := New(provider, nil, zap.NewNop())
		state := s.Restore(ctx, "revoked")
		if state.Loading || state.Identity != nil {
			t.Errorf("Expected settled unauthenticated state, got %+v", state)
		}
	})

	t.Run("NoToken", func(t *testing.T) {
		s := New(provider, nil, zap.NewNop())
		if state := s.Restore(ctx, ""); state.Loading || state.Identity != nil {
			t.Errorf("Expected settled unauthenticated state, got %+v", state)
		}
	})
}

func TestSession_SignInPublishesAndMirrors(t *testing.T) {
	ctx := context.Background()
	mirror := &mockMirror{err: errors.New("mirror down")}
	s := New(&mockProvider{identity: holmes}, mirror, zap.NewNop())

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()
	if initial := <-updates; !initial.Loading {
		t.Errorf("Expected initial loading state, got %+v", initial)
	}

	// Ошибка зеркала не мешает входу
	result, err := s.SignInWithPassword(ctx, "s@b.st", "elementary")
	if err != nil {
		t.Fatalf("Expected sign in to succeed, got %v", err)
	}
	if result.Identity.UID != "u1" {
		t.Errorf("Unexpected identity %+v", result.Identity)
	}

	state := <-updates
	if !state.Authenticated() || state.Identity.UID != "u1" {
		t.Errorf("Expected authenticated update, got %+v", state)
	}
	if len(mirror.upserts) != 1 || mirror.upserts[0].UID != "u1" {
		t.Errorf("Expected one mirror upsert, got %v", mirror.upserts)
	}
}

func TestSession_ProviderErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	providerErr := apperrors.NewProviderError(identity.CodeInvalidCredential, nil)
	mirror := &mockMirror{}
	s := New(&mockProvider{err: providerErr}, mirror, zap.NewNop())
	s.Restore(ctx, "")

	_, err := s.SignInWithSocialToken(ctx, models.ProviderGoogle, "id-token")
	if !errors.Is(err, providerErr) {
		t.Errorf("Expected provider error, got %v", err)
	}
	if s.State().Identity != nil {
		t.Error("Failed sign in must not change identity")
	}
	if len(mirror.upserts) != 0 {
		t.Error("Failed sign in must not touch the mirror")
	}
}

func TestSession_SignOut(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{identity: holmes}
	s := New(provider, nil, zap.NewNop())

	if _, err := s.RegisterWithPassword(ctx, "s@b.st", "elementary", "Sherlock"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	provider.signOut = errors.New("network")
	if err := s.SignOut(ctx); err == nil {
		t.Fatal("Expected sign out error")
	}
	if s.State().Identity == nil {
		t.Error("Failed sign out must keep the identity")
	}

	provider.signOut = nil
	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("Sign out failed: %v", err)
	}
	if s.State().Identity != nil || s.Token() != "" {
		t.Error("Expected identity and token to be cleared")
	}
	if len(provider.signedOut) != 1 || provider.signedOut[0] != "u1" {
		t.Errorf("Expected provider sign out for u1, got %v", provider.signedOut)
	}
}

func TestSession_SubscribeKeepsLatest(t *testing.T) {
	ctx := context.Background()
	s := New(&mockProvider{identity: holmes}, nil, zap.NewNop())

	updates, unsubscribe := s.Subscribe()

	s.Restore(ctx, "")
	if _, err := s.SignInWithPassword(ctx, "s@b.st", "elementary"); err != nil {
		t.Fatalf("Sign in failed: %v", err)
	}

	// Промежуточные состояния вытеснены последним
	latest := <-updates
	if latest.Identity == nil || latest.Identity.UID != "u1" {
		t.Errorf("Expected latest state, got %+v", latest)
	}
	select {
	case extra := <-updates:
		t.Errorf("Unexpected stale update %+v", extra)
	default:
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-updates; ok {
		t.Error("Expected channel to be closed after unsubscribe")
	}
}
