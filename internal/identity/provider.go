package identity

import (
	"context"
	"time"

	"DetectiveProfileService/internal/models"
)

// AuthResult результат успешного входа: идентичность и сессионный токен
type AuthResult struct {
	Identity  models.Identity
	Token     string
	ExpiresAt time.Time
}

// Provider внешний провайдер идентификации, как его видит сессия.
// Все ошибки отказа возвращаются как *apperrors.ProviderError.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (AuthResult, error)
	RegisterWithPassword(ctx context.Context, email, password, displayName string) (AuthResult, error)
	SignInWithSocialToken(ctx context.Context, provider models.AuthProvider, token string) (AuthResult, error)
	SignOut(ctx context.Context, uid string) error
	// VerifyToken восстанавливает идентичность по ранее выданному токену
	VerifyToken(ctx context.Context, token string) (models.Identity, error)
}

// AccountStore хранилище учетных записей
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByUID(ctx context.Context, uid string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetBySubject(ctx context.Context, provider models.AuthProvider, subject string) (*models.Account, error)
	BumpSessionVersion(ctx context.Context, uid string) error
}

// AttemptLimiter ограничивает число неудачных попыток входа
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// SocialClaims проверенные данные ID токена соцсети
type SocialClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// TokenVerifier проверяет ID токен конкретной соцсети
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (SocialClaims, error)
}
