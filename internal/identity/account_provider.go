package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/pkg/apperrors"
	"DetectiveProfileService/pkg/server"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength минимальная длина пароля, которую принимает провайдер
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AccountProvider провайдер идентификации поверх собственного хранилища учетных записей
type AccountProvider struct {
	accounts  AccountStore
	tokens    *TokenIssuer
	verifiers map[models.AuthProvider]TokenVerifier
	limiter   AttemptLimiter
	logger    *zap.Logger
}

// Option настраивает AccountProvider
type Option func(*AccountProvider)

// WithVerifier подключает проверку ID токенов соцсети
func WithVerifier(provider models.AuthProvider, verifier TokenVerifier) Option {
	return func(p *AccountProvider) {
		p.verifiers[provider] = verifier
	}
}

// WithAttemptLimiter подключает ограничение неудачных попыток входа
func WithAttemptLimiter(limiter AttemptLimiter) Option {
	return func(p *AccountProvider) {
		p.limiter = limiter
	}
}

// NewAccountProvider создает новый экземпляр AccountProvider
func NewAccountProvider(accounts AccountStore, tokens *TokenIssuer, logger *zap.Logger, opts ...Option) *AccountProvider {
	p := &AccountProvider{
		accounts:  accounts,
		tokens:    tokens,
		verifiers: make(map[models.AuthProvider]TokenVerifier),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SignInWithPassword выполняет вход по email и паролю
func (p *AccountProvider) SignInWithPassword(ctx context.Context, email, password string) (AuthResult, error) {
	result, err := p.signInWithPassword(ctx, normalizeEmail(email), password)
	server.RecordAuthAttempt(string(models.ProviderEmail), err)
	return result, err
}

func (p *AccountProvider) signInWithPassword(ctx context.Context, email, password string) (AuthResult, error) {
	if !emailPattern.MatchString(email) {
		return AuthResult{}, apperrors.NewProviderError(CodeInvalidEmail, nil)
	}

	if p.limiter != nil {
		allowed, err := p.limiter.Allow(ctx, email)
		if err != nil {
			// Сбой счетчика попыток не блокирует вход
			p.logger.Warn("Не удалось проверить число попыток входа", zap.Error(err))
		} else if !allowed {
			return AuthResult{}, apperrors.NewProviderError(CodeTooManyRequests, nil)
		}
	}

	account, err := p.accounts.GetByEmail(ctx, email)
	switch {
	case apperrors.IsNotFound(err):
		p.recordFailure(ctx, email)
		return AuthResult{}, apperrors.NewProviderError(CodeInvalidCredential, nil)
	case err != nil:
		return AuthResult{}, p.unavailable("get account by email", err)
	}

	if account.PasswordHash == "" {
		// Учетная запись соцсети без пароля
		p.recordFailure(ctx, email)
		return AuthResult{}, apperrors.NewProviderError(CodeInvalidCredential, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		p.recordFailure(ctx, email)
		return AuthResult{}, apperrors.NewProviderError(CodeInvalidCredential, nil)
	}

	if p.limiter != nil {
		if err := p.limiter.Reset(ctx, email); err != nil {
			p.logger.Warn("Не удалось сбросить счетчик попыток входа", zap.Error(err))
		}
	}

	p.logger.Info("Вход по паролю", zap.String("uid", account.UID))
	return p.issue(account)
}

// RegisterWithPassword создает учетную запись по email и паролю и выполняет вход
func (p *AccountProvider) RegisterWithPassword(ctx context.Context, email, password, displayName string) (AuthResult, error) {
	result, err := p.registerWithPassword(ctx, normalizeEmail(email), password, strings.TrimSpace(displayName))
	server.RecordAuthAttempt(string(models.ProviderEmail), err)
	return result, err
}

func (p *AccountProvider) registerWithPassword(ctx context.Context, email, password, displayName string) (AuthResult, error) {
	if !emailPattern.MatchString(email) {
		return AuthResult{}, apperrors.NewProviderError(CodeInvalidEmail, nil)
	}
	if len(password) < MinPasswordLength {
		return AuthResult{}, apperrors.NewProviderError(CodeWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, apperrors.NewProviderError(CodeInternalError, err)
	}

	account := &models.Account{
		UID:             uuid.NewString(),
		Email:           email,
		PasswordHash:    string(hash),
		DisplayName:     displayName,
		AuthProvider:    models.ProviderEmail,
		ProviderSubject: email,
		SessionVersion:  1,
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrAccountExists) {
			return AuthResult{}, apperrors.NewProviderError(CodeEmailAlreadyInUse, err)
		}
		return AuthResult{}, p.unavailable("create account", err)
	}

	p.logger.Info("Зарегистрирована учетная запись", zap.String("uid", account.UID))
	return p.issue(account)
}

// SignInWithSocialToken выполняет вход по ID токену Google или Apple.
// Учетная запись создается при первом входе.
func (p *AccountProvider) SignInWithSocialToken(ctx context.Context, provider models.AuthProvider, token string) (AuthResult, error) {
	result, err := p.signInWithSocialToken(ctx, provider, token)
	server.RecordAuthAttempt(string(provider), err)
	return result, err
}

func (p *AccountProvider) signInWithSocialToken(ctx context.Context, provider models.AuthProvider, token string) (AuthResult, error) {
	verifier, ok := p.verifiers[provider]
	if !ok || provider == models.ProviderEmail {
		return AuthResult{}, apperrors.NewProviderError(CodeOperationNotAllowed, nil)
	}

	claims, err := verifier.Verify(ctx, token)
	if err != nil {
		p.logger.Info("ID токен отклонен",
			zap.String("provider", string(provider)),
			zap.Error(err))
		return AuthResult{}, apperrors.NewProviderError(CodeInvalidCredential, err)
	}

	account, err := p.accounts.GetBySubject(ctx, provider, claims.Subject)
	if err == nil {
		return p.issue(account)
	}
	if !apperrors.IsNotFound(err) {
		return AuthResult{}, p.unavailable("get account by subject", err)
	}

	email := normalizeEmail(claims.Email)
	if email != "" {
		existing, err := p.accounts.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.AuthProvider != provider:
			return AuthResult{}, apperrors.NewProviderError(CodeAccountExistsWithCred, nil)
		case err != nil && !apperrors.IsNotFound(err):
			return AuthResult{}, p.unavailable("get account by email", err)
		}
	}

	displayName := strings.TrimSpace(claims.Name)
	if displayName == "" {
		displayName = models.DefaultDisplayName
	}

	account = &models.Account{
		UID:             uuid.NewString(),
		Email:           email,
		DisplayName:     displayName,
		AuthProvider:    provider,
		ProviderSubject: claims.Subject,
		SessionVersion:  1,
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrAccountExists) {
			// Параллельный первый вход того же субъекта успел создать учетную запись
			if winner, lookupErr := p.accounts.GetBySubject(ctx, provider, claims.Subject); lookupErr == nil {
				return p.issue(winner)
			}
			return AuthResult{}, apperrors.NewProviderError(CodeAccountExistsWithCred, err)
		}
		return AuthResult{}, p.unavailable("create account", err)
	}

	p.logger.Info("Создана учетная запись через соцсеть",
		zap.String("uid", account.UID),
		zap.String("provider", string(provider)))
	return p.issue(account)
}

// SignOut отзывает все сессионные токены пользователя
func (p *AccountProvider) SignOut(ctx context.Context, uid string) error {
	err := p.accounts.BumpSessionVersion(ctx, uid)
	switch {
	case apperrors.IsNotFound(err):
		return apperrors.NewProviderError(CodeUserNotFound, err)
	case err != nil:
		return p.unavailable("bump session version", err)
	}

	p.logger.Info("Выход из учетной записи", zap.String("uid", uid))
	return nil
}

// VerifyToken восстанавливает идентичность по сессионному токену.
// Токен, выпущенный до последнего выхода, отклоняется.
func (p *AccountProvider) VerifyToken(ctx context.Context, token string) (models.Identity, error) {
	claims, err := p.tokens.Parse(token)
	if err != nil {
		return models.Identity{}, err
	}

	account, err := p.accounts.GetByUID(ctx, claims.Subject)
	switch {
	case apperrors.IsNotFound(err):
		return models.Identity{}, apperrors.NewProviderError(CodeUserNotFound, err)
	case err != nil:
		return models.Identity{}, p.unavailable("get account by uid", err)
	}

	if claims.Version != account.SessionVersion {
		return models.Identity{}, apperrors.NewProviderError(CodeUserTokenExpired, nil)
	}
	return account.ToIdentity(), nil
}

func (p *AccountProvider) issue(account *models.Account) (AuthResult, error) {
	token, expiresAt, err := p.tokens.Issue(account.UID, account.SessionVersion)
	if err != nil {
		return AuthResult{}, apperrors.NewProviderError(CodeInternalError, err)
	}
	return AuthResult{
		Identity:  account.ToIdentity(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (p *AccountProvider) recordFailure(ctx context.Context, email string) {
	if p.limiter == nil {
		return
	}
	if err := p.limiter.RecordFailure(ctx, email); err != nil {
		p.logger.Warn("Не удалось учесть неудачную попытку входа", zap.Error(err))
	}
}

func (p *AccountProvider) unavailable(op string, err error) error {
	p.logger.Error("Хранилище учетных записей недоступно",
		zap.String("operation", op),
		zap.Error(err))
	return apperrors.NewProviderError(CodeNetworkRequestFailed, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Provider = (*AccountProvider)(nil)
