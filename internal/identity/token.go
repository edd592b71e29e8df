package identity

import (
	"errors"
	"fmt"
	"time"

	"DetectiveProfileService/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuerName издатель сессионных токенов
const TokenIssuerName = "detective-profile-service"

// now подменяется в тестах
var now = time.Now

// SessionClaims содержимое сессионного токена
type SessionClaims struct {
	// Version версия сессии учетной записи на момент выпуска
	Version int `json:"ver"`
	jwt.RegisteredClaims
}

// TokenIssuer выпускает и проверяет сессионные токены HS256
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer создает новый экземпляр TokenIssuer
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue выпускает токен для uid с версией сессии
func (t *TokenIssuer) Issue(uid string, version int) (string, time.Time, error) {
	issuedAt := now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(t.ttl)

	claims := SessionClaims{
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    TokenIssuerName,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse проверяет подпись, издателя и срок действия токена
func (t *TokenIssuer) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperrors.NewProviderError(CodeUserTokenExpired, err)
	case err != nil:
		return nil, apperrors.NewProviderError(CodeInvalidUserToken, err)
	case claims.Subject == "":
		return nil, apperrors.NewProviderError(CodeInvalidUserToken, errors.New("token has no subject"))
	}
	return claims, nil
}
