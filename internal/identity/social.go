package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"google.golang.org/api/idtoken"
)

// AppleIssuer издатель ID токенов Apple
const AppleIssuer = "https://appleid.apple.com"

// GoogleVerifier проверяет ID токены Google
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleVerifier создает новый экземпляр GoogleVerifier
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		validate: idtoken.Validate,
	}
}

// Verify проверяет подпись и аудиторию токена
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (SocialClaims, error) {
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return SocialClaims{}, fmt.Errorf("validate google id token: %w", err)
	}
	if payload.Subject == "" {
		return SocialClaims{}, errors.New("google id token has no subject")
	}

	return SocialClaims{
		Subject:       payload.Subject,
		Email:         claimString(payload.Claims["email"]),
		EmailVerified: claimBool(payload.Claims["email_verified"]),
		Name:          claimString(payload.Claims["name"]),
	}, nil
}

// AppleVerifier проверяет ID токены Apple по опубликованному набору ключей
type AppleVerifier struct {
	bundleID string
	keysURL  string
	fetch    func(ctx context.Context, url string) (jwk.Set, error)
}

// NewAppleVerifier создает новый экземпляр AppleVerifier
func NewAppleVerifier(bundleID, keysURL string) *AppleVerifier {
	return &AppleVerifier{
		bundleID: bundleID,
		keysURL:  keysURL,
		fetch: func(ctx context.Context, url string) (jwk.Set, error) {
			return jwk.Fetch(ctx, url)
		},
	}
}

// Verify проверяет подпись, издателя, аудиторию и срок действия токена
func (v *AppleVerifier) Verify(ctx context.Context, token string) (SocialClaims, error) {
	keyset, err := v.fetch(ctx, v.keysURL)
	if err != nil {
		return SocialClaims{}, fmt.Errorf("fetch apple jwks: %w", err)
	}

	t, err := jwt.ParseString(token,
		jwt.WithKeySet(keyset),
		jwt.WithValidate(true),
		jwt.WithIssuer(AppleIssuer),
		jwt.WithAudience(v.bundleID),
		jwt.WithClock(jwt.ClockFunc(now)),
	)
	if err != nil {
		return SocialClaims{}, fmt.Errorf("parse apple id token: %w", err)
	}
	if t.Subject() == "" {
		return SocialClaims{}, errors.New("apple id token has no subject")
	}

	email, _ := t.Get("email")
	verified, _ := t.Get("email_verified")

	// Apple передает имя только при первой авторизации и не в токене
	return SocialClaims{
		Subject:       t.Subject(),
		Email:         claimString(email),
		EmailVerified: claimBool(verified),
	}, nil
}

func claimString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// claimBool принимает и bool, и строку: Apple присылает "true"
func claimBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}
