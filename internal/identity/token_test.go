package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, expiresAt, err := issuer.Issue("uid-1", 3)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("Expected expiry in the future, got %v", expiresAt)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Failed to parse token: %v", err)
	}
	if claims.Subject != "uid-1" || claims.Version != 3 {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	t.Run("Expired", func(t *testing.T) {
		token, _, err := issuer.Issue("uid-1", 1)
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}

		now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		t.Cleanup(func() { now = time.Now })

		_, err = issuer.Parse(token)
		assertCode(t, err, CodeUserTokenExpired)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, _, err := NewTokenIssuer("other", time.Hour).Issue("uid-1", 1)
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}
		_, err = issuer.Parse(token)
		assertCode(t, err, CodeInvalidUserToken)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		claims := SessionClaims{
			Version: 1,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "uid-1",
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("Failed to sign token: %v", err)
		}
		_, err = issuer.Parse(token)
		assertCode(t, err, CodeInvalidUserToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token")
		assertCode(t, err, CodeInvalidUserToken)
	})
}
