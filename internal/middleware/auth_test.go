package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestParseToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	claims := Claims{
		UserID:   42,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed := signToken(t, "test-secret", jwt.SigningMethodHS256, claims)

	parsed, err := ParseToken(signed)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed.UserID != 42 || parsed.Username != "alice" {
		t.Errorf("claims = %+v", parsed)
	}
}

func TestParseTokenRejectsBadSignature(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	signed := signToken(t, "other-secret", jwt.SigningMethodHS256, Claims{UserID: 1})
	if _, err := ParseToken(signed); err == nil {
		t.Error("token signed with a different secret should be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed := signToken(t, "test-secret", jwt.SigningMethodHS256, claims)
	if _, err := ParseToken(signed); err == nil {
		t.Error("expired token should be rejected")
	}
}

func TestParseTokenRejectsWrongAlgorithm(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	signed := signToken(t, "test-secret", jwt.SigningMethodHS512, Claims{UserID: 1})
	if _, err := ParseToken(signed); err == nil {
		t.Error("token with a non-HS256 algorithm should be rejected")
	}
}
