package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"quiz-backend/internal/domain"
)

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewJWTIssuer("secret", time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	token, expiresAt, err := issuer.Issue(domain.User{ID: 9, Username: "zoe"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if until := time.Until(expiresAt); until <= 0 || until > time.Minute {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}
	identity, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.UserID != 9 || identity.Username != "zoe" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Date(2024, 10, 15, 9, 0, 0, 0, time.UTC)
	base, err := NewJWTIssuer("secret", 0)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	issuer := base.WithClock(func() time.Time { return now })
	token, expiresAt, err := issuer.Issue(domain.User{ID: 1, Username: "a"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(DefaultTokenTTL)) {
		t.Fatalf("expected default ttl, got %v", expiresAt.Sub(now))
	}

	later := issuer.WithClock(func() time.Time { return now.Add(DefaultTokenTTL - time.Second) })
	if _, err := later.Verify(token); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}
	expired := issuer.WithClock(func() time.Time { return now.Add(DefaultTokenTTL + time.Second) })
	if _, err := expired.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	issuer, _ := NewJWTIssuer("secret", time.Minute)
	other, _ := NewJWTIssuer("other-secret", time.Minute)

	forged, _, err := other.Issue(domain.User{ID: 1, Username: "a"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Verify(forged); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong secret, got %v", err)
	}

	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := issuer.Verify(unsigned); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for alg none, got %v", err)
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	if _, err := issuer.Verify(hs512); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unexpected alg, got %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Verify(noExpiry); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized without expiry, got %v", err)
	}
}

func TestNewJWTIssuerRequiresSecret(t *testing.T) {
	if _, err := NewJWTIssuer("", time.Minute); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
