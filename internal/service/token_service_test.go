package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"star-auth/internal/domain"
)

func testUser() domain.PublicUser {
	return domain.PublicUser{
		UserID:      "u1",
		Email:       "user@example.com",
		AccountType: "system",
	}
}

func TestTokenService_AccessRoundTrip(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

	token, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	claims, err := svc.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "user@example.com" || claims.AccountType != "system" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenService_RefreshRoundTrip(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

	token, err := svc.IssueRefreshToken(testUser())
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	claims, err := svc.VerifyRefreshToken(token)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenService_KeySeparation(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

	// Un access token firmado con la clave de access jamas pasa como
	// refresh token, y viceversa.
	access, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := svc.VerifyRefreshToken(access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for access token in refresh flow, got %v", err)
	}

	refresh, err := svc.IssueRefreshToken(testUser())
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := svc.ParseAccessToken(refresh); err == nil {
		t.Fatalf("expected refresh token rejected as access token")
	}
}

func TestTokenService_RefreshWrongKeyFails(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	forger := NewTokenService("access-secret", "stolen-secret", 15*time.Minute, 24*time.Hour)

	forged, err := forger.IssueRefreshToken(testUser())
	if err != nil {
		t.Fatalf("issue forged refresh: %v", err)
	}
	if _, err := svc.VerifyRefreshToken(forged); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong-key token, got %v", err)
	}
}

func TestTokenService_ExpiredRefreshCollapsesToInvalid(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	now := time.Now().UTC()
	claims := Claims{
		UserID:      "u1",
		Email:       "user@example.com",
		AccountType: "system",
		TokenType:   "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-old",
			Issuer:    "star-auth",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-48 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-24 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("refresh-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	// Expirado y malformado deben ser indistinguibles para el caller.
	if _, err := svc.VerifyRefreshToken(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired refresh, got %v", err)
	}
	if _, err := svc.VerifyRefreshToken("garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for malformed refresh, got %v", err)
	}
}

func TestTokenService_RevokedRefreshFails(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

	token, err := svc.IssueRefreshToken(testUser())
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if err := svc.RevokeRefreshToken(token); err != nil {
		t.Fatalf("revoke refresh: %v", err)
	}
	if _, err := svc.VerifyRefreshToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after revoke, got %v", err)
	}
}

func TestTokenService_OTPRoundTrip(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

	token, err := svc.IssueOTPToken("user@example.com", "042137")
	if err != nil {
		t.Fatalf("issue otp token: %v", err)
	}

	claims, err := svc.VerifyOTPToken(token)
	if err != nil {
		t.Fatalf("verify otp token: %v", err)
	}
	if claims.Email != "user@example.com" || claims.OTP != "042137" {
		t.Fatalf("unexpected otp claims: %+v", claims)
	}
}

func TestTokenService_OTPWrongKeyAndExpiry(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

	now := time.Now().UTC()
	expired := OTPClaims{
		Email: "user@example.com",
		OTP:   "123456",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "star-auth",
			IssuedAt:  jwt.NewNumericDate(now.Add(-10 * time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte("access-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.VerifyOTPToken(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired otp token, got %v", err)
	}

	other := NewTokenService("other-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	foreign, err := other.IssueOTPToken("user@example.com", "123456")
	if err != nil {
		t.Fatalf("issue otp token: %v", err)
	}
	if _, err := svc.VerifyOTPToken(foreign); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong-key otp token, got %v", err)
	}
}

func TestTokenService_RejectsEmptySecrets(t *testing.T) {
	svc := NewTokenService("", "", 15*time.Minute, 24*time.Hour)

	if _, err := svc.IssueAccessToken(testUser()); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on empty access secret, got %v", err)
	}
	if _, err := svc.IssueRefreshToken(testUser()); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on empty refresh secret, got %v", err)
	}
	if _, err := svc.IssueOTPToken("user@example.com", "123456"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on empty otp secret, got %v", err)
	}
}

func TestTokenService_RejectsWrongIssuer(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	now := time.Now().UTC()
	claims := Claims{
		UserID:    "u1",
		Email:     "user@example.com",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "other-issuer",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := svc.ParseAccessToken(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong issuer, got %v", err)
	}
}
