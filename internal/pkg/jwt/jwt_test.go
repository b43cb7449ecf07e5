package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Minute)
	userID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, "admin")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := svc.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id mismatch: %s", claims.UserID)
	}
	if claims.Role != "admin" {
		t.Fatalf("role mismatch: %s", claims.Role)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewService("secret-a", time.Minute).GenerateAccessToken(uuid.New(), "member")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := NewService("secret-b", time.Minute).ValidateAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)
	token, err := svc.GenerateAccessToken(uuid.New(), "member")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := svc.ValidateAccessToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Minute)
	if _, err := svc.ValidateAccessToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
