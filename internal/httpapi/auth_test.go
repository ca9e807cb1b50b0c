package httpapi

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rebill/internal/domain"
	"rebill/internal/store"
)

type verifierStub struct {
	users map[string]domain.UserAccount
}

func (v *verifierStub) Authenticate(_ context.Context, username string, password string) (domain.UserAccount, error) {
	user, ok := v.users[username]
	if !ok || user.Password != password {
		return domain.UserAccount{}, store.ErrInvalidInput
	}
	return user, nil
}

func newTestAuthManager() *AuthManager {
	return NewAuthManager("test-secret-key", time.Hour, &verifierStub{
		users: map[string]domain.UserAccount{
			"admin":   {Username: "admin", Password: "admin123", Role: "admin", Active: true},
			"cashier": {Username: "cashier", Password: "cashier123", Role: "cashier", Active: true},
		},
	})
}

func TestLoginIssuesParsableToken(t *testing.T) {
	manager := newTestAuthManager()

	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "cashier",
		Password: "cashier123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Username != "cashier" || resp.Role != "cashier" {
		t.Fatalf("unexpected login response: %+v", resp)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	if _, err := time.Parse(time.RFC3339, resp.ExpiresAt); err != nil {
		t.Fatalf("expires_at is not RFC3339: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "cashier" {
		t.Fatalf("expected subject cashier, got %s", actor.Username)
	}
	if actor.Role != "cashier" {
		t.Fatalf("expected role claim cashier, got %s", actor.Role)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	manager := newTestAuthManager()

	if _, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "wrong",
	}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestParseTokenRejectsTamperedSignature(t *testing.T) {
	manager := newTestAuthManager()

	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	parts := strings.Split(resp.AccessToken, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := manager.ParseToken(tampered); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}

	other := NewAuthManager("a-completely-different-secret", time.Hour, &verifierStub{})
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpiredToken(t *testing.T) {
	manager := newTestAuthManager()

	token, err := manager.sign("admin", "admin", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
