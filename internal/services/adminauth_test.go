package services

import (
	"context"
	"testing"
	"time"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/repos"
)

func newAdminAuthFixture(t *testing.T, ttl time.Duration) AdminAuthService {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)
	return NewAdminAuthService(db, log, repos.NewAdminRepo(db, log), "test-admin-secret", ttl)
}

func TestAdminAuth_SignupLoginParseRoundTrip(t *testing.T) {
	svc := newAdminAuthFixture(t, time.Hour)
	ctx := context.Background()

	admin, err := svc.Signup(ctx, "Ops@Example.com", "hunter2hunter2", "Ops")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if admin.Email != "ops@example.com" {
		t.Fatalf("expected normalized email, got %q", admin.Email)
	}
	if admin.PasswordHash == "hunter2hunter2" {
		t.Fatalf("password stored in cleartext")
	}

	token, expiresAt, err := svc.Login(ctx, "ops@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || !expiresAt.After(time.Now()) {
		t.Fatalf("expected a future-dated session token")
	}

	parsed, err := svc.ParseSessionToken(ctx, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.ID != admin.ID {
		t.Fatalf("expected admin %s, got %s", admin.ID, parsed.ID)
	}
}

func TestAdminAuth_WrongPassword(t *testing.T) {
	svc := newAdminAuthFixture(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "ops@example.com", "hunter2hunter2", "Ops"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, _, err := svc.Login(ctx, "ops@example.com", "wrong-password")
	if !apierr.Is(err, apierr.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestAdminAuth_UnknownEmail(t *testing.T) {
	svc := newAdminAuthFixture(t, time.Hour)

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever123")
	if !apierr.Is(err, apierr.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestAdminAuth_DuplicateSignup(t *testing.T) {
	svc := newAdminAuthFixture(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "ops@example.com", "hunter2hunter2", "Ops"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, err := svc.Signup(ctx, "ops@example.com", "hunter2hunter2", "Ops Again")
	if !apierr.Is(err, apierr.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestAdminAuth_ShortPassword(t *testing.T) {
	svc := newAdminAuthFixture(t, time.Hour)

	_, err := svc.Signup(context.Background(), "ops@example.com", "short", "Ops")
	if !apierr.Is(err, apierr.CodeBadRequest) {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
}

func TestAdminAuth_ExpiredSessionRejected(t *testing.T) {
	svc := newAdminAuthFixture(t, -time.Minute)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "ops@example.com", "hunter2hunter2", "Ops"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	token, _, err := svc.Login(ctx, "ops@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	_, err = svc.ParseSessionToken(ctx, token)
	if !apierr.Is(err, apierr.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED for expired token, got %v", err)
	}
}
