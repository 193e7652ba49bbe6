package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newTestAuthService(t *testing.T) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	mr, rdb := newTestRedis(t)
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4,
	}
	return NewAuthService(cfg, rdb), mr
}

func TestStudentTokenCarriesClass(t *testing.T) {
	auth, _ := newTestAuthService(t)

	token, err := auth.GenerateStudentToken(context.Background(), 7, model.ClassJSS2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.TokenType != TokenTypeStudent || claims.UserID != 7 || claims.Class != model.ClassJSS2 {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestStudentSingleDeviceSession(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	token, err := auth.GenerateStudentToken(ctx, 7, model.ClassJSS2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := auth.GenerateStudentToken(ctx, 7, model.ClassJSS2); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("expected ErrSessionAlreadyActive, got %v", err)
	}

	claims, _ := auth.ValidateToken(token)
	if err := auth.ValidateStudentSession(ctx, 7, claims.ID); err != nil {
		t.Fatalf("session should be valid: %v", err)
	}

	if err := auth.ResetStudentSession(ctx, 7); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := auth.ValidateStudentSession(ctx, 7, claims.ID); err == nil {
		t.Fatalf("session should be gone after reset")
	}
	if _, err := auth.GenerateStudentToken(ctx, 7, model.ClassJSS2); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func TestAdminTokenCarriesRolePermissions(t *testing.T) {
	auth, _ := newTestAuthService(t)

	token, err := auth.GenerateAdminToken(3, model.AdminRoleTeacher)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Role != model.AdminRoleTeacher {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if slices.Contains(claims.Permissions, string(model.PermissionLiveControl)) {
		t.Fatalf("teachers must not control live exams")
	}
	if !slices.Contains(claims.Permissions, string(model.PermissionResultsWrite)) {
		t.Fatalf("teachers should enter results")
	}
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	auth, _ := newTestAuthService(t)
	other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour}, nil)

	token, err := other.GenerateAdminToken(1, model.AdminRoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := auth.ValidateToken(token); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestPasswordHashing(t *testing.T) {
	auth, _ := newTestAuthService(t)

	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := auth.CheckPassword(hash, "s3cret"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := auth.CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
