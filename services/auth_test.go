package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/voxhire/backend/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	repo := repository.NewGORMRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewAuthService(repo, "test-secret")
}

func TestSignupAndLogin(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	signup, err := auth.Signup(ctx, "candidate@example.com", "password123", "Test Candidate")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if signup.User.ID == "" {
		t.Error("signup should assign a user id")
	}
	if signup.User.Password == "password123" {
		t.Error("password must be stored hashed")
	}
	if signup.AccessToken == "" || signup.RefreshToken == "" {
		t.Error("signup should issue both tokens")
	}

	login, err := auth.Login(ctx, "candidate@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if login.User.ID != signup.User.ID {
		t.Error("login returned a different user")
	}

	if _, err := auth.Login(ctx, "candidate@example.com", "wrong-password"); err == nil {
		t.Error("wrong password should fail")
	}
	if _, err := auth.Login(ctx, "nobody@example.com", "password123"); err == nil {
		t.Error("unknown email should fail")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.Signup(ctx, "candidate@example.com", "password123", "First"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := auth.Signup(ctx, "candidate@example.com", "other-password", "Second"); err == nil {
		t.Error("duplicate email should be rejected")
	}
}

func TestRefreshToken(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	signup, err := auth.Signup(ctx, "candidate@example.com", "password123", "Test Candidate")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	refreshed, err := auth.RefreshToken(ctx, signup.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("refresh should issue a new access token")
	}
	if refreshed.User.ID != signup.User.ID {
		t.Error("refresh returned a different user")
	}

	if _, err := auth.RefreshToken(ctx, "bogus-token"); err == nil {
		t.Error("unknown refresh token should fail")
	}
}

func TestVerifyAccessToken(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	signup, err := auth.Signup(ctx, "candidate@example.com", "password123", "Test Candidate")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	user, err := auth.VerifyAccessToken(ctx, signup.AccessToken)
	if err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if user.Email != "candidate@example.com" {
		t.Errorf("verified user email = %q", user.Email)
	}

	if _, err := auth.VerifyAccessToken(ctx, signup.AccessToken+"tampered"); err == nil {
		t.Error("tampered token should fail verification")
	}
	if _, err := auth.VerifyAccessToken(ctx, "not-a-jwt"); err == nil {
		t.Error("garbage token should fail verification")
	}
}

func TestLogoutInvalidatesRefreshTokens(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	signup, err := auth.Signup(ctx, "candidate@example.com", "password123", "Test Candidate")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	if err := auth.Logout(ctx, signup.User.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := auth.RefreshToken(ctx, signup.RefreshToken); err == nil {
		t.Error("refresh token should be dead after logout")
	}
}
