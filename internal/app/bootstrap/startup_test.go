package bootstrap

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	u := fx.CreateLeader(ctx, "Existing User", "existing@test.com")

	deps := DBDeps{MongoDatabase: db}
	if err := ensureAdmin(ctx, deps, "Existing@Test.com", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	got := fx.LoadUser(ctx, u.ID)
	if got.Role != models.RoleAdmin {
		t.Errorf("expected role %q, got %q", models.RoleAdmin, got.Role)
	}
}

func TestEnsureAdmin_MissingUserIsNotFatal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}
	if err := ensureAdmin(ctx, deps, "nobody@test.com", testLogger()); err != nil {
		t.Fatalf("expected nil error for missing user, got %v", err)
	}

	n, err := db.Collection(models.CollectionUsers).CountDocuments(ctx, map[string]any{})
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no users to be created, got %d", n)
	}
}

func TestPromoteAdmin_AlreadyAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	fx.CreateUser(ctx, "Admin", "admin@test.com", models.RoleAdmin)

	changed, err := PromoteAdmin(ctx, db, nil, "admin@test.com")
	if err != nil {
		t.Fatalf("PromoteAdmin failed: %v", err)
	}
	if changed {
		t.Error("expected no change for an existing admin")
	}
}

func TestPromoteAdmin_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := PromoteAdmin(ctx, db, nil, "ghost@test.com")
	if !errors.Is(err, ErrAdminUserNotFound) {
		t.Fatalf("expected ErrAdminUserNotFound, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	good := AppConfig{
		MongoURI:    "mongodb://localhost:27017",
		TokenSecret: strings.Repeat("x", minTokenSecret),
	}

	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", "prod", func(*AppConfig) {}, false},
		{"bad mongo uri", "prod", func(c *AppConfig) { c.MongoURI = "" }, true},
		{"missing token secret", "dev", func(c *AppConfig) { c.TokenSecret = "" }, true},
		{"short secret in prod", "prod", func(c *AppConfig) { c.TokenSecret = "short" }, true},
		{"short secret in dev", "dev", func(c *AppConfig) { c.TokenSecret = "short" }, false},
		{"bad redis url", "prod", func(c *AppConfig) { c.RedisURL = "http://not-redis" }, true},
		{"good redis url", "prod", func(c *AppConfig) { c.RedisURL = "redis://localhost:6379/0" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := good
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOriginHosts(t *testing.T) {
	if got := originHosts("https://app.youlead.test"); len(got) != 1 || got[0] != "app.youlead.test" {
		t.Errorf("originHosts = %v", got)
	}
	if got := originHosts("::bad"); got != nil {
		t.Errorf("expected nil for bad URL, got %v", got)
	}
}

func TestShutdown_NilDeps(t *testing.T) {
	if err := Shutdown(context.Background(), &config.CoreConfig{}, AppConfig{}, DBDeps{}, testLogger()); err != nil {
		t.Fatalf("Shutdown with empty deps: %v", err)
	}
}
