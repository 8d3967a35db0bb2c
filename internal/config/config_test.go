package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHAT_PAGE_SIZE", "")
	t.Setenv("NOTIFICATION_RETENTION", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chat.DefaultPageSize != 50 {
		t.Errorf("expected default page size 50, got %d", cfg.Chat.DefaultPageSize)
	}
	if cfg.Notification.Retention != 30*24*time.Hour {
		t.Errorf("expected 30 day retention, got %v", cfg.Notification.Retention)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("CHAT_PAGE_SIZE", "25")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected production env")
	}
	if cfg.Chat.DefaultPageSize != 25 {
		t.Errorf("expected page size 25, got %d", cfg.Chat.DefaultPageSize)
	}
	if cfg.Database.AutoMigrate {
		t.Error("expected auto migrate disabled")
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
}
