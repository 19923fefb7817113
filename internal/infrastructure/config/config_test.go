package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestProcess_Defaults(t *testing.T) {
	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.Mongo.Database != "sos_engine" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Hub.ChatRPS != 5 || cfg.Hub.ChatBurst != 10 {
		t.Fatalf("unexpected chat limits: %+v", cfg.Hub)
	}
	if cfg.OpTimeout != 5*time.Second || cfg.Hub.SendBuffer != 64 {
		t.Fatalf("unexpected tuning defaults: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestProcess_Overrides(t *testing.T) {
	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":            "9090",
		"ALLOWED_ORIGINS": "https://a.example,https://b.example",
		"GUIDANCE_URL":    "http://guide",
		"CHAT_WORKERS":    "2",
		"HUB_CHAT_RPS":    "0.5",
		"HUB_CHAT_BURST":  "3",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" || cfg.Guidance.URL != "http://guide" || cfg.Hub.ChatWorkers != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Hub.ChatRPS != 0.5 || cfg.Hub.ChatBurst != 3 {
		t.Fatalf("chat limits not applied: %+v", cfg.Hub)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.AllowedOrigins)
	}
}

func TestProcess_ProductionRequiresSecret(t *testing.T) {
	_, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{"ENV": "production"}))
	if err == nil {
		t.Fatal("expected error without JWT_SECRET in production")
	}
}

func TestProcess_RejectsNonPositiveChatLimits(t *testing.T) {
	_, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{"HUB_CHAT_BURST": "0"}))
	if err == nil {
		t.Fatal("expected error for HUB_CHAT_BURST=0")
	}
}
