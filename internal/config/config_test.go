package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/wardstock")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("default env should be development")
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Errorf("KafkaBrokers = %v, want [localhost:9092]", cfg.KafkaBrokers)
	}
	if cfg.KafkaConsumerGroup != "alert-service" {
		t.Errorf("KafkaConsumerGroup = %q, want alert-service", cfg.KafkaConsumerGroup)
	}
	if cfg.DBMaxConns != 10 || cfg.DBMinConns != 2 {
		t.Errorf("pool bounds = (%d, %d), want (10, 2)", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.ShutdownGrace != 15*time.Second {
		t.Errorf("ShutdownGrace = %v, want 15s", cfg.ShutdownGrace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db:5432/wardstock")
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if len(cfg.KafkaBrokers) != 2 {
		t.Errorf("KafkaBrokers = %v, want two brokers", cfg.KafkaBrokers)
	}
}

func TestValidateRequiresDatabase(t *testing.T) {
	cfg := &Config{Env: "development", AlertWorkers: 4}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty DATABASE_URL")
	}
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	cfg := &Config{
		Env:          "production",
		DatabaseURL:  "postgres://localhost/wardstock",
		AlertWorkers: 4,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing JWT_SECRET in production")
	}
	cfg.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
