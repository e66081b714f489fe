// Package config loads service configuration from environment
// variables and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	ServiceName string `mapstructure:"SERVICE_NAME"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	KafkaBrokers       []string `mapstructure:"KAFKA_BROKERS"`
	KafkaConsumerGroup string   `mapstructure:"KAFKA_CONSUMER_GROUP"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	AlertWebhookURL string `mapstructure:"ALERT_WEBHOOK_URL"`
	AlertWorkers    int    `mapstructure:"ALERT_WORKERS"`

	OTLPEndpoint string  `mapstructure:"OTLP_ENDPOINT"`
	TraceSample  float64 `mapstructure:"TRACE_SAMPLE"`

	ShutdownGrace time.Duration `mapstructure:"SHUTDOWN_GRACE"`
}

// Load reads configuration from the environment, falling back to a
// .env file in the working directory when one exists.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVICE_NAME", "wardstock")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "alert-service")
	v.SetDefault("ALERT_WORKERS", 4)
	v.SetDefault("OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("TRACE_SAMPLE", 0.1)
	v.SetDefault("SHUTDOWN_GRACE", "15s")

	for _, key := range []string{
		"PORT", "ENV", "SERVICE_NAME",
		"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"KAFKA_BROKERS", "KAFKA_CONSUMER_GROUP",
		"JWT_SECRET",
		"ALERT_WEBHOOK_URL", "ALERT_WORKERS",
		"OTLP_ENDPOINT", "TRACE_SAMPLE",
		"SHUTDOWN_GRACE",
	} {
		v.BindEnv(key)
	}

	// A missing .env file is fine; the environment wins anyway.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Viper leaves comma-separated env values as a single string.
	if len(cfg.KafkaBrokers) <= 1 {
		if brokers := v.GetString("KAFKA_BROKERS"); brokers != "" {
			cfg.KafkaBrokers = strings.Split(brokers, ",")
		}
	}

	return cfg, nil
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Production
// refuses to start without a JWT secret or a database URL.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	if c.AlertWorkers < 1 {
		return fmt.Errorf("ALERT_WORKERS must be at least 1, got %d", c.AlertWorkers)
	}
	return nil
}
