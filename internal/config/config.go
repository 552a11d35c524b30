// Package config loads the process-wide configuration once at startup.
// The resulting struct, trust anchors included, is immutable afterwards.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv     string
	ListenAddr string

	// DatabaseURL empty selects the in-memory store (local runs).
	DatabaseURL string

	// Trust anchors for the inbound notification boundary.
	InstitutionAddr   string
	InstitutionSecret string
	// SandboxPassword gates the hidden test-mode override. Empty disables it.
	SandboxPassword string

	// UnitPrice is the fixed currency price of one dispensable unit.
	UnitPrice decimal.Decimal

	// KafkaBrokers empty disables event publishing.
	KafkaBrokers []string

	// Minio* empty endpoint disables receipt archival.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool
}

func Load() (*Config, error) {
	// A .env file is a convenience for local runs; absence is fine.
	godotenv.Load()

	cfg := &Config{
		AppEnv:            getenv("APP_ENV", "development"),
		ListenAddr:        getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		InstitutionAddr:   os.Getenv("INSTITUTION_ADDR"),
		InstitutionSecret: os.Getenv("INSTITUTION_SECRET"),
		SandboxPassword:   os.Getenv("SANDBOX_PASSWORD"),
		MinioEndpoint:     os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:       getenv("MINIO_BUCKET", "pix-receipts"),
		MinioSecure:       os.Getenv("MINIO_SECURE") == "true",
	}

	if cfg.InstitutionAddr == "" {
		return nil, fmt.Errorf("INSTITUTION_ADDR is not set")
	}
	if cfg.InstitutionSecret == "" {
		return nil, fmt.Errorf("INSTITUTION_SECRET is not set")
	}

	unitPrice, err := decimal.NewFromString(getenv("UNIT_PRICE", "0.50"))
	if err != nil {
		return nil, fmt.Errorf("invalid UNIT_PRICE: %w", err)
	}
	if unitPrice.Sign() <= 0 {
		return nil, fmt.Errorf("UNIT_PRICE must be positive")
	}
	cfg.UnitPrice = unitPrice

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
