package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresTrustAnchors(t *testing.T) {
	t.Setenv("INSTITUTION_ADDR", "")
	t.Setenv("INSTITUTION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INSTITUTION_ADDR", "198.51.100.7")
	t.Setenv("INSTITUTION_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.True(t, cfg.UnitPrice.Equal(decimal.RequireFromString("0.50")))
	require.Empty(t, cfg.KafkaBrokers)
}

func TestLoadRejectsBadUnitPrice(t *testing.T) {
	t.Setenv("INSTITUTION_ADDR", "198.51.100.7")
	t.Setenv("INSTITUTION_SECRET", "s3cret")

	t.Setenv("UNIT_PRICE", "free")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("UNIT_PRICE", "-1")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadSplitsKafkaBrokers(t *testing.T) {
	t.Setenv("INSTITUTION_ADDR", "198.51.100.7")
	t.Setenv("INSTITUTION_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}
