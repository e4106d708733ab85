package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)

	cfg := Load(v)
	assert.Equal(t, ":3000", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "amqp", cfg.EventSource)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 1025, cfg.SMTPPort)
	assert.Equal(t, 10*time.Second, cfg.OutboxInterval)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", ":9999")
	t.Setenv("EVENT_SOURCE", "SQS")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	v, err := New("")
	require.NoError(t, err)

	cfg := Load(v)
	assert.Equal(t, ":9999", cfg.AppPort)
	assert.Equal(t, "sqs", cfg.EventSource)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "eshop.yaml")
	require.NoError(t, os.WriteFile(file, []byte("DATABASE_DRIVER: sqlite\nSMTP_PORT: 2525\n"), 0o600))

	v, err := New(file)
	require.NoError(t, err)

	cfg := Load(v)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 2525, cfg.SMTPPort)
}

func TestNewMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
