package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homework_notifier/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PRACTICUM_TOKEN", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", PathEnv} {
		t.Setenv(key, "")
	}
}

func TestLoad_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_PRACTICUM_TOKEN", "p-token")

	path := writeConfig(t, `
practicum:
  token: ${TEST_PRACTICUM_TOKEN}
telegram:
  token: t-token
  chat_id: "12345"
poll:
  interval: 10m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "p-token", cfg.Practicum.Token)
	assert.Equal(t, "https://praktikum.yandex.ru/api", cfg.Practicum.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Practicum.Timeout)
	assert.Equal(t, 3, cfg.Practicum.Retry.MaxAttempts)
	assert.Equal(t, "12345", cfg.Telegram.ChatID)
	assert.Equal(t, "https://api.telegram.org/bot%s/%s", cfg.Telegram.Endpoint)
	assert.Equal(t, 10*time.Minute, cfg.Poll.Interval)
	assert.Equal(t, 5*time.Second, cfg.Poll.ErrorBackoff)
	assert.Equal(t, 2*time.Minute, cfg.Poll.CycleTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.RabbitMQ.Enabled())
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRACTICUM_TOKEN", "p-token")
	t.Setenv("TELEGRAM_TOKEN", "t-token")
	t.Setenv("TELEGRAM_CHAT_ID", "@channel")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "p-token", cfg.Practicum.Token)
	assert.Equal(t, "t-token", cfg.Telegram.Token)
	assert.Equal(t, "@channel", cfg.Telegram.ChatID)
	assert.Equal(t, 5*time.Minute, cfg.Poll.Interval)
}

func TestLoad_MissingCredentials(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "practicum")
}

func TestLoad_MissingChatID(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
practicum:
  token: p
telegram:
  token: t
`)

	_, err := Load(path)

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "telegram")
}

func TestLoad_BackoffMustBeShorterThanInterval(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
practicum:
  token: p
telegram:
  token: t
  chat_id: "1"
poll:
  interval: 5s
  error_backoff: 10s
`)

	_, err := Load(path)

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "error_backoff")
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "practicum: [unclosed"))

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoad_DatabaseEnabledRequiresUser(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
practicum:
  token: p
telegram:
  token: t
  chat_id: "1"
database:
  host: localhost
  dbname: notifier
`)

	_, err := Load(path)

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "database")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())
	assert.True(t, d.Enabled())
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(PathEnv, "")
	assert.Equal(t, DefaultPath, PathFromEnv())

	t.Setenv(PathEnv, "/etc/notifier.yaml")
	assert.Equal(t, "/etc/notifier.yaml", PathFromEnv())
}
