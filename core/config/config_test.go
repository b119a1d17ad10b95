package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDList(t *testing.T) {
	ids, err := ParseIDList(" 10, 20;30 ;; ")
	require.NoError(t, err)
	assert.Equal(t, IDList{10, 20, 30}, ids)

	_, err = ParseIDList("10,abc")
	require.Error(t, err)
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "x", RunMode: "polling"}}
	cfg.RateLimit.ExcludeUpdates = []string{" Callback "}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, []string{"callback"}, cfg.RateLimit.ExcludeUpdates)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
}

func TestNormalizeRejects(t *testing.T) {
	require.Error(t, Normalize(&Config{}))
	require.Error(t, Normalize(&Config{Telegram: TelegramConfig{Token: "x", RunMode: "smoke"}}))
	require.Error(t, Normalize(&Config{Telegram: TelegramConfig{Token: "x", RunMode: RunModeWebhook}}))

	cfg := &Config{Telegram: TelegramConfig{Token: "x"}}
	cfg.RateLimit.ExcludeUpdates = []string{"edited"}
	require.Error(t, Normalize(cfg))
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := "telegram:\n  token: from-yaml\n  owner_ids: [1, 2]\nlogging:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("ADMIN_IDS", "7;8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, IDList{7, 8}, cfg.Telegram.OwnerIDs)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}
