package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/catalogbot/core/config"
	coredatabase "github.com/m3rciful/catalogbot/core/database"
	coretelegram "github.com/m3rciful/catalogbot/core/telegram"
	"github.com/m3rciful/catalogbot/core/telegram/sender"
	"github.com/m3rciful/catalogbot/internal/access"
	"github.com/m3rciful/catalogbot/internal/menu"
	"github.com/m3rciful/catalogbot/internal/store/storetest"
	"github.com/m3rciful/catalogbot/internal/transfer"

	tele "gopkg.in/telebot.v4"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: yaml-token
  owner_ids: [1, 2]
database:
  path: data/catalog.db
backup:
  keep: 5
  schedule: "0 3 * * *"
`)
	t.Setenv("UPLOADS_DIR", "/tmp/up")
	t.Setenv("BACKUP_DIR", "/var/backups/catalog")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml-token", cfg.Telegram.Token)
	assert.Equal(t, coreconfig.IDList{1, 2}, cfg.Telegram.OwnerIDs)
	assert.Equal(t, coredatabase.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/catalog.db", cfg.Database.Path)
	assert.Equal(t, transfer.Config{Dir: "/var/backups/catalog", Keep: 5, Schedule: "0 3 * * *"}, cfg.Backup)
	assert.Equal(t, "/tmp/up", cfg.Uploads.Dir)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadConfigRejects(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "telegram:\n  token: x\n"))
	require.Error(t, err, "no owners")

	_, err = LoadConfig(writeConfig(t, "telegram:\n  token: x\n  owner_ids: [1]\nbackup:\n  schedule: never\n"))
	require.Error(t, err, "bad cron")

	_, err = LoadConfig(writeConfig(t, "telegram:\n  token: x\n  owner_ids: [1]\ndatabase:\n  driver: mysql\n"))
	require.Error(t, err, "unknown driver")
}

func TestClassify(t *testing.T) {
	status, outcome, err := classify(errors.Join(menu.ErrUnknownAction, errors.New("x")))
	assert.Equal(t, "skip", status)
	assert.Equal(t, "unknown", outcome)
	assert.NoError(t, err)

	status, outcome, err = classify(menu.ErrDenied)
	assert.Equal(t, "skip", status)
	assert.Equal(t, "denied", outcome)
	assert.NoError(t, err)

	boom := errors.New("boom")
	_, _, err = classify(boom)
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, quiet(menu.ErrDenied))
	assert.ErrorIs(t, quiet(boom), boom)
}

func TestRunOptionsWiring(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.OwnerIDs = coreconfig.IDList{1}
	cfg.Database.Driver = coredatabase.DriverSQLite
	require.NoError(t, cfg.Normalize())

	st := storetest.New(t)
	svc := &Services{
		Config:   cfg,
		Store:    st,
		Transfer: transfer.New(st, transfer.Config{Dir: t.TempDir()}),
		Access:   access.NewResolver(access.NewOwners(cfg.Telegram.OwnerIDs), st),
	}
	bot, err := coretelegram.NewBot(&cfg.Config, true)
	require.NoError(t, err)
	disp := sender.NewDispatcher(sender.Options{})
	t.Cleanup(disp.Close)

	a, err := assemble(svc, bot, disp)
	require.NoError(t, err)
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)

	_, admin, ok := opts.Registry.LookupCommand("/admin")
	require.True(t, ok)
	assert.True(t, admin.StaffOnly)
	_, _, ok = opts.Registry.LookupCommand("/start")
	assert.True(t, ok)

	endpoints := map[any]bool{}
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	for _, e := range []any{tele.OnCallback, tele.OnText, tele.OnPhoto, tele.OnDocument, "/start", "/shop", "/admin"} {
		assert.True(t, endpoints[e], e)
	}
	assert.Same(t, disp, opts.Dispatcher)

	var names []string
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	assert.Contains(t, names, "directory")
	assert.Contains(t, names, "recover")
}
