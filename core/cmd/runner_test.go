package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/catalogbot/core/config"
	coretelegram "github.com/m3rciful/catalogbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct{ closed bool }

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CATALOG_CFG", "/env.yaml")
	p, err := ResolveConfigPath("/flag.yaml", "CATALOG_CFG", "/def.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/flag.yaml", p)

	p, err = ResolveConfigPath("", "CATALOG_CFG", "/def.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/env.yaml", p)

	t.Setenv("CATALOG_CFG", "")
	p, err = ResolveConfigPath("", "CATALOG_CFG", "/def.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/def.yaml", p)

	_, err = ResolveConfigPath("", "CATALOG_CFG", "")
	require.Error(t, err)
}

func TestRunWiresHooksAndCloses(t *testing.T) {
	app := &fakeApp{}
	var started, stopped bool
	err := Run(context.Background(), Options{
		ConfigPath: "cfg.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return app, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			started = opts.OnStart(ctx, coretelegram.Runtime{}) == nil
			stopped = opts.OnStop(ctx, coretelegram.Runtime{}) == nil
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, stopped)
	assert.True(t, app.closed)
}

func TestRunBootstrapError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), Options{
		ConfigPath: "cfg.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return nil, boom
		},
	})
	require.ErrorIs(t, err, boom)
}
