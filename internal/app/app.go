package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/catalogbot/core/bootstrap"
	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/core/metrics"
	coretelegram "github.com/m3rciful/catalogbot/core/telegram"
	"github.com/m3rciful/catalogbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/catalogbot/core/telegram/helpers"
	"github.com/m3rciful/catalogbot/core/telegram/router"
	"github.com/m3rciful/catalogbot/core/telegram/sender"
	"github.com/m3rciful/catalogbot/core/telegram/state"
	"github.com/m3rciful/catalogbot/internal/access"
	"github.com/m3rciful/catalogbot/internal/input"
	"github.com/m3rciful/catalogbot/internal/menu"
	"github.com/m3rciful/catalogbot/internal/screen"
	"github.com/m3rciful/catalogbot/internal/store"
	"github.com/m3rciful/catalogbot/internal/transfer"
	"github.com/m3rciful/catalogbot/migrations"

	tele "gopkg.in/telebot.v4"
)

// Services are the parts of the application that need no Telegram
// connection; the CLI maintenance commands use them directly.
type Services struct {
	Config   *Config
	Store    *store.Store
	Transfer *transfer.Engine
	Access   *access.Resolver

	SentryEnabled bool
}

// Open runs the bootstrap pipeline (logger, error reporting, migrations,
// default settings) and builds the store.
func Open(ctx context.Context, cfg *Config) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: migrations.FS,
		Modules: bootstrap.Modules{
			Seeders: []bootstrap.Seeder{bootstrap.SeederFunc(store.SeedDefaults)},
		},
	})
	if err != nil {
		return nil, err
	}
	st := store.New(res.DB, cfg.Database, store.MigratingOpener(migrations.FS))
	return &Services{
		Config:        cfg,
		Store:         st,
		Transfer:      transfer.New(st, cfg.Backup),
		Access:        access.NewResolver(access.NewOwners(cfg.Telegram.OwnerIDs), st),
		SentryEnabled: res.SentryEnabled,
	}, nil
}

// Close releases the database.
func (s *Services) Close() error {
	return s.Store.Close()
}

// App is the running bot.
type App struct {
	*Services

	bot   *tele.Bot
	disp  *sender.Dispatcher
	slots state.Manager
	menu  *menu.Menu
}

// Bootstrap opens the services and builds the bot and its menu.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	svc, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	bot, err := coretelegram.NewBot(&cfg.Config, false)
	if err != nil {
		return nil, errors.Join(err, svc.Close())
	}
	disp := sender.NewDispatcher(sender.Options{
		QueueSize:    cfg.Sender.QueueSize,
		Workers:      cfg.Sender.Workers,
		MaxRetries:   cfg.Sender.MaxRetries,
		RetryBackoff: time.Duration(cfg.Sender.RetryBackoffMS) * time.Millisecond,
	})
	a, err := assemble(svc, bot, disp)
	if err != nil {
		disp.Close()
		return nil, errors.Join(err, svc.Close())
	}
	return a, nil
}

func assemble(svc *Services, bot *tele.Bot, disp *sender.Dispatcher) (*App, error) {
	slots := state.NewMemoryManager()
	scr := screen.New(&messenger{bot: bot, disp: disp}, svc.Store)
	mn, err := menu.New(menu.Deps{
		Store:     svc.Store,
		Access:    svc.Access,
		Screens:   scr,
		Input:     input.New(slots),
		Transfer:  svc.Transfer,
		UploadDir: svc.Config.Uploads.Dir,
	})
	if err != nil {
		return nil, err
	}
	return &App{Services: svc, bot: bot, disp: disp, slots: slots, menu: mn}, nil
}

// TelegramRunOptions wires commands, callbacks, free-form input and the
// background jobs.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     command(a.menu, (*menu.Menu).Start),
		Description: "Главный экран",
	})
	reg.RegisterCommand("/shop", commands.Command{
		Handler:     command(a.menu, (*menu.Menu).Shop),
		Description: "Витрина",
	})
	reg.RegisterCommand("/admin", commands.Command{
		Handler:     command(a.menu, (*menu.Menu).Admin),
		Description: "Панель управления",
		StaffOnly:   true,
	})

	isStaff := func(c tele.Context, userID int64) bool {
		return a.Access.IsStaff(tghelpers.BuildContext(c), userID)
	}
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		IsStaff: isStaff,
		OnStaffReject: func(c tele.Context) error {
			return tghelpers.SendHTML(c, "Нет доступа.")
		},
	})
	routes = append(routes, router.CallbackRoute(actions{menu: a.menu}, router.CallbackOptions{Classify: classify}))
	routes = append(routes, router.TextRoutes(inputs{menu: a.menu, bot: a.bot}, reg, router.TextOptions{})...)

	onLimited := func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Слишком часто, подождите."})
		}
		return nil
	}
	mws := append(coretelegram.DefaultMiddlewares(&a.Config.Config, onLimited), directory(a.Store))

	return coretelegram.RunOptions{
		Config:      &a.Config.Config,
		Registry:    reg,
		Bot:         a.bot,
		Dispatcher:  a.disp,
		Middlewares: mws,
		Routes:      routes,
		OnStart:     a.start,
	}, nil
}

func (a *App) start(ctx context.Context, rt coretelegram.Runtime) error {
	metrics.RegisterGauge("sender_queue_depth", "Outbound jobs waiting in the sender queue.", func() float64 {
		return float64(rt.Dispatcher.Depth())
	})
	metrics.RegisterGauge("sender_failed_calls", "Outbound calls that failed after retries since start.", func() float64 {
		return float64(rt.Dispatcher.ErrorCount())
	})
	metrics.RegisterGauge("pending_continuations", "Users with an armed reply continuation.", func() float64 {
		return float64(a.slots.Len())
	})
	go func() {
		if err := metrics.Serve(ctx, a.Config.Metrics.Listen); err != nil {
			logger.Warn(ctx, "metrics", "serve.failed", slog.String("err", err.Error()))
		}
	}()
	go a.Transfer.Schedule(ctx)
	logger.Info(ctx, "app", "catalog.ready",
		slog.Int("actions", len(a.menu.Patterns())),
		slog.Int("replies", a.menu.Replies()),
		slog.Int("owners", len(a.Config.Telegram.OwnerIDs)),
		slog.String("db", a.Config.Database.Target()),
		slog.Bool("sentry", a.SentryEnabled),
	)
	return nil
}
