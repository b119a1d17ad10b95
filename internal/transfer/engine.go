package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adhocore/gronx"

	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/core/metrics"
	"github.com/m3rciful/catalogbot/internal/store"
)

// Config controls backups.
type Config struct {
	Dir  string `yaml:"dir" envconfig:"BACKUP_DIR"`
	Keep int    `yaml:"keep" envconfig:"BACKUP_KEEP"`
	// Schedule is a cron expression for periodic backups; empty disables.
	Schedule string `yaml:"schedule" envconfig:"BACKUP_SCHEDULE"`
}

// Normalize fills defaults and validates the schedule.
func (c *Config) Normalize() error {
	c.Dir = strings.TrimSpace(c.Dir)
	if c.Dir == "" {
		c.Dir = "backups"
	}
	if c.Keep <= 0 {
		c.Keep = 20
	}
	c.Schedule = strings.TrimSpace(c.Schedule)
	if c.Schedule != "" && !gronx.IsValid(c.Schedule) {
		return fmt.Errorf("invalid backup.schedule %q", c.Schedule)
	}
	return nil
}

// Engine runs transfers against one store.
type Engine struct {
	st  *store.Store
	cfg Config
	now func() time.Time
	log *slog.Logger
}

// New builds an engine. cfg is normalized; an invalid schedule is dropped.
func New(st *store.Store, cfg Config) *Engine {
	if err := cfg.Normalize(); err != nil {
		cfg.Schedule = ""
	}
	return &Engine{st: st, cfg: cfg, now: time.Now, log: logger.Component("transfer")}
}

// Config returns the normalized configuration.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) observe(ctx context.Context, op string, start time.Time, err error, attrs ...slog.Attr) {
	outcome := "ok"
	level := slog.LevelInfo
	if err != nil {
		outcome = "fail"
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	metrics.Transfers.WithLabelValues(op, outcome).Inc()
	attrs = append([]slog.Attr{
		slog.String("event", "transfer."+op),
		slog.String("outcome", outcome),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}, attrs...)
	e.log.LogAttrs(ctx, level, op, attrs...)
}
