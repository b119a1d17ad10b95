package transfer

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// Schedule runs Backup on every tick of the configured cron expression
// until ctx ends. It returns immediately when no schedule is set.
func (e *Engine) Schedule(ctx context.Context) {
	expr := e.cfg.Schedule
	if expr == "" {
		return
	}
	e.log.InfoContext(ctx, "backup schedule started",
		slog.String("event", "transfer.schedule"),
		slog.String("cron", expr),
	)
	for {
		next, err := gronx.NextTickAfter(expr, e.now(), false)
		wait := time.Until(next)
		if err != nil {
			e.log.WarnContext(ctx, "next tick failed",
				slog.String("event", "transfer.schedule"),
				slog.String("err", err.Error()),
			)
			wait = time.Minute
		}
		timer := time.NewTimer(max(wait, time.Second))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if err == nil {
			_, _ = e.Backup(ctx)
		}
	}
}
