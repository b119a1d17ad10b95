package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/core/telegram/sender"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the queue used by Enqueue and the Send helpers; nil
// makes them call through inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// Enqueue hands fn to the installed dispatcher. A full or closed queue, or
// no dispatcher at all, runs fn inline instead of dropping it.
func Enqueue(ctx context.Context, action, endpoint string, fn func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return fn()
	}
	err := d.Enqueue(ctx, action, endpoint, fn)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return fn()
	}
	return err
}

// SendHTML queues an HTML notice to the update's chat.
func SendHTML(c tele.Context, html string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return Enqueue(BuildContext(c), "send.html", "sendMessage", func() error {
		return c.Send(html, opts)
	})
}
