package router

import (
	"log/slog"
	"strings"
	"time"

	tg "github.com/m3rciful/catalogbot/core/telegram"
	"github.com/m3rciful/catalogbot/core/telegram/callbacks"
	"github.com/m3rciful/catalogbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// ActionDispatcher executes an action token pressed by the user.
type ActionDispatcher interface {
	Dispatch(c tele.Context, token string) error
}

// CallbackOptions customises callback handling.
type CallbackOptions struct {
	// Classify maps a dispatch error to summary status and outcome, and
	// returns the error to propagate (nil to swallow). Nil keeps defaults.
	Classify func(err error) (status, outcome string, out error)
}

// CallbackRoute returns the single handler for all inline button presses.
// The callback is answered before dispatch so the client spinner stops even
// when rendering is slow.
func CallbackRoute(d ActionDispatcher, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}

		token := strings.TrimSpace(cb.Data)
		key := callbacks.Key(token)
		name := "callback." + handlerName(strings.ReplaceAll(key, callbacks.Sep, "."))

		_ = c.Respond()

		err := d.Dispatch(c, token)
		status, outcome := "", ""
		if err != nil && opts.Classify != nil {
			status, outcome, err = opts.Classify(err)
		}
		record(c, summary{
			Name:    name,
			Start:   start,
			Status:  status,
			Outcome: outcome,
			Err:     err,
			Extras:  []slog.Attr{slog.String("cb_key", key), slog.String("domain", callbacks.Domain(token))},
		})
		return err
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
