package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"github.com/getsentry/sentry-go"

	"github.com/m3rciful/catalogbot/core/logger"
	tghelpers "github.com/m3rciful/catalogbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware catches panics in handlers, reports them to Sentry when
// configured and keeps the bot running.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := tghelpers.BuildContext(c)
			logger.TG.Error("panic recovered",
				slog.String("event", "tg.panic"),
				slog.String("rid", logger.RIDFrom(ctx)),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				if user := c.Sender(); user != nil {
					scope.SetUser(sentry.User{ID: strconv.FormatInt(user.ID, 10), Username: user.Username})
				}
				scope.SetTag("rid", logger.RIDFrom(ctx))
				scope.SetTag("handler", logger.HandlerFrom(ctx))
			})
			hub.RecoverWithContext(ctx, r)
			err = fmt.Errorf("panic: %v", r)
		}()
		return next(c)
	}
}
