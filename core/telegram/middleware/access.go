package middleware

import (
	"log/slog"

	"github.com/m3rciful/catalogbot/core/logger"
	tghelpers "github.com/m3rciful/catalogbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// StaffOptions defines how staff-only checks behave. IsStaff must fail
// closed: any lookup error counts as "not staff".
type StaffOptions struct {
	IsStaff  func(c tele.Context, userID int64) bool
	OnReject tele.HandlerFunc
}

// StaffOnlyMiddleware lets only owners and editors reach downstream handlers.
func StaffOnlyMiddleware(opts StaffOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.IsStaff == nil {
				return next(c)
			}
			user := c.Sender()
			if user != nil && opts.IsStaff(c, user.ID) {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			logger.Debug(ctx, "tg", "access.reject",
				slog.String("status", "skip"),
				slog.String("outcome", "denied"),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
