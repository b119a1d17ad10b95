package router

import (
	"cmp"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/m3rciful/catalogbot/core/logger"
	tghelpers "github.com/m3rciful/catalogbot/core/telegram/helpers"
	"github.com/m3rciful/catalogbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary is the handler.handled line written once per routed update.
// Empty Status and Outcome are derived from Err.
type summary struct {
	Name    string
	Start   time.Time
	Status  string
	Outcome string
	Err     error
	Extras  []slog.Attr
}

// run executes h under name and records its summary.
func run(c tele.Context, name string, start time.Time, h tele.HandlerFunc) error {
	tghelpers.WithHandler(c, name)
	err := h(c)
	record(c, summary{Name: name, Start: start, Err: err})
	return err
}

func record(c tele.Context, s summary) {
	ctx := tghelpers.WithHandler(c, s.Name)
	msgs, kb := middleware.GetCounters(c)

	derived := "ok"
	if s.Err != nil {
		derived = "fail"
	}
	attrs := []slog.Attr{
		slog.String("status", cmp.Or(s.Status, derived)),
		slog.String("handler", s.Name),
		slog.String("outcome", cmp.Or(s.Outcome, derived)),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(s.Start)),
	}
	if s.Err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(s.Err.Error(), 256)),
			slog.String("err_code", errorCode(s.Err)),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", append(attrs, s.Extras...)...)
}

// handlerName lower-cases a command or callback key into a log name.
func handlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// errorCode names the root cause of err. Errors with a Code method use it;
// plain sentinel errors are named after their message, so "store: not
// found" becomes STORE_NOT_FOUND; anything else after its type.
func errorCode(err error) string {
	root := err
	for {
		if multi, ok := root.(interface{ Unwrap() []error }); ok {
			if errs := multi.Unwrap(); len(errs) > 0 {
				root = errs[0]
				continue
			}
		}
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	if c, ok := root.(interface{ Code() string }); ok && strings.TrimSpace(c.Code()) != "" {
		return upperSnake(c.Code())
	}
	t := reflect.TypeOf(root)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "UNKNOWN_ERROR"
	}
	if t.Name() == "errorString" {
		return upperSnake(root.Error())
	}
	return upperSnake(t.Name())
}

// upperSnake turns a message or CamelCase name into UPPER_SNAKE, capped at
// 48 bytes.
func upperSnake(s string) string {
	var b strings.Builder
	gap, lower := false, false
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			gap, lower = true, false
			continue
		}
		if b.Len() > 0 && (gap || (lower && unicode.IsUpper(r))) {
			b.WriteByte('_')
		}
		gap, lower = false, unicode.IsLower(r)
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() >= 48 {
			break
		}
	}
	if b.Len() == 0 {
		return "UNKNOWN_ERROR"
	}
	return b.String()
}
