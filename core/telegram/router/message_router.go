package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/catalogbot/core/telegram"
	"github.com/m3rciful/catalogbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Input consumes free-form messages for a pending continuation. Each method
// reports whether the message was handled.
type Input interface {
	OnText(c tele.Context) (bool, error)
	OnPhoto(c tele.Context) (bool, error)
	OnDocument(c tele.Context) (bool, error)
}

// TextOptions controls fallback behaviour for text/photo/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownPhoto    tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for free-form messages: the pending
// continuation gets the first look at plain text, then commands typed as
// text, then the fallbacks.
func TextRoutes(in Input, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		// slash commands never feed a continuation
		if in != nil && !isCommand(text) {
			var handled bool
			err := handleIf(c, "input.text", start, &handled, in.OnText)
			if handled || err != nil {
				return err
			}
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.StaffOnly {
				return run(c, handlerName(key), start, cmd.Handler)
			}
		}

		if opts.UnknownText != nil {
			return run(c, "unknown_text", start, opts.UnknownText)
		}

		record(c, summary{Name: "unknown_text", Start: start, Status: "skip", Outcome: "ok"})
		return nil
	}

	photoHandler := mediaHandler("photo", opts.UnknownPhoto, func(c tele.Context) (bool, error) {
		if in == nil {
			return false, nil
		}
		return in.OnPhoto(c)
	})
	docHandler := mediaHandler("document", opts.UnknownDocument, func(c tele.Context) (bool, error) {
		if in == nil {
			return false, nil
		}
		return in.OnDocument(c)
	})

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(handler)},
		{Endpoint: tele.OnPhoto, Handler: wrap(photoHandler)},
		{Endpoint: tele.OnDocument, Handler: wrap(docHandler)},
	}
}

func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

func mediaHandler(kind string, unknown tele.HandlerFunc, consume func(tele.Context) (bool, error)) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		var handled bool
		err := handleIf(c, "input."+kind, start, &handled, consume)
		if handled || err != nil {
			return err
		}
		if unknown != nil {
			return run(c, "unexpected_"+kind, start, unknown)
		}
		record(c, summary{Name: "unexpected_" + kind, Start: start, Status: "skip", Outcome: "ok"})
		return nil
	}
}

// handleIf runs consume and logs a summary only when it handled the update.
func handleIf(c tele.Context, name string, start time.Time, handled *bool, consume func(tele.Context) (bool, error)) error {
	ok, err := consume(c)
	*handled = ok
	if ok || err != nil {
		record(c, summary{Name: name, Start: start, Err: err})
	}
	return err
}
