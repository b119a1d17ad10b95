package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/catalogbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers the last few update ids so an update routed through
// more than one middleware branch is logged once.
type seenUpdates struct {
	mu   sync.Mutex
	ring [64]int
	next int
}

func (s *seenUpdates) mark(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.ring {
		if v == id {
			return false
		}
	}
	s.ring[s.next] = id
	s.next = (s.next + 1) % len(s.ring)
	return true
}

var received seenUpdates

// LoggerMiddleware binds the request id and update metadata to the handler
// context and logs a sampled update.received line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		var chatID, userID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithRID(logger.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() && received.mark(upd.ID) {
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", describe(c)...)
		}
		return next(c)
	}
}

// describe summarises the update without message bodies; staff replies can
// carry contact details and links.
func describe(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if user := c.Sender(); user != nil && user.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
	}
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		data := strings.TrimSpace(upd.Callback.Data)
		attrs = append(attrs,
			slog.String("kind", "callback"),
			slog.String("domain", callbacks.Domain(data)),
			slog.String("cb_key", logger.SanitizeLimit(callbacks.Key(data), 128)),
		)
	case upd.Message != nil:
		m := upd.Message
		switch {
		case m.Document != nil:
			attrs = append(attrs,
				slog.String("kind", "document"),
				slog.String("file_name", logger.SanitizeLimit(m.Document.FileName, 128)),
				slog.Int64("file_size", int64(m.Document.FileSize)),
			)
		case m.Photo != nil:
			attrs = append(attrs, slog.String("kind", "photo"))
		case strings.HasPrefix(m.Text, "/"):
			cmd, _, _ := strings.Cut(m.Text, " ")
			attrs = append(attrs, slog.String("kind", "command"), slog.String("command", logger.SanitizeLimit(cmd, 64)))
		default:
			attrs = append(attrs, slog.String("kind", "text"), slog.Int("text_len", len([]rune(m.Text))))
		}
	}
	return attrs
}
