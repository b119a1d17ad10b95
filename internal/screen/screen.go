// Package screen tracks which displayed messages belong to which logical
// screen of a chat and replaces a screen's messages as a unit.
package screen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/core/metrics"
	"github.com/m3rciful/catalogbot/core/telegram/keyboard"
	"github.com/m3rciful/catalogbot/internal/store"
)

// Scopes in use.
const (
	Home  = "home"
	Shop  = "shop"
	Admin = "admin"
)

// Document is a local file sent as an attachment.
type Document struct {
	Path    string
	Name    string
	Caption string
}

// Messenger is the outbound transport.
type Messenger interface {
	SendText(ctx context.Context, chat int64, html string, kb keyboard.Rows) (int, error)
	SendPhoto(ctx context.Context, chat int64, fileID, caption string, kb keyboard.Rows) (int, error)
	SendGallery(ctx context.Context, chat int64, fileIDs []string) ([]int, error)
	SendDocument(ctx context.Context, chat int64, doc Document) (int, error)
	Delete(ctx context.Context, chat int64, messageID int) error
}

// Records persists chat screen records.
type Records interface {
	AddScreenRecord(ctx context.Context, chatID int64, scope string, messageID int) error
	ScreenRecords(ctx context.Context, chatID int64, scope string) ([]store.ScreenRecord, error)
	DeleteScreenRecords(ctx context.Context, ids []int64) error
}

// Content is one part of a screen. Gallery wins over Photo, Photo over Text;
// with a photo, Text is its caption. Galleries carry no keyboard.
type Content struct {
	Text     string
	Photo    string
	Gallery  []string
	Document *Document
	Keyboard keyboard.Rows
}

// Text is shorthand for a text message with a keyboard.
func Text(html string, kb keyboard.Rows) Content {
	return Content{Text: html, Keyboard: kb}
}

// Manager renders and clears scoped screens.
type Manager struct {
	msg     Messenger
	records Records
	log     *slog.Logger
}

// New builds a manager.
func New(msg Messenger, records Records) *Manager {
	return &Manager{msg: msg, records: records, log: logger.Component("screen")}
}

// Messenger exposes the transport for one-off sends outside any scope.
func (m *Manager) Messenger() Messenger { return m.msg }

// Render clears scope and sends contents in order, recording every sent
// message under scope. A send failure stops the render; messages sent
// before it stay recorded.
func (m *Manager) Render(ctx context.Context, chat int64, scope string, contents ...Content) ([]int, error) {
	if err := m.Clear(ctx, chat, scope); err != nil {
		return nil, err
	}
	return m.Append(ctx, chat, scope, contents...)
}

// Append sends contents into scope without clearing it first.
func (m *Manager) Append(ctx context.Context, chat int64, scope string, contents ...Content) ([]int, error) {
	var sent []int
	for _, c := range contents {
		ids, err := m.send(ctx, chat, c)
		for _, id := range ids {
			if rerr := m.Remember(ctx, chat, id, scope); rerr != nil {
				return sent, rerr
			}
			sent = append(sent, id)
		}
		if err != nil {
			return sent, fmt.Errorf("render %s: %w", scope, err)
		}
	}
	return sent, nil
}

func (m *Manager) send(ctx context.Context, chat int64, c Content) ([]int, error) {
	switch {
	case len(c.Gallery) > 0:
		return m.msg.SendGallery(ctx, chat, c.Gallery)
	case c.Document != nil:
		id, err := m.msg.SendDocument(ctx, chat, *c.Document)
		return single(id, err)
	case c.Photo != "":
		id, err := m.msg.SendPhoto(ctx, chat, c.Photo, c.Text, c.Keyboard)
		return single(id, err)
	default:
		id, err := m.msg.SendText(ctx, chat, c.Text, c.Keyboard)
		return single(id, err)
	}
}

func single(id int, err error) ([]int, error) {
	if err != nil {
		return nil, err
	}
	return []int{id}, nil
}

// Remember records messageID under scope.
func (m *Manager) Remember(ctx context.Context, chat int64, messageID int, scope string) error {
	if err := m.records.AddScreenRecord(ctx, chat, scope, messageID); err != nil {
		return fmt.Errorf("remember %s/%d: %w", scope, messageID, err)
	}
	return nil
}

// Clear deletes every message recorded for scope and drops the records.
// Transport failures are logged and ignored.
func (m *Manager) Clear(ctx context.Context, chat int64, scope string) error {
	if scope == "" {
		return fmt.Errorf("clear: empty scope")
	}
	return m.clear(ctx, chat, scope)
}

// ClearAll clears every scope of chat.
func (m *Manager) ClearAll(ctx context.Context, chat int64) error {
	return m.clear(ctx, chat, "")
}

func (m *Manager) clear(ctx context.Context, chat int64, scope string) error {
	recs, err := m.records.ScreenRecords(ctx, chat, scope)
	if err != nil {
		return fmt.Errorf("load screen %q: %w", scope, err)
	}
	if len(recs) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(recs))
	for _, r := range recs {
		m.Discard(ctx, chat, r.MessageID)
		ids = append(ids, r.ID)
	}
	if err := m.records.DeleteScreenRecords(ctx, ids); err != nil {
		return fmt.Errorf("drop screen %q: %w", scope, err)
	}
	m.log.DebugContext(ctx, "screen cleared",
		slog.String("event", "screen.clear"),
		slog.Int64("chat_id", chat),
		slog.String("scope", scope),
		slog.Int("messages", len(recs)),
	)
	return nil
}

// Discard deletes a message from the chat, logging instead of returning
// any failure.
func (m *Manager) Discard(ctx context.Context, chat int64, messageID int) {
	if err := m.msg.Delete(ctx, chat, messageID); err != nil {
		metrics.ScreenDeletes.WithLabelValues("fail").Inc()
		m.log.DebugContext(ctx, "delete ignored",
			slog.String("event", "screen.delete"),
			slog.Int64("chat_id", chat),
			slog.Int("message_id", messageID),
			slog.String("err", err.Error()),
		)
		return
	}
	metrics.ScreenDeletes.WithLabelValues("ok").Inc()
}
