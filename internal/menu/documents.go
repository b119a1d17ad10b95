package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/m3rciful/catalogbot/core/telegram/format"
	"github.com/m3rciful/catalogbot/internal/transfer"
)

// Upload is a document received in a chat. Fetch downloads it to dst.
type Upload struct {
	Request
	FileName string
	Size     int64
	Fetch    func(ctx context.Context, dst string) error
}

// Upload imports a .json document or restores a .db file sent by an owner.
// It reports false for anyone else so the document falls through.
func (m *Menu) Upload(ctx context.Context, up Upload) (bool, error) {
	if !m.acc.IsOwner(up.User) || up.Fetch == nil {
		return false, nil
	}
	ext := strings.ToLower(filepath.Ext(up.FileName))
	if ext != ".json" && ext != ".db" {
		return true, m.notice(ctx, up.Request, "Поддерживаются файлы .json и .db.")
	}
	if err := os.MkdirAll(m.uploads, 0o750); err != nil {
		return true, err
	}
	staged := filepath.Join(m.uploads, uuid.NewString()+"-"+safeName(up.FileName))
	defer func() {
		if err := os.Remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.log.WarnContext(ctx, "staged upload not removed",
				slog.String("event", "menu.upload"),
				slog.String("path", staged),
				slog.String("err", err.Error()),
			)
		}
	}()
	if err := up.Fetch(ctx, staged); err != nil {
		return true, m.notice(ctx, up.Request, "Ошибка: "+format.EscapeHTML(err.Error()))
	}

	var text string
	if ext == ".json" {
		text = m.importJSON(ctx, staged)
	} else {
		text = m.restoreDB(ctx, staged)
	}
	m.log.InfoContext(ctx, "upload processed",
		slog.String("event", "menu.upload"),
		slog.String("ext", ext),
		slog.Int64("bytes", up.Size),
	)
	return true, m.notice(ctx, up.Request, text)
}

func (m *Menu) importJSON(ctx context.Context, path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "Ошибка: " + format.EscapeHTML(err.Error())
	}
	defer f.Close()
	doc, err := transfer.ParseDocument(f)
	if err != nil {
		return "Неверный JSON.\n" + format.EscapeHTML(err.Error())
	}
	stats, err := m.xfer.Import(ctx, doc)
	if err != nil {
		return "Ошибка: " + format.EscapeHTML(err.Error())
	}
	return "Импорт JSON завершён.\n" + stats.String()
}

func (m *Menu) restoreDB(ctx context.Context, path string) string {
	backup, err := m.xfer.Replace(ctx, path)
	switch {
	case errors.Is(err, transfer.ErrUnsupported):
		return unsupportedText
	case errors.Is(err, transfer.ErrMalformed):
		return "Файл не похож на базу SQLite."
	case err != nil:
		return "Ошибка: " + format.EscapeHTML(err.Error())
	}
	return fmt.Sprintf("База .db заменена.\nПредыдущая сохранена как %s.", format.EscapeHTML(backup.Name()))
}

// safeName keeps letters, digits, dots, dashes and underscores of the base name.
func safeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "upload"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
