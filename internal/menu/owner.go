package menu

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/m3rciful/catalogbot/core/telegram/callbacks"
	"github.com/m3rciful/catalogbot/core/telegram/format"
	"github.com/m3rciful/catalogbot/core/telegram/keyboard"
	"github.com/m3rciful/catalogbot/internal/screen"
	"github.com/m3rciful/catalogbot/internal/store"
	"github.com/m3rciful/catalogbot/internal/transfer"
)

const unsupportedText = "Операция доступна только для SQLite."

func (m *Menu) ownerRules(on func(callbacks.Pattern, gate, action)) {
	on(admData, ownerOnly, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.data(ctx, req)
	})
	on(admDataImport, ownerOnly, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.admin(ctx, req, "Отправьте .json или .db файлом в этот чат.", back("◀ Назад", admData))
	})
	on(admDataExport, ownerOnly, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.export(ctx, req)
	})
	on(admDataBackup, ownerOnly, func(ctx context.Context, req Request, _ callbacks.Args) error {
		a, err := m.xfer.Backup(ctx)
		if errors.Is(err, transfer.ErrUnsupported) {
			return m.notice(ctx, req, unsupportedText)
		}
		if err != nil {
			return err
		}
		_, err = m.scr.Messenger().SendDocument(ctx, req.Chat, screen.Document{
			Path:    a.Path,
			Name:    a.Name(),
			Caption: fmt.Sprintf("Бэкап %s (%s)", a.Name(), humanize.Bytes(uint64(a.Size))),
		})
		return err
	})
	on(admDataDB, ownerOnly, func(ctx context.Context, req Request, _ callbacks.Args) error {
		tmp, err := os.MkdirTemp("", "catalog-db-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		a, err := m.xfer.Snapshot(ctx, tmp)
		if errors.Is(err, transfer.ErrUnsupported) {
			return m.notice(ctx, req, unsupportedText)
		}
		if err != nil {
			return err
		}
		_, err = m.scr.Messenger().SendDocument(ctx, req.Chat, screen.Document{
			Path:    a.Path,
			Name:    "catalog.db",
			Caption: "Текущая база данных",
		})
		return err
	})

	on(admEditors, ownerOnly, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.editors(ctx, req)
	})
	on(admEditorAdd, ownerOnly, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.prompt(ctx, req, tagEditorAdd, 0, 0,
			"Отправьте @username или числовой ID пользователя.", back("◀ Назад", admEditors))
	})
	on(admEditor, ownerOnly, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.editor(ctx, req, a.Int(0))
	})
	on(admEditorToggle, ownerOnly, func(ctx context.Context, req Request, a callbacks.Args) error {
		uid := a.Int(0)
		if err := m.st.ToggleEditor(ctx, uid); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.editor(ctx, req, uid)
	})
	on(admEditorPerm, ownerOnly, func(ctx context.Context, req Request, a callbacks.Args) error {
		uid := a.Int(0)
		if err := m.st.ToggleEditorPerm(ctx, uid, a.Word(0)); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.editor(ctx, req, uid)
	})
	on(admEditorDelete, ownerOnly, func(ctx context.Context, req Request, a callbacks.Args) error {
		if err := m.st.DeleteEditor(ctx, a.Int(0)); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.editors(ctx, req)
	})
}

func (m *Menu) data(ctx context.Context, req Request) error {
	lines := []string{"<b>Данные</b>", "Импорт, экспорт, бэкап.", ""}
	if path := m.st.Path(); path != "" {
		if fi, err := os.Stat(path); err == nil {
			lines = append(lines, "База: "+humanize.Bytes(uint64(fi.Size())))
		}
	} else {
		lines = append(lines, "База: "+m.st.Driver()+" (бэкапы недоступны)")
	}
	cfg := m.xfer.Config()
	if files, err := transfer.ListBackups(cfg.Dir); err == nil && len(files) > 0 {
		latest := files[0]
		when := ""
		if fi, err := os.Stat(latest); err == nil {
			when = ", " + humanize.Time(fi.ModTime())
		}
		lines = append(lines, fmt.Sprintf("Бэкапов: %d из %d, последний %s%s",
			len(files), cfg.Keep, format.EscapeHTML(filepath.Base(latest)), when))
	} else {
		lines = append(lines, "Бэкапов пока нет.")
	}
	if cfg.Schedule != "" {
		lines = append(lines, "Расписание: <code>"+format.EscapeHTML(cfg.Schedule)+"</code>")
	}

	var kb keyboard.Rows
	kb.Add(btn("⬆ Импорт JSON/.db", admDataImport))
	kb.Add(btn("⬇ Экспорт JSON", admDataExport))
	kb.Add(btn("💾 Бэкап DB и скачать", admDataBackup))
	kb.Add(btn("📥 Скачать текущую DB", admDataDB))
	kb.Add(btn("◀ Меню", admHome))
	return m.admin(ctx, req, strings.Join(lines, "\n"), kb)
}

func (m *Menu) export(ctx context.Context, req Request) error {
	doc, err := m.xfer.Export(ctx)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp("", "catalog-export-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if err := doc.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, err = m.scr.Messenger().SendDocument(ctx, req.Chat, screen.Document{
		Path:    f.Name(),
		Name:    "catalog-export.json",
		Caption: "Экспорт JSON\n" + doc.Stats().String(),
	})
	return err
}

func editorName(e store.Editor) string {
	if e.Username == "" {
		return "—"
	}
	return "@" + strings.TrimPrefix(e.Username, "@")
}

func permSummary(e store.Editor) string {
	short := map[string]string{
		store.PermCats: "C", store.PermProds: "P", store.PermPhotos: "F",
		store.PermLinks: "L", store.PermWelcome: "W", store.PermReserve: "R",
	}
	parts := make([]string, 0, len(store.PermNames))
	for _, p := range store.PermNames {
		parts = append(parts, fmt.Sprintf("%s:%d", short[p], flagInt(e.Has(p))))
	}
	return strings.Join(parts, " ")
}

func flagInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (m *Menu) editors(ctx context.Context, req Request) error {
	list, err := m.st.ListEditors(ctx)
	if err != nil {
		return err
	}
	lines := []string{"<b>Редакторы</b>"}
	if len(list) == 0 {
		lines = append(lines, "Список пуст")
	}
	var kb keyboard.Rows
	for _, e := range list {
		name := format.EscapeHTML(editorName(e))
		lines = append(lines, fmt.Sprintf("%d (%s) — %s [%s]", e.UserID, name, onOff(e.Active), permSummary(e)))
		kb.Add(btn(fmt.Sprintf("⚙ %d (%s)", e.UserID, editorName(e)), admEditor, e.UserID))
	}
	kb.Add(btn("➕ Добавить", admEditorAdd))
	kb.Add(btn("◀ Меню", admHome))
	return m.admin(ctx, req, strings.Join(lines, "\n"), kb)
}

var permLabels = map[string]string{
	store.PermCats:    "Cats",
	store.PermProds:   "Prods",
	store.PermPhotos:  "Photos",
	store.PermLinks:   "Links",
	store.PermWelcome: "Welcome",
	store.PermReserve: "Reserve",
}

func (m *Menu) editor(ctx context.Context, req Request, uid int64) error {
	e, err := m.st.GetEditor(ctx, uid)
	if store.IsNotFound(err) {
		return m.editors(ctx, req)
	}
	if err != nil {
		return err
	}
	text := fmt.Sprintf("<b>Редактор %d</b> %s\nСтатус: %s\nПрава: %s",
		e.UserID, format.EscapeHTML(editorName(e)), onOff(e.Active), permSummary(e))

	var kb keyboard.Rows
	kb.Add(btn("Статус: "+onOff(e.Active), admEditorToggle, uid))
	var perms []keyboard.InlineBtn
	for _, p := range store.PermNames {
		perms = append(perms, btn(fmt.Sprintf("%s:%d", permLabels[p], flagInt(e.Has(p))), admEditorPerm, p, uid))
	}
	kb.Chunk(perms, 2)
	kb.Add(btn("🗑 Удалить редактора", admEditorDelete, uid))
	kb.Add(btn("◀ Назад", admEditors))
	return m.admin(ctx, req, text, kb)
}
