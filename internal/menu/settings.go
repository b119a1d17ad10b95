package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/catalogbot/core/telegram/callbacks"
	"github.com/m3rciful/catalogbot/core/telegram/format"
	"github.com/m3rciful/catalogbot/core/telegram/keyboard"
	"github.com/m3rciful/catalogbot/internal/access"
	"github.com/m3rciful/catalogbot/internal/catalog"
	"github.com/m3rciful/catalogbot/internal/store"
)

func (m *Menu) settingsRules(on func(callbacks.Pattern, gate, action)) {
	links := can(access.Links)
	on(admLinks, links, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.links(ctx, req, 0)
	})
	on(admLinksPage, links, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.links(ctx, req, page(a, 0))
	})
	on(admLinkAdd, links, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.prompt(ctx, req, tagLinkAddText, 0, 0, "Текст кнопки:", back("◀ Назад", admLinks))
	})
	on(admLinkEdit, links, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.link(ctx, req, page(a, 0))
	})
	on(admLinkText, links, func(ctx context.Context, req Request, a callbacks.Args) error {
		i := page(a, 0)
		return m.prompt(ctx, req, tagLinkEditText, int64(i), 0, "Новый текст:", back("◀ Назад", admLinkEdit, i))
	})
	on(admLinkURL, links, func(ctx context.Context, req Request, a callbacks.Args) error {
		i := page(a, 0)
		return m.prompt(ctx, req, tagLinkEditURL, int64(i), 0, "Новый URL (http/https):", back("◀ Назад", admLinkEdit, i))
	})
	on(admLinkUp, links, m.editLinks(catalog.MoveUp))
	on(admLinkDown, links, m.editLinks(catalog.MoveDown))
	on(admLinkToggle, links, m.editLinks(func(l []catalog.Link, i int) []catalog.Link {
		if i >= 0 && i < len(l) {
			l[i].Active = !l[i].Active
		}
		return l
	}))
	on(admLinkDelete, links, m.editLinks(catalog.Remove))

	on(admWelcome, can(access.Welcome), func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.prompt(ctx, req, tagWelcome, 0, 0, "Введите приветственное сообщение (HTML):", back("◀ Меню", admHome))
	})

	reserve := can(access.Reservation)
	on(admReserve, reserve, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.reservation(ctx, req)
	})
	on(admReserveOn, reserve, func(ctx context.Context, req Request, _ callbacks.Args) error {
		next := "1"
		if m.st.Flag(ctx, store.KeyReserveEnabled) {
			next = "0"
		}
		if err := m.st.SetSetting(ctx, store.KeyReserveEnabled, next); err != nil {
			return err
		}
		return m.reservation(ctx, req)
	})
	on(admReserveText, reserve, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.prompt(ctx, req, tagReserveText, 0, 0, "Новый текст кнопки брони:", back("◀ Назад", admReserve))
	})
	on(admReserveUser, reserve, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.prompt(ctx, req, tagReserveUsername, 0, 0, "Введите Telegram username или ссылку t.me:", back("◀ Назад", admReserve))
	})
	on(admReserveTpl, reserve, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.prompt(ctx, req, tagReserveTpl, 0, 0,
			"Новый шаблон сообщения. Доступно: {id} {name} {size}", back("◀ Назад", admReserve))
	})
}

func (m *Menu) loadLinks(ctx context.Context) []catalog.Link {
	return catalog.ParseLinks(m.st.Setting(ctx, store.KeyLinksJSON, "[]"))
}

func (m *Menu) saveLinks(ctx context.Context, links []catalog.Link) error {
	raw, err := catalog.EncodeLinks(links)
	if err != nil {
		return err
	}
	return m.st.SetSetting(ctx, store.KeyLinksJSON, raw)
}

// editLinks applies fn to the stored list at the index carried by the token
// and shows the page holding that index.
func (m *Menu) editLinks(fn func([]catalog.Link, int) []catalog.Link) action {
	return func(ctx context.Context, req Request, a callbacks.Args) error {
		i := page(a, 0)
		links := m.loadLinks(ctx)
		if i < len(links) {
			if err := m.saveLinks(ctx, fn(links, i)); err != nil {
				return err
			}
		}
		return m.links(ctx, req, i/linkPage)
	}
}

func (m *Menu) links(ctx context.Context, req Request, pageIndex int) error {
	all := m.loadLinks(ctx)
	pg := Paginate(len(all), linkPage, pageIndex)
	text := "<b>Главные кнопки</b>"
	if len(all) == 0 {
		text += "\nСписок пуст."
	}
	var kb keyboard.Rows
	end := min(pg.Offset+pg.Limit, len(all))
	for i := pg.Offset; i < end; i++ {
		l := all[i]
		mark := "🚫"
		if l.Active {
			mark = "👁"
		}
		kb.Add(btn(fmt.Sprintf("%s %d. %s", mark, i+1, format.Shorten(l.Text, 30)), admLinkEdit, i))
	}
	pager(&kb, pg, admLinksPage)
	kb.Add(btn("➕ Добавить", admLinkAdd))
	kb.Add(btn("◀ Меню", admHome))
	return m.admin(ctx, req, text, kb)
}

func (m *Menu) link(ctx context.Context, req Request, i int) error {
	all := m.loadLinks(ctx)
	if i < 0 || i >= len(all) {
		return m.links(ctx, req, 0)
	}
	l := all[i]
	text := fmt.Sprintf("<b>Кнопка %d</b>\nТекст: %s\nURL: %s\nАктивна: %s",
		i+1, format.EscapeHTML(l.Text), format.EscapeHTML(l.URL), yesNo(l.Active))
	var kb keyboard.Rows
	kb.Add(btn("✏️ Текст", admLinkText, i), btn("✏️ URL", admLinkURL, i))
	kb.Add(btn("⬆", admLinkUp, i), btn("⬇", admLinkDown, i))
	kb.Add(btn("👁/🚫 Видимость", admLinkToggle, i))
	kb.Add(btn("🗑 Удалить", admLinkDelete, i))
	kb.Add(btn("◀ Назад", admLinksPage, i/linkPage))
	return m.admin(ctx, req, text, kb)
}

func (m *Menu) reservation(ctx context.Context, req Request) error {
	r := catalog.LoadReservation(ctx, m.st)
	username := "—"
	if u := catalog.NormalizeUsername(r.Username); u != "" {
		username = "@" + u
	}
	example := "—"
	if p, err := m.st.FirstActiveProduct(ctx); err == nil {
		if u := r.URL(p.ID, p.Name, ""); u != "" {
			example = u
		}
	} else if !store.IsNotFound(err) {
		return err
	}
	state := "выключено"
	if r.Enabled {
		state = "включено"
	}
	lines := []string{
		"<b>Бронь</b>",
		"Режим: ссылка в личные сообщения Telegram",
		"Состояние: " + state,
		"Текст кнопки: " + format.EscapeHTML(r.Text),
		"Username: " + format.EscapeHTML(username),
		"Шаблон: " + format.EscapeHTML(r.Template),
		"Шаблоны: {id} {name} {size}",
		"",
		"Пример: " + format.EscapeHTML(example),
	}
	var kb keyboard.Rows
	kb.Add(btn("Вкл/выкл: "+onOff(r.Enabled), admReserveOn))
	kb.Add(btn("✏️ Текст кнопки", admReserveText), btn("✏️ Username", admReserveUser))
	kb.Add(btn("✏️ Шаблон", admReserveTpl))
	kb.Add(btn("◀ Меню", admHome))
	return m.admin(ctx, req, strings.Join(lines, "\n"), kb)
}
