package menu

import (
	"context"
	"fmt"

	"github.com/m3rciful/catalogbot/core/telegram/callbacks"
	"github.com/m3rciful/catalogbot/core/telegram/format"
	"github.com/m3rciful/catalogbot/core/telegram/keyboard"
	"github.com/m3rciful/catalogbot/internal/access"
	"github.com/m3rciful/catalogbot/internal/screen"
	"github.com/m3rciful/catalogbot/internal/store"
)

func (m *Menu) catalogRules(on func(callbacks.Pattern, gate, action)) {
	on(admHome, staff, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.panel(ctx, req)
	})
	on(admClose, staff, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.scr.Clear(ctx, req.Chat, screen.Admin)
	})

	cats := can(access.Categories)
	on(admCats, cats, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.categories(ctx, req, page(a, 0))
	})
	on(admCatAdd, cats, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.prompt(ctx, req, tagCatAdd, 0, 0, "Название категории:", back("◀ Назад", admCats, 0))
	})
	on(admCat, cats, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.category(ctx, req, a.Int(0))
	})
	on(admCatRename, cats, func(ctx context.Context, req Request, a callbacks.Args) error {
		id := a.Int(0)
		return m.prompt(ctx, req, tagCatRename, id, 0, "Новое имя категории:", back("◀ Назад", admCat, id))
	})
	on(admCatToggle, cats, func(ctx context.Context, req Request, a callbacks.Args) error {
		id := a.Int(0)
		if err := m.st.ToggleCategory(ctx, id); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.category(ctx, req, id)
	})
	on(admCatDelete, cats, func(ctx context.Context, req Request, a callbacks.Args) error {
		id := a.Int(0)
		var kb keyboard.Rows
		kb.Add(btn("❗ Да, удалить с товарами", admCatDeleteYes, id))
		kb.Add(btn("Отмена", admCat, id))
		return m.admin(ctx, req, "Удалить категорию и связи с товарами?", kb)
	})
	on(admCatDeleteYes, cats, func(ctx context.Context, req Request, a callbacks.Args) error {
		if err := m.st.DeleteCategory(ctx, a.Int(0)); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.categories(ctx, req, 0)
	})
}

// Admin opens the staff panel.
func (m *Menu) Admin(ctx context.Context, req Request) error {
	if !m.acc.IsStaff(ctx, req.User) {
		return ErrDenied
	}
	return m.panel(ctx, req)
}

// panel lists the sections the actor may open.
func (m *Menu) panel(ctx context.Context, req Request) error {
	var kb keyboard.Rows
	var row []keyboard.InlineBtn
	if m.acc.Can(ctx, req.User, access.Categories) {
		row = append(row, btn("Категории", admCats, 0))
	}
	if m.acc.Can(ctx, req.User, access.Products) {
		row = append(row, btn("Товары", admProds, 0))
	}
	kb.Add(row...)
	if m.acc.Can(ctx, req.User, access.Links) {
		kb.Add(btn("Главные кнопки", admLinks))
	}
	if m.acc.Can(ctx, req.User, access.Welcome) {
		kb.Add(btn("Приветствие", admWelcome))
	}
	if m.acc.Can(ctx, req.User, access.Reservation) {
		kb.Add(btn("Бронь", admReserve))
	}
	if m.acc.IsOwner(req.User) {
		kb.Add(btn("Редакторы", admEditors))
		kb.Add(btn("Данные (импорт/экспорт/бэкап)", admData))
	}
	kb.Add(btn("✖ Закрыть", admClose))
	return m.admin(ctx, req, "<b>Панель</b>", kb)
}

func (m *Menu) categories(ctx context.Context, req Request, pageIndex int) error {
	total, err := m.st.CountCategories(ctx, false)
	if err != nil {
		return err
	}
	pg := Paginate(total, staffCategoryPage, pageIndex)
	cats, err := m.st.ListCategories(ctx, false, pg.Offset, pg.Limit)
	if err != nil {
		return err
	}
	var kb keyboard.Rows
	for _, c := range cats {
		kb.Add(btn(fmt.Sprintf("%d. %s", c.ID, format.Shorten(c.Name, 28)), admCat, c.ID))
	}
	pager(&kb, pg, admCats)
	kb.Add(btn("➕ Добавить", admCatAdd))
	kb.Add(btn("◀ Меню", admHome))
	return m.admin(ctx, req, "<b>Категории</b>", kb)
}

func (m *Menu) category(ctx context.Context, req Request, id int64) error {
	c, err := m.st.GetCategory(ctx, id)
	if store.IsNotFound(err) {
		return m.categories(ctx, req, 0)
	}
	if err != nil {
		return err
	}
	var kb keyboard.Rows
	kb.Add(btn("✏️ Переименовать", admCatRename, c.ID))
	kb.Add(btn("🟢/⚫ Активность", admCatToggle, c.ID))
	if m.acc.Can(ctx, req.User, access.Products) {
		kb.Add(btn("📦 Товары категории", admProdsCat, c.ID, 0))
	}
	kb.Add(btn("🗑 Удалить (со всеми связями)", admCatDelete, c.ID))
	kb.Add(btn("◀ Назад", admCats, 0))
	text := fmt.Sprintf("<b>Категория %d</b>\n%s\nАктивна: %s", c.ID, format.EscapeHTML(c.Name), yesNo(c.Active))
	return m.admin(ctx, req, text, kb)
}
