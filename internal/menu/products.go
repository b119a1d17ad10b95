package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/catalogbot/core/telegram/callbacks"
	"github.com/m3rciful/catalogbot/core/telegram/format"
	"github.com/m3rciful/catalogbot/core/telegram/keyboard"
	"github.com/m3rciful/catalogbot/core/telegram/state"
	"github.com/m3rciful/catalogbot/internal/access"
	"github.com/m3rciful/catalogbot/internal/catalog"
	"github.com/m3rciful/catalogbot/internal/screen"
	"github.com/m3rciful/catalogbot/internal/store"
)

const pickerTitle = "Выберите категории для товара (можно несколько):"

func (m *Menu) productRules(on func(callbacks.Pattern, gate, action)) {
	prods := can(access.Products)
	on(admProds, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.products(ctx, req, page(a, 0))
	})
	on(admProdsCat, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.categoryProducts(ctx, req, a.Int(0), page(a, 1))
	})
	on(admProdAdd, prods, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.prompt(ctx, req, tagProdAddName, 0, 0, "Имя товара:", back("◀ Назад", admProds, 0))
	})
	on(admProdAddIn, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		cid := a.Int(0)
		return m.prompt(ctx, req, tagProdAddName, cid, 0, "Имя товара:", back("◀ Назад", admProdsCat, cid, 0))
	})
	on(admProd, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.product(ctx, req, a.Int(0))
	})
	on(admProdName, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		id := a.Int(0)
		return m.prompt(ctx, req, tagProdEditName, id, 0, "Новое имя:", back("◀ Назад", admProd, id))
	})
	on(admProdDesc, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		id := a.Int(0)
		return m.prompt(ctx, req, tagProdEditDesc, id, 0, "Новое описание («-» чтобы очистить):", back("◀ Назад", admProd, id))
	})
	on(admProdToggle, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		id := a.Int(0)
		if err := m.st.ToggleProduct(ctx, id); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.product(ctx, req, id)
	})
	on(admProdDelete, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		id := a.Int(0)
		var kb keyboard.Rows
		kb.Add(btn("❗ Да, удалить товар", admProdDeleteYes, id))
		kb.Add(btn("Отмена", admProd, id))
		return m.admin(ctx, req, "Удалить товар?", kb)
	})
	on(admProdDeleteYes, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		if err := m.st.DeleteProduct(ctx, a.Int(0)); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.products(ctx, req, 0)
	})

	on(admProdCats, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		id := a.Int(0)
		if err := m.startPicker(ctx, req.User, id); err != nil {
			if store.IsNotFound(err) {
				return m.products(ctx, req, 0)
			}
			return err
		}
		return m.picker(ctx, req, id)
	})
	on(admProdCatsToggle, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		id := a.Int(0)
		if !m.picks.active(req.User, id) {
			if err := m.startPicker(ctx, req.User, id); err != nil {
				if store.IsNotFound(err) {
					return m.products(ctx, req, 0)
				}
				return err
			}
		}
		m.picks.toggle(req.User, id, a.Int(1))
		return m.picker(ctx, req, id)
	})
	on(admProdCatsDone, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		id := a.Int(0)
		ids, ok := m.picks.ids(req.User, id)
		if ok {
			err := m.st.SetProductCategories(ctx, id, ids)
			m.picks.drop(req.User, id)
			if err != nil && !store.IsNotFound(err) {
				return err
			}
		}
		return m.product(ctx, req, id)
	})

	on(admVariants, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.variants(ctx, req, a.Int(0))
	})
	on(admVariantAdd, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		pid := a.Int(0)
		return m.prompt(ctx, req, tagVariantAddName, pid, 0, "Название варианта:", back("◀ Назад", admVariants, pid))
	})
	on(admVariant, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.variant(ctx, req, a.Int(0), a.Int(1))
	})
	on(admVariantName, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		pid, vid := a.Int(0), a.Int(1)
		return m.prompt(ctx, req, tagVariantEditName, pid, vid, "Новое название варианта:", back("◀ Назад", admVariant, pid, vid))
	})
	on(admVariantStock, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		pid, vid := a.Int(0), a.Int(1)
		return m.prompt(ctx, req, tagVariantEditStock, pid, vid, "Новый остаток (число):", back("◀ Назад", admVariant, pid, vid))
	})
	on(admVariantDelete, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		pid, vid := a.Int(0), a.Int(1)
		var kb keyboard.Rows
		kb.Add(btn("❗ Да, удалить вариант", admVariantDeleteYes, pid, vid))
		kb.Add(btn("Отмена", admVariant, pid, vid))
		return m.admin(ctx, req, "Удалить вариант?", kb)
	})
	on(admVariantDeleteYes, prods, func(ctx context.Context, req Request, a callbacks.Args) error {
		pid := a.Int(0)
		if err := m.st.DeleteVariant(ctx, pid, a.Int(1)); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.variants(ctx, req, pid)
	})

	photos := can(access.Photos)
	on(admPhotoAdd, photos, func(ctx context.Context, req Request, a callbacks.Args) error {
		pid := a.Int(0)
		if _, err := m.st.GetProduct(ctx, pid); err != nil {
			if store.IsNotFound(err) {
				return m.products(ctx, req, 0)
			}
			return err
		}
		return m.photoPrompt(ctx, req, pid, "Пришлите 1–10 фото, затем нажмите «Готово».")
	})
	on(admPhotoDone, photos, func(ctx context.Context, req Request, a callbacks.Args) error {
		m.in.Cancel(req.User)
		return m.product(ctx, req, a.Int(0))
	})
	on(admPhotoClear, photos, func(ctx context.Context, req Request, a callbacks.Args) error {
		pid := a.Int(0)
		if _, err := m.st.ClearPhotos(ctx, pid); err != nil {
			return err
		}
		return m.product(ctx, req, pid)
	})
}

func (m *Menu) productLabel(ctx context.Context, p store.Product) (string, error) {
	variants, err := m.st.ListVariants(ctx, p.ID)
	if err != nil {
		return "", err
	}
	mark := "⚫"
	if p.Active {
		mark = "🟢"
	}
	return fmt.Sprintf("%s %d. %s [%d]", mark, p.ID, format.Shorten(p.Name, 26), catalog.StockOf(variants).Total), nil
}

func (m *Menu) products(ctx context.Context, req Request, pageIndex int) error {
	total, err := m.st.CountProducts(ctx)
	if err != nil {
		return err
	}
	pg := Paginate(total, staffProductPage, pageIndex)
	list, err := m.st.ListProducts(ctx, pg.Offset, pg.Limit)
	if err != nil {
		return err
	}
	var kb keyboard.Rows
	for _, p := range list {
		label, err := m.productLabel(ctx, p)
		if err != nil {
			return err
		}
		kb.Add(btn(label, admProd, p.ID))
	}
	pager(&kb, pg, admProds)
	kb.Add(btn("➕ Добавить товар", admProdAdd))
	kb.Add(btn("◀ Меню", admHome))
	return m.admin(ctx, req, "<b>Товары</b>", kb)
}

func (m *Menu) categoryProducts(ctx context.Context, req Request, categoryID int64, pageIndex int) error {
	if _, err := m.st.GetCategory(ctx, categoryID); err != nil {
		if store.IsNotFound(err) {
			return m.products(ctx, req, 0)
		}
		return err
	}
	total, err := m.st.CountProductsInCategory(ctx, categoryID, false)
	if err != nil {
		return err
	}
	pg := Paginate(total, staffProductPage, pageIndex)
	list, err := m.st.ListProductsInCategory(ctx, categoryID, false, pg.Offset, pg.Limit)
	if err != nil {
		return err
	}
	var kb keyboard.Rows
	for _, p := range list {
		label, err := m.productLabel(ctx, p)
		if err != nil {
			return err
		}
		kb.Add(btn(label, admProd, p.ID))
	}
	pager(&kb, pg, admProdsCat, categoryID)
	kb.Add(btn("➕ Добавить товар", admProdAddIn, categoryID))
	kb.Add(btn("◀ Товары", admProds, 0))
	return m.admin(ctx, req, fmt.Sprintf("<b>Товары категории %d</b>", categoryID), kb)
}

// product renders the photo gallery followed by the product card. Leaving
// the card abandons an unfinished category picker of the same product.
func (m *Menu) product(ctx context.Context, req Request, id int64) error {
	m.picks.drop(req.User, id)
	p, err := m.st.GetProduct(ctx, id)
	if store.IsNotFound(err) {
		return m.products(ctx, req, 0)
	}
	if err != nil {
		return err
	}
	cats, err := m.st.ProductCategories(ctx, id)
	if err != nil {
		return err
	}
	variants, err := m.st.ListVariants(ctx, id)
	if err != nil {
		return err
	}
	photos, err := m.st.ListPhotos(ctx, id)
	if err != nil {
		return err
	}

	text := catalog.ProductText(p, cats, catalog.StockOf(variants)) +
		fmt.Sprintf("\n\nID: %d\nАктивен: %s\nФото: %d шт.", p.ID, yesNo(p.Active), len(photos))

	var kb keyboard.Rows
	kb.Add(btn("✏️ Имя", admProdName, id), btn("✏️ Описание", admProdDesc, id))
	kb.Add(btn("🏷 Категории", admProdCats, id), btn("🧩 Варианты", admVariants, id))
	kb.Add(btn("🟢/⚫ Активность", admProdToggle, id))
	if m.acc.Can(ctx, req.User, access.Photos) {
		kb.Add(btn("🖼 Добавить фото", admPhotoAdd, id), btn("🧹 Удалить фото", admPhotoClear, id))
	}
	kb.Add(btn("🗑 Удалить товар", admProdDelete, id))
	kb.Add(btn("◀ К списку", admProds, 0))

	var contents []screen.Content
	if len(photos) > 0 {
		ids := make([]string, 0, min(len(photos), galleryMax))
		for _, ph := range photos[:min(len(photos), galleryMax)] {
			ids = append(ids, ph.FileID)
		}
		contents = append(contents, screen.Content{Gallery: ids})
	}
	contents = append(contents, screen.Text(format.Shorten(text, format.MaxMessageLen), kb))
	return m.render(ctx, req, screen.Admin, contents...)
}

func (m *Menu) startPicker(ctx context.Context, user, productID int64) error {
	if _, err := m.st.GetProduct(ctx, productID); err != nil {
		return err
	}
	cats, err := m.st.ProductCategories(ctx, productID)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(cats))
	for _, c := range cats {
		ids = append(ids, c.ID)
	}
	m.picks.start(user, productID, ids)
	return nil
}

func (m *Menu) picker(ctx context.Context, req Request, productID int64) error {
	all, err := m.st.AllCategories(ctx)
	if err != nil {
		return err
	}
	ids, _ := m.picks.ids(req.User, productID)
	selected := make(map[int64]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	var kb keyboard.Rows
	for _, c := range all {
		mark := "⬜️"
		if selected[c.ID] {
			mark = "✅"
		}
		kb.Add(btn(fmt.Sprintf("%s %d. %s", mark, c.ID, format.Shorten(c.Name, 24)), admProdCatsToggle, productID, c.ID))
	}
	kb.Add(btn("✅ Готово", admProdCatsDone, productID))
	kb.Add(btn("◀ Отмена", admProd, productID))
	return m.admin(ctx, req, pickerTitle, kb)
}

func (m *Menu) variants(ctx context.Context, req Request, productID int64) error {
	if _, err := m.st.GetProduct(ctx, productID); err != nil {
		if store.IsNotFound(err) {
			return m.products(ctx, req, 0)
		}
		return err
	}
	list, err := m.st.ListVariants(ctx, productID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("<b>Варианты товара %d</b>\n", productID)
	if len(list) == 0 {
		text += "Список пуст."
	} else {
		stock := catalog.StockOf(list)
		text += strings.Join(stock.Lines[1:], "\n")
	}
	var kb keyboard.Rows
	for _, v := range list {
		kb.Add(btn(fmt.Sprintf("%d. %s [%d]", v.ID, format.Shorten(v.Name, 22), v.Stock), admVariant, productID, v.ID))
	}
	kb.Add(btn("➕ Добавить вариант", admVariantAdd, productID))
	kb.Add(btn("◀ Назад", admProd, productID))
	return m.admin(ctx, req, text, kb)
}

func (m *Menu) variant(ctx context.Context, req Request, productID, variantID int64) error {
	v, err := m.st.GetVariant(ctx, productID, variantID)
	if store.IsNotFound(err) {
		return m.variants(ctx, req, productID)
	}
	if err != nil {
		return err
	}
	var kb keyboard.Rows
	kb.Add(btn("✏️ Имя", admVariantName, productID, v.ID), btn("✏️ Остаток", admVariantStock, productID, v.ID))
	kb.Add(btn("🗑 Удалить", admVariantDelete, productID, v.ID))
	kb.Add(btn("◀ Назад", admVariants, productID))
	text := fmt.Sprintf("<b>Вариант %d</b>\nНазвание: %s\nОстаток: %d", v.ID, format.EscapeHTML(v.Name), v.Stock)
	return m.admin(ctx, req, text, kb)
}

func (m *Menu) photoPrompt(ctx context.Context, req Request, productID int64, text string) error {
	var kb keyboard.Rows
	kb.Add(btn("✅ Готово", admPhotoDone, productID))
	kb.Add(btn("◀ Назад", admProd, productID))
	m.in.Await(req.User, tagPhotoAdd, state.Session{Target: productID})
	return m.admin(ctx, req, text, kb)
}
