package menu

import (
	"context"
	"strings"

	"github.com/m3rciful/catalogbot/core/telegram/callbacks"
	"github.com/m3rciful/catalogbot/core/telegram/format"
	"github.com/m3rciful/catalogbot/core/telegram/keyboard"
	"github.com/m3rciful/catalogbot/internal/catalog"
	"github.com/m3rciful/catalogbot/internal/screen"
	"github.com/m3rciful/catalogbot/internal/store"
)

func (m *Menu) clientRules(on func(callbacks.Pattern, gate, action)) {
	on(shopHome, open, func(ctx context.Context, req Request, _ callbacks.Args) error {
		if err := m.scr.Clear(ctx, req.Chat, screen.Shop); err != nil {
			return err
		}
		return m.home(ctx, req)
	})
	on(shopClear, open, func(ctx context.Context, req Request, _ callbacks.Args) error {
		return m.scr.ClearAll(ctx, req.Chat)
	})
	on(shopCats, open, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.shopCategories(ctx, req, page(a, 0))
	})
	on(shopCat, open, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.shopGrid(ctx, req, a.Int(0), page(a, 1))
	})
	on(shopProd, open, func(ctx context.Context, req Request, a callbacks.Args) error {
		return m.shopProduct(ctx, req, a.Int(0), a.Int(1))
	})
}

// Start resets the chat and shows the welcome screen.
func (m *Menu) Start(ctx context.Context, req Request) error {
	if err := m.scr.ClearAll(ctx, req.Chat); err != nil {
		return err
	}
	return m.home(ctx, req)
}

// Shop replaces the welcome screen with the category list.
func (m *Menu) Shop(ctx context.Context, req Request) error {
	if err := m.scr.Clear(ctx, req.Chat, screen.Home); err != nil {
		return err
	}
	return m.shopCategories(ctx, req, 0)
}

func (m *Menu) home(ctx context.Context, req Request) error {
	def := store.DefaultSettings[store.KeyWelcomeHTML]
	text := m.st.Setting(ctx, store.KeyWelcomeHTML, def)
	if strings.TrimSpace(text) == "" {
		text = def
	}
	var kb keyboard.Rows
	kb.Add(btn("🛍 ОТКРЫТЬ ВИТРИНУ", shopCats, 0))
	links := catalog.ParseLinks(m.st.Setting(ctx, store.KeyLinksJSON, "[]"))
	for _, l := range catalog.PublicLinks(links) {
		kb.Add(keyboard.Link(catalog.LinkLabel(l.Text), l.URL))
	}
	kb.Add(btn("🧹 ОЧИСТИТЬ ЭКРАН", shopClear))
	return m.render(ctx, req, screen.Home, screen.Text(text, kb))
}

func (m *Menu) shopCategories(ctx context.Context, req Request, pageIndex int) error {
	total, err := m.st.CountCategories(ctx, true)
	if err != nil {
		return err
	}
	pg := Paginate(total, shopCategoryPage, pageIndex)
	cats, err := m.st.ListCategories(ctx, true, pg.Offset, pg.Limit)
	if err != nil {
		return err
	}
	var kb keyboard.Rows
	for _, c := range cats {
		kb.Add(btn(format.Shorten(c.Name, format.MaxButtonLen), shopCat, c.ID, 0))
	}
	pager(&kb, pg, shopCats)
	kb.Add(btn("🏠 В НАЧАЛО", shopHome))
	text := "Выберите категорию:"
	if total == 0 {
		text = "Категорий пока нет."
	}
	return m.render(ctx, req, screen.Shop, screen.Text(text, kb))
}

// shopGrid shows one page of product cards followed by the navigation
// message. A missing or hidden category falls back to the category list.
func (m *Menu) shopGrid(ctx context.Context, req Request, categoryID int64, pageIndex int) error {
	cat, err := m.st.GetCategory(ctx, categoryID)
	if store.IsNotFound(err) || err == nil && !cat.Active {
		return m.shopCategories(ctx, req, 0)
	}
	if err != nil {
		return err
	}
	total, err := m.st.CountProductsInCategory(ctx, categoryID, true)
	if err != nil {
		return err
	}
	var nav keyboard.Rows
	if total == 0 {
		nav.Add(btn("◀ Категории", shopCats, 0))
		nav.Add(btn("🏠 В НАЧАЛО", shopHome))
		return m.render(ctx, req, screen.Shop, screen.Text("В этой категории пока нет активных товаров.", nav))
	}

	pg := Paginate(total, shopProductPage, pageIndex)
	products, err := m.st.ListProductsInCategory(ctx, categoryID, true, pg.Offset, pg.Limit)
	if err != nil {
		return err
	}
	contents := make([]screen.Content, 0, len(products)+1)
	for _, p := range products {
		variants, err := m.st.ListVariants(ctx, p.ID)
		if err != nil {
			return err
		}
		photo, err := m.firstPhoto(ctx, p.ID)
		if err != nil {
			return err
		}
		var kb keyboard.Rows
		kb.Add(btn("Подробнее", shopProd, categoryID, p.ID))
		contents = append(contents, screen.Content{
			Text:     format.Caption(catalog.CardText(p, catalog.StockOf(variants))),
			Photo:    photo,
			Keyboard: kb,
		})
	}
	pager(&nav, pg, shopCat, categoryID)
	nav.Add(btn("◀ Категории", shopCats, 0))
	nav.Add(btn("🏠 В НАЧАЛО", shopHome))
	contents = append(contents, screen.Text("Навигация по товарам:", nav))
	return m.render(ctx, req, screen.Shop, contents...)
}

// shopProduct shows the product card with the reservation button. A
// missing or hidden product falls back to its category grid.
func (m *Menu) shopProduct(ctx context.Context, req Request, categoryID, productID int64) error {
	p, err := m.st.GetProduct(ctx, productID)
	if store.IsNotFound(err) || err == nil && !p.Active {
		return m.shopGrid(ctx, req, categoryID, 0)
	}
	if err != nil {
		return err
	}
	cats, err := m.st.ProductCategories(ctx, p.ID)
	if err != nil {
		return err
	}
	variants, err := m.st.ListVariants(ctx, p.ID)
	if err != nil {
		return err
	}
	photo, err := m.firstPhoto(ctx, p.ID)
	if err != nil {
		return err
	}

	var kb keyboard.Rows
	r := catalog.LoadReservation(ctx, m.st)
	if url := r.URL(p.ID, p.Name, ""); url != "" {
		kb.Add(keyboard.Link(r.Text, url))
	}
	kb.Add(btn("◀ Назад", shopCat, categoryID, 0))
	kb.Add(btn("🏠 В НАЧАЛО", shopHome))

	text := catalog.ProductText(p, cats, catalog.StockOf(variants))
	if photo != "" {
		text = format.Caption(text)
	} else {
		text = format.Shorten(text, format.MaxMessageLen)
	}
	return m.render(ctx, req, screen.Shop, screen.Content{Text: text, Photo: photo, Keyboard: kb})
}

func (m *Menu) firstPhoto(ctx context.Context, productID int64) (string, error) {
	photos, err := m.st.ListPhotos(ctx, productID)
	if err != nil || len(photos) == 0 {
		return "", err
	}
	return photos[0].FileID, nil
}
