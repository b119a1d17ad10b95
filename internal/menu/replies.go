package menu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/catalogbot/core/telegram/format"
	"github.com/m3rciful/catalogbot/core/telegram/keyboard"
	"github.com/m3rciful/catalogbot/core/telegram/state"
	"github.com/m3rciful/catalogbot/internal/access"
	"github.com/m3rciful/catalogbot/internal/catalog"
	"github.com/m3rciful/catalogbot/internal/input"
	"github.com/m3rciful/catalogbot/internal/store"
)

// Continuation tags.
const (
	tagCatAdd           state.State = "cat.add"
	tagCatRename        state.State = "cat.rename"
	tagProdAddName      state.State = "prod.add.name"
	tagProdAddDesc      state.State = "prod.add.desc"
	tagProdEditName     state.State = "prod.edit.name"
	tagProdEditDesc     state.State = "prod.edit.desc"
	tagVariantAddName   state.State = "variant.add.name"
	tagVariantAddStock  state.State = "variant.add.stock"
	tagVariantEditName  state.State = "variant.edit.name"
	tagVariantEditStock state.State = "variant.edit.stock"
	tagPhotoAdd         state.State = "photo.add"
	tagLinkAddText      state.State = "link.add.text"
	tagLinkAddURL       state.State = "link.add.url"
	tagLinkEditText     state.State = "link.edit.text"
	tagLinkEditURL      state.State = "link.edit.url"
	tagWelcome          state.State = "welcome"
	tagReserveText      state.State = "reserve.text"
	tagReserveUsername  state.State = "reserve.username"
	tagReserveTpl       state.State = "reserve.tpl"
	tagEditorAdd        state.State = "editor.add"
)

const (
	askNumber = "Введите число."
	askURL    = "Нужен http/https URL:"
	askText   = "Текст не может быть пустым."
)

// prompt arms tag for the actor and shows the question on the admin screen.
func (m *Menu) prompt(ctx context.Context, req Request, tag state.State, target, sub int64, text string, kb keyboard.Rows) error {
	m.in.Await(req.User, tag, state.Session{Target: target, Sub: sub})
	return m.admin(ctx, req, text, kb)
}

// retry re-arms s unchanged and shows text.
func (m *Menu) retry(ctx context.Context, req Request, s state.Session, text string) error {
	m.in.Await(req.User, s.State, s)
	return m.admin(ctx, req, text, back("◀ Меню", admHome))
}

type reply func(ctx context.Context, req Request, text string, s state.Session) error

// handle registers a text continuation guarded by g. The gate is checked
// again because permissions may change while a reply is pending.
func (m *Menu) handle(tag state.State, g gate, fn reply) {
	m.in.HandleText(tag, func(ctx context.Context, in input.Text, s state.Session) error {
		req := Request{Chat: in.Chat, User: in.User}
		if !m.allowed(ctx, in.User, g) {
			return ErrDenied
		}
		return fn(ctx, req, strings.TrimSpace(in.Text), s)
	})
}

func (m *Menu) replies() {
	cats := can(access.Categories)
	m.handle(tagCatAdd, cats, func(ctx context.Context, req Request, text string, s state.Session) error {
		if text == "" {
			return m.retry(ctx, req, s, askText)
		}
		id, err := m.st.CreateCategory(ctx, text)
		if err != nil {
			return err
		}
		return m.category(ctx, req, id)
	})
	m.handle(tagCatRename, cats, func(ctx context.Context, req Request, text string, s state.Session) error {
		if text == "" {
			return m.retry(ctx, req, s, askText)
		}
		if err := m.st.RenameCategory(ctx, s.Target, text); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.category(ctx, req, s.Target)
	})

	prods := can(access.Products)
	m.handle(tagProdAddName, prods, func(ctx context.Context, req Request, text string, s state.Session) error {
		if text == "" {
			return m.retry(ctx, req, s, askText)
		}
		m.in.Await(req.User, tagProdAddDesc, s.With("name", text))
		return m.admin(ctx, req, "Описание («-» чтобы пропустить):", back("◀ Назад", admProds, 0))
	})
	m.handle(tagProdAddDesc, prods, func(ctx context.Context, req Request, text string, s state.Session) error {
		id, err := m.st.CreateProduct(ctx, s.Field("name"), description(text), s.Target)
		if err != nil {
			return err
		}
		return m.product(ctx, req, id)
	})
	m.handle(tagProdEditName, prods, func(ctx context.Context, req Request, text string, s state.Session) error {
		if text == "" {
			return m.retry(ctx, req, s, askText)
		}
		if err := m.st.RenameProduct(ctx, s.Target, text); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.product(ctx, req, s.Target)
	})
	m.handle(tagProdEditDesc, prods, func(ctx context.Context, req Request, text string, s state.Session) error {
		if err := m.st.SetProductDescription(ctx, s.Target, description(text)); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.product(ctx, req, s.Target)
	})

	m.handle(tagVariantAddName, prods, func(ctx context.Context, req Request, text string, s state.Session) error {
		if text == "" {
			return m.retry(ctx, req, s, askText)
		}
		m.in.Await(req.User, tagVariantAddStock, s.With("name", text))
		return m.admin(ctx, req, "Остаток (число):", back("◀ Назад", admVariants, s.Target))
	})
	m.handle(tagVariantAddStock, prods, func(ctx context.Context, req Request, text string, s state.Session) error {
		n, ok := parseStock(text)
		if !ok {
			return m.retry(ctx, req, s, askNumber)
		}
		if _, err := m.st.CreateVariant(ctx, s.Target, s.Field("name"), n); err != nil {
			return err
		}
		return m.variants(ctx, req, s.Target)
	})
	m.handle(tagVariantEditName, prods, func(ctx context.Context, req Request, text string, s state.Session) error {
		if text == "" {
			return m.retry(ctx, req, s, askText)
		}
		if err := m.st.RenameVariant(ctx, s.Target, s.Sub, text); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.variant(ctx, req, s.Target, s.Sub)
	})
	m.handle(tagVariantEditStock, prods, func(ctx context.Context, req Request, text string, s state.Session) error {
		n, ok := parseStock(text)
		if !ok {
			return m.retry(ctx, req, s, askNumber)
		}
		if err := m.st.SetVariantStock(ctx, s.Target, s.Sub, n); err != nil && !store.IsNotFound(err) {
			return err
		}
		return m.variant(ctx, req, s.Target, s.Sub)
	})

	photos := can(access.Photos)
	m.handle(tagPhotoAdd, photos, func(ctx context.Context, req Request, text string, s state.Session) error {
		if input.IsDone(text) {
			return m.product(ctx, req, s.Target)
		}
		return m.photoPrompt(ctx, req, s.Target, "Пришлите фото или нажмите «Готово».")
	})
	m.in.HandlePhoto(tagPhotoAdd, func(ctx context.Context, in input.Photo, s state.Session) error {
		req := Request{Chat: in.Chat, User: in.User}
		if !m.acc.Can(ctx, in.User, access.Photos) {
			m.in.Cancel(in.User)
			return ErrDenied
		}
		n, err := m.st.CountPhotos(ctx, s.Target)
		if err != nil {
			return err
		}
		if n >= galleryMax {
			return m.photoPrompt(ctx, req, s.Target, fmt.Sprintf("Достигнут лимит %d фото. Нажмите «Готово».", galleryMax))
		}
		if _, err := m.st.AddPhoto(ctx, s.Target, in.FileID); err != nil {
			if store.IsNotFound(err) {
				m.in.Cancel(in.User)
				return m.products(ctx, req, 0)
			}
			return err
		}
		return m.photoPrompt(ctx, req, s.Target,
			fmt.Sprintf("Фото добавлено (%d/%d). Пришлите ещё или нажмите «Готово».", n+1, galleryMax))
	})

	links := can(access.Links)
	m.handle(tagLinkAddText, links, func(ctx context.Context, req Request, text string, s state.Session) error {
		if text == "" {
			return m.retry(ctx, req, s, askText)
		}
		m.in.Await(req.User, tagLinkAddURL, s.With("text", text))
		return m.admin(ctx, req, "URL (http/https):", back("◀ Назад", admLinks))
	})
	m.handle(tagLinkAddURL, links, func(ctx context.Context, req Request, text string, s state.Session) error {
		if !catalog.ValidURL(text) {
			return m.retry(ctx, req, s, askURL)
		}
		all := append(m.loadLinks(ctx), catalog.Link{Text: s.Field("text"), URL: text, Active: true})
		if err := m.saveLinks(ctx, all); err != nil {
			return err
		}
		return m.links(ctx, req, (len(all)-1)/linkPage)
	})
	m.handle(tagLinkEditText, links, func(ctx context.Context, req Request, text string, s state.Session) error {
		if text == "" {
			return m.retry(ctx, req, s, askText)
		}
		return m.updateLink(ctx, req, int(s.Target), func(l *catalog.Link) { l.Text = text })
	})
	m.handle(tagLinkEditURL, links, func(ctx context.Context, req Request, text string, s state.Session) error {
		if !catalog.ValidURL(text) {
			return m.retry(ctx, req, s, askURL)
		}
		return m.updateLink(ctx, req, int(s.Target), func(l *catalog.Link) { l.URL = text })
	})

	m.handle(tagWelcome, can(access.Welcome), func(ctx context.Context, req Request, text string, s state.Session) error {
		if text == "" {
			return m.retry(ctx, req, s, askText)
		}
		if err := m.st.SetSetting(ctx, store.KeyWelcomeHTML, text); err != nil {
			return err
		}
		return m.admin(ctx, req, "Сохранено.", back("◀ Меню", admHome))
	})

	reserve := can(access.Reservation)
	m.handle(tagReserveText, reserve, m.reserveSetting(store.KeyReserveText, func(s string) string { return s }))
	m.handle(tagReserveUsername, reserve, m.reserveSetting(store.KeyReserveUsername, catalog.NormalizeUsername))
	m.handle(tagReserveTpl, reserve, m.reserveSetting(store.KeyReserveMsgTpl, func(s string) string { return s }))

	m.handle(tagEditorAdd, ownerOnly, m.addEditor)
}

func (m *Menu) reserveSetting(key string, normalize func(string) string) reply {
	return func(ctx context.Context, req Request, text string, s state.Session) error {
		v := normalize(text)
		if v == "" {
			return m.retry(ctx, req, s, askText)
		}
		if err := m.st.SetSetting(ctx, key, v); err != nil {
			return err
		}
		return m.reservation(ctx, req)
	}
}

func (m *Menu) updateLink(ctx context.Context, req Request, i int, fn func(*catalog.Link)) error {
	all := m.loadLinks(ctx)
	if i < 0 || i >= len(all) {
		return m.links(ctx, req, 0)
	}
	fn(&all[i])
	if err := m.saveLinks(ctx, all); err != nil {
		return err
	}
	return m.link(ctx, req, i)
}

// addEditor accepts "@username" for someone in the user directory or a
// numeric user id.
func (m *Menu) addEditor(ctx context.Context, req Request, text string, s state.Session) error {
	if text == "" {
		return m.retry(ctx, req, s, askText)
	}
	var u store.User
	if id, err := strconv.ParseInt(text, 10, 64); err == nil && id > 0 {
		u, err = m.st.GetUser(ctx, id)
		if err != nil && !store.IsNotFound(err) {
			return err
		}
		u.UserID = id
	} else {
		found, err := m.st.FindUserByUsername(ctx, text)
		if store.IsNotFound(err) {
			return m.admin(ctx, req,
				"Пользователь с таким username не найден.\nПопросите его сначала нажать /start у бота.",
				back("◀ К списку", admEditors))
		}
		if err != nil {
			return err
		}
		u = found
	}
	if err := m.st.UpsertEditor(ctx, u.UserID, u.Username); err != nil {
		return err
	}
	return m.admin(ctx, req, fmt.Sprintf("Редактор %d добавлен.", u.UserID), back("◀ К списку", admEditors))
}

// Text feeds a free-text message to the pending continuation. A consumed
// message is removed from the chat when auto_delete_user is on.
func (m *Menu) Text(ctx context.Context, in input.Text) (bool, error) {
	handled, err := m.in.OnText(ctx, in)
	if handled {
		m.Tidy(ctx, in.Message)
	}
	return handled, err
}

// Photo feeds a photo to the pending continuation.
func (m *Menu) Photo(ctx context.Context, in input.Photo) (bool, error) {
	handled, err := m.in.OnPhoto(ctx, in)
	if handled {
		m.Tidy(ctx, in.Message)
	}
	return handled, err
}

// Tidy removes a consumed user message when auto_delete_user is on.
func (m *Menu) Tidy(ctx context.Context, msg input.Message) {
	if msg.MessageID == 0 || !m.st.Flag(ctx, store.KeyAutoDeleteUser) {
		return
	}
	m.scr.Discard(ctx, msg.Chat, msg.MessageID)
}

func description(text string) *string {
	if text == "" || text == "-" {
		return nil
	}
	return format.StringPtr(text)
}

func parseStock(text string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
