package menu

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/catalogbot/core/telegram/callbacks"
	"github.com/m3rciful/catalogbot/core/telegram/keyboard"
	"github.com/m3rciful/catalogbot/core/telegram/state"
	"github.com/m3rciful/catalogbot/internal/access"
	"github.com/m3rciful/catalogbot/internal/catalog"
	"github.com/m3rciful/catalogbot/internal/input"
	"github.com/m3rciful/catalogbot/internal/screen"
	"github.com/m3rciful/catalogbot/internal/store"
	"github.com/m3rciful/catalogbot/internal/store/storetest"
	"github.com/m3rciful/catalogbot/internal/transfer"
)

const (
	owner  int64 = 1
	editor int64 = 10
	guest  int64 = 99
)

type message struct {
	text string
	kb   keyboard.Rows
	doc  *screen.Document
}

type fakeMessenger struct {
	mu      sync.Mutex
	next    int
	sent    []message
	deleted []int
}

func (f *fakeMessenger) push(m message) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.sent = append(f.sent, m)
	return f.next
}

func (f *fakeMessenger) SendText(_ context.Context, _ int64, html string, kb keyboard.Rows) (int, error) {
	return f.push(message{text: html, kb: kb}), nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, _ int64, _ string, caption string, kb keyboard.Rows) (int, error) {
	return f.push(message{text: caption, kb: kb}), nil
}

func (f *fakeMessenger) SendGallery(_ context.Context, _ int64, ids []string) ([]int, error) {
	out := make([]int, 0, len(ids))
	for range ids {
		out = append(out, f.push(message{}))
	}
	return out, nil
}

func (f *fakeMessenger) SendDocument(_ context.Context, _ int64, doc screen.Document) (int, error) {
	return f.push(message{text: doc.Caption, doc: &doc}), nil
}

func (f *fakeMessenger) Delete(_ context.Context, _ int64, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeMessenger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeMessenger) last() message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return message{}
	}
	return f.sent[len(f.sent)-1]
}

// tokens returns the callback data of every button of the last message.
func (f *fakeMessenger) tokens() []string {
	var out []string
	for _, row := range f.last().kb {
		for _, b := range row {
			if b.Data != "" {
				out = append(out, b.Data)
			}
		}
	}
	return out
}

type env struct {
	m   *Menu
	st  *store.Store
	msg *fakeMessenger
	in  *input.Engine
}

func newEnv(t *testing.T) env {
	t.Helper()
	st := storetest.New(t)
	require.NoError(t, st.UpsertEditor(context.Background(), editor, "ed"))

	msg := &fakeMessenger{}
	in := input.New(state.NewMemoryManager())
	m, err := New(Deps{
		Store:     st,
		Access:    access.NewResolver(access.NewOwners([]int64{owner}), st),
		Screens:   screen.New(msg, st),
		Input:     in,
		Transfer:  transfer.New(st, transfer.Config{Dir: filepath.Join(t.TempDir(), "backups")}),
		UploadDir: filepath.Join(t.TempDir(), "uploads"),
	})
	require.NoError(t, err)
	return env{m: m, st: st, msg: msg, in: in}
}

func as(user int64) Request { return Request{Chat: user, User: user} }

func (e env) text(t *testing.T, user int64, text string) {
	t.Helper()
	handled, err := e.m.Text(context.Background(), input.Text{
		Message: input.Message{Chat: user, User: user, MessageID: 500},
		Text:    text,
	})
	require.NoError(t, err)
	require.True(t, handled, "reply %q not consumed", text)
}

func (e env) pending(user int64) state.State {
	s, _ := e.in.Pending(user)
	return s.State
}

func TestPaginate(t *testing.T) {
	assert.Equal(t, Page{Limit: 4}, Paginate(0, 4, 3))

	pg := Paginate(9, 4, 5)
	assert.Equal(t, 2, pg.Index)
	assert.Equal(t, 8, pg.Offset)
	assert.Equal(t, 3, pg.Pages)
	assert.True(t, pg.Prev)
	assert.False(t, pg.Next)

	pg = Paginate(9, 4, -1)
	assert.Equal(t, 0, pg.Offset)
	assert.False(t, pg.Prev)
	assert.True(t, pg.Next)

	assert.Equal(t, 1, Paginate(3, 0, 0).Limit)
}

func sampleArgs(t *testing.T, pattern string) []any {
	t.Helper()
	var args []any
	for _, seg := range strings.Split(pattern, callbacks.Sep) {
		switch {
		case seg == "#":
			args = append(args, 7)
		case strings.HasPrefix(seg, "{"):
			args = append(args, strings.Split(strings.Trim(seg, "{}"), "|")[0])
		}
	}
	return args
}

func TestEveryPatternRoundTrips(t *testing.T) {
	e := newEnv(t)
	patterns := e.m.Patterns()
	require.NotEmpty(t, patterns)
	for _, raw := range patterns {
		p := callbacks.MustCompile(raw)
		token, err := p.Format(sampleArgs(t, raw)...)
		require.NoError(t, err, raw)
		assert.LessOrEqual(t, len(token), callbacks.MaxLen)

		_, got, _, ok := e.m.table.Lookup(token)
		require.True(t, ok, token)
		assert.Equal(t, raw, got.String(), token)
	}
}

func TestMostSpecificPatternWins(t *testing.T) {
	e := newEnv(t)
	cases := map[string]callbacks.Pattern{
		"adm:cat:delete:ok:5":    admCatDeleteYes,
		"adm:cat:delete:5":       admCatDelete,
		"adm:cat:add":            admCatAdd,
		"adm:prod:add":           admProdAdd,
		"adm:prod:add:3":         admProdAddIn,
		"adm:prod:3":             admProd,
		"adm:variant:add:4":      admVariantAdd,
		"adm:variant:4:2":        admVariant,
		"adm:editor:add":         admEditorAdd,
		"adm:editor:perm:cats:5": admEditorPerm,
	}
	for token, want := range cases {
		_, got, _, ok := e.m.table.Lookup(token)
		require.True(t, ok, token)
		assert.Equal(t, want.String(), got.String(), token)
	}
}

func TestUnknownTokenTouchesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, token := range []string{"adm:nope", "shop:prod:x:1", "", "adm:cat:-1"} {
		err := e.m.Route(ctx, as(owner), token)
		assert.ErrorIs(t, err, ErrUnknownAction, token)
	}
	assert.Zero(t, e.msg.count())
}

func TestCapabilityGate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.st.ToggleEditorPerm(ctx, editor, store.PermProds))
	pid, err := e.st.CreateProduct(ctx, "Кольцо", nil, 0)
	require.NoError(t, err)

	err = e.m.Route(ctx, as(editor), admProdToggle.MustFormat(pid))
	assert.ErrorIs(t, err, ErrDenied)
	p, err := e.st.GetProduct(ctx, pid)
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Zero(t, e.msg.count())

	require.NoError(t, e.m.Route(ctx, as(editor), admCats.MustFormat(0)))
	assert.Equal(t, 1, e.msg.count())

	// the panel hides sections the editor cannot open
	require.NoError(t, e.m.Route(ctx, as(editor), admHome.MustFormat()))
	assert.NotContains(t, e.msg.tokens(), admProds.MustFormat(0))
	assert.Contains(t, e.msg.tokens(), admCats.MustFormat(0))
	assert.NotContains(t, e.msg.tokens(), admData.MustFormat())
}

func TestStaffTokensNeedStaff(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, e.m.Route(ctx, as(guest), "adm:home"), ErrDenied)
	assert.ErrorIs(t, e.m.Route(ctx, as(guest), "adm:cats:0"), ErrDenied)
	assert.ErrorIs(t, e.m.Route(ctx, as(editor), "adm:data"), ErrDenied)
	assert.ErrorIs(t, e.m.Route(ctx, as(editor), "adm:editors"), ErrDenied)
	assert.ErrorIs(t, e.m.Admin(ctx, as(guest)), ErrDenied)
	assert.Zero(t, e.msg.count())

	require.NoError(t, e.st.ToggleEditor(ctx, editor))
	assert.ErrorIs(t, e.m.Route(ctx, as(editor), "adm:home"), ErrDenied, "suspended editor")

	require.NoError(t, e.m.Route(ctx, as(guest), "shop:cats:0"))
	assert.Equal(t, "Категорий пока нет.", e.msg.last().text)
}

func TestShopHidesInactive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	visible, err := e.st.CreateCategory(ctx, "Серьги")
	require.NoError(t, err)
	hidden, err := e.st.CreateCategory(ctx, "Архив")
	require.NoError(t, err)
	require.NoError(t, e.st.ToggleCategory(ctx, hidden))

	require.NoError(t, e.m.Route(ctx, as(guest), shopCat.MustFormat(hidden, 0)))
	assert.Equal(t, "Выберите категорию:", e.msg.last().text)
	assert.Contains(t, e.msg.tokens(), shopCat.MustFormat(visible, 0))
	assert.NotContains(t, e.msg.tokens(), shopCat.MustFormat(hidden, 0))

	require.NoError(t, e.m.Route(ctx, as(guest), shopCat.MustFormat(visible, 0)))
	assert.Equal(t, "В этой категории пока нет активных товаров.", e.msg.last().text)

	pid, err := e.st.CreateProduct(ctx, "Серьги-кольца", nil, visible)
	require.NoError(t, err)
	require.NoError(t, e.st.ToggleProduct(ctx, pid))
	require.NoError(t, e.m.Route(ctx, as(guest), shopProd.MustFormat(visible, pid)))
	assert.Equal(t, "В этой категории пока нет активных товаров.", e.msg.last().text)
}

func TestCategoryAddFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.m.Route(ctx, as(editor), admCatAdd.MustFormat()))
	assert.Equal(t, tagCatAdd, e.pending(editor))

	e.text(t, editor, "  Кольца ")
	cats, err := e.st.AllCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Кольца", cats[0].Name)
	assert.Empty(t, e.pending(editor))
	assert.Contains(t, e.msg.deleted, 500, "consumed reply removed")
}

func TestNavigationKeepsPending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.m.Route(ctx, as(owner), admCatAdd.MustFormat()))
	require.NoError(t, e.m.Route(ctx, as(owner), admHome.MustFormat()))
	require.NoError(t, e.m.Admin(ctx, as(owner)))
	assert.Equal(t, tagCatAdd, e.pending(owner))

	handled, err := e.m.Text(ctx, input.Text{Message: input.Message{Chat: owner, User: owner}, Text: "Серьги"})
	require.NoError(t, err)
	assert.True(t, handled)
	n, err := e.st.CountCategories(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPhotoCaptureSurvivesNavigation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid, err := e.st.CreateProduct(ctx, "Кольцо", nil, 0)
	require.NoError(t, err)

	require.NoError(t, e.m.Route(ctx, as(owner), admPhotoAdd.MustFormat(pid)))
	require.NoError(t, e.m.Route(ctx, as(owner), admCats.MustFormat(0)))

	handled, err := e.m.Photo(ctx, input.Photo{Message: input.Message{Chat: owner, User: owner}, FileID: "f1"})
	require.NoError(t, err)
	assert.True(t, handled)
	n, err := e.st.CountPhotos(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, tagPhotoAdd, e.pending(owner))

	require.NoError(t, e.m.Route(ctx, as(owner), admPhotoDone.MustFormat(pid)))
	assert.Empty(t, e.pending(owner))
	handled, err = e.m.Photo(ctx, input.Photo{Message: input.Message{Chat: owner, User: owner}, FileID: "f2"})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestVariantStockValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid, err := e.st.CreateProduct(ctx, "Кольцо", nil, 0)
	require.NoError(t, err)

	require.NoError(t, e.m.Route(ctx, as(owner), admVariantAdd.MustFormat(pid)))
	e.text(t, owner, "17")
	assert.Equal(t, tagVariantAddStock, e.pending(owner))

	e.text(t, owner, "много")
	s, ok := e.in.Pending(owner)
	require.True(t, ok, "re-armed after invalid number")
	assert.Equal(t, tagVariantAddStock, s.State)
	assert.Equal(t, "17", s.Field("name"))
	assert.Equal(t, askNumber, e.msg.last().text)

	e.text(t, owner, "-1")
	assert.Equal(t, tagVariantAddStock, e.pending(owner))

	e.text(t, owner, "3")
	vs, err := e.st.ListVariants(ctx, pid)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "17", vs[0].Name)
	assert.Equal(t, int64(3), vs[0].Stock)
	assert.Empty(t, e.pending(owner))
}

func TestProductDescriptionDash(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cid, err := e.st.CreateCategory(ctx, "Кольца")
	require.NoError(t, err)

	require.NoError(t, e.m.Route(ctx, as(owner), admProdAddIn.MustFormat(cid)))
	e.text(t, owner, "Кольцо с топазом")
	e.text(t, owner, "-")

	list, err := e.st.ListProductsInCategory(ctx, cid, false, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Description)

	require.NoError(t, e.m.Route(ctx, as(owner), admProdDesc.MustFormat(list[0].ID)))
	e.text(t, owner, "Серебро")
	p, err := e.st.GetProduct(ctx, list[0].ID)
	require.NoError(t, err)
	require.NotNil(t, p.Description)
	assert.Equal(t, "Серебро", *p.Description)
}

func TestPickerCommitsOnDone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, err := e.st.CreateCategory(ctx, "A")
	require.NoError(t, err)
	b, err := e.st.CreateCategory(ctx, "B")
	require.NoError(t, err)
	pid, err := e.st.CreateProduct(ctx, "P", nil, a)
	require.NoError(t, err)

	route := func(token string) {
		t.Helper()
		require.NoError(t, e.m.Route(ctx, as(owner), token))
	}
	route(admProdCats.MustFormat(pid))
	assert.Equal(t, pickerTitle, e.msg.last().text)
	route(admProdCatsToggle.MustFormat(pid, b))
	route(admProdCatsToggle.MustFormat(pid, a))

	// nothing is written before done
	cats, err := e.st.ProductCategories(ctx, pid)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, a, cats[0].ID)

	route(admProdCatsDone.MustFormat(pid))
	cats, err = e.st.ProductCategories(ctx, pid)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, b, cats[0].ID)
	assert.False(t, e.m.picks.active(owner, pid))
}

func TestPickerToggleWithoutEntry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, err := e.st.CreateCategory(ctx, "A")
	require.NoError(t, err)
	b, err := e.st.CreateCategory(ctx, "B")
	require.NoError(t, err)
	pid, err := e.st.CreateProduct(ctx, "P", nil, a)
	require.NoError(t, err)

	require.NoError(t, e.m.Route(ctx, as(owner), admProdCatsToggle.MustFormat(pid, b)))
	ids, ok := e.m.picks.ids(owner, pid)
	require.True(t, ok)
	assert.Equal(t, []int64{a, b}, ids)
}

func TestLinkFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.m.Route(ctx, as(owner), admLinkAdd.MustFormat()))
	e.text(t, owner, "Сайт")
	e.text(t, owner, "example.com")
	assert.Equal(t, tagLinkAddURL, e.pending(owner))
	assert.Equal(t, askURL, e.msg.last().text)
	e.text(t, owner, "https://example.com")

	links := e.m.loadLinks(ctx)
	require.Len(t, links, 1)
	assert.Equal(t, catalog.Link{Text: "Сайт", URL: "https://example.com", Active: true}, links[0])

	require.NoError(t, e.m.Start(ctx, as(guest)))
	var urls []string
	for _, row := range e.msg.last().kb {
		for _, b := range row {
			if b.URL != "" {
				urls = append(urls, b.URL)
			}
		}
	}
	assert.Equal(t, []string{"https://example.com"}, urls)

	require.NoError(t, e.m.Route(ctx, as(owner), admLinkToggle.MustFormat(0)))
	assert.Empty(t, catalog.PublicLinks(e.m.loadLinks(ctx)))

	require.NoError(t, e.m.Route(ctx, as(owner), admLinkDelete.MustFormat(0)))
	assert.Empty(t, e.m.loadLinks(ctx))

	// stale index shows the list again
	require.NoError(t, e.m.Route(ctx, as(owner), admLinkEdit.MustFormat(4)))
	assert.Contains(t, e.msg.last().text, "Главные кнопки")
}

func TestReservationSettings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.m.Route(ctx, as(owner), admReserveUser.MustFormat()))
	e.text(t, owner, "https://t.me/shop_owner")
	assert.Equal(t, "shop_owner", e.st.Setting(ctx, store.KeyReserveUsername, ""))
	assert.Contains(t, e.msg.last().text, "@shop_owner")

	enabled := e.st.Flag(ctx, store.KeyReserveEnabled)
	require.NoError(t, e.m.Route(ctx, as(owner), admReserveOn.MustFormat()))
	assert.Equal(t, !enabled, e.st.Flag(ctx, store.KeyReserveEnabled))
}

func TestEditorAdd(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.st.TouchUser(ctx, store.User{UserID: 20, Username: "Alice"}))

	require.NoError(t, e.m.Route(ctx, as(owner), admEditorAdd.MustFormat()))
	e.text(t, owner, "@nobody")
	assert.Contains(t, e.msg.last().text, "не найден")

	require.NoError(t, e.m.Route(ctx, as(owner), admEditorAdd.MustFormat()))
	e.text(t, owner, "@alice")
	ed, err := e.st.GetEditor(ctx, 20)
	require.NoError(t, err)
	assert.True(t, ed.Active)
	assert.Equal(t, "Редактор 20 добавлен.", e.msg.last().text)

	require.NoError(t, e.m.Route(ctx, as(owner), admEditorPerm.MustFormat(store.PermPhotos, int64(20))))
	ed, err = e.st.GetEditor(ctx, 20)
	require.NoError(t, err)
	assert.False(t, ed.PermPhotos)
}

func TestRevokedCapabilityRejectsPendingReply(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.m.Route(ctx, as(editor), admCatAdd.MustFormat()))
	require.NoError(t, e.st.ToggleEditorPerm(ctx, editor, store.PermCats))

	handled, err := e.m.Text(ctx, input.Text{Message: input.Message{Chat: editor, User: editor}, Text: "X"})
	assert.True(t, handled)
	assert.ErrorIs(t, err, ErrDenied)
	n, err := e.st.CountCategories(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := `{"categories":[{"id":1,"name":"Кольца"}],"products":[{"id":1,"name":"P","description":null}],
		"product_categories":[{"product_id":1,"category_id":1}]}`
	fetch := func(body string) func(context.Context, string) error {
		return func(_ context.Context, dst string) error {
			return os.WriteFile(dst, []byte(body), 0o600)
		}
	}

	handled, err := e.m.Upload(ctx, Upload{Request: as(editor), FileName: "a.json", Fetch: fetch(doc)})
	require.NoError(t, err)
	assert.False(t, handled, "editors cannot import")

	handled, err = e.m.Upload(ctx, Upload{Request: as(owner), FileName: "notes.txt", Fetch: fetch("x")})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "Поддерживаются файлы .json и .db.", e.msg.last().text)

	handled, err = e.m.Upload(ctx, Upload{Request: as(owner), FileName: "bad.json", Fetch: fetch("{")})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, strings.HasPrefix(e.msg.last().text, "Неверный JSON."))

	handled, err = e.m.Upload(ctx, Upload{Request: as(owner), FileName: "../../cat.json", Fetch: fetch(doc)})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, strings.HasPrefix(e.msg.last().text, "Импорт JSON завершён."))
	cats, err := e.st.AllCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)

	handled, err = e.m.Upload(ctx, Upload{Request: as(owner), FileName: "x.db", Fetch: fetch("not sqlite")})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "Файл не похож на базу SQLite.", e.msg.last().text)

	staged, err := os.ReadDir(e.m.uploads)
	require.NoError(t, err)
	assert.Empty(t, staged, "staged files removed")
}

func TestExportSendsDocument(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.st.CreateCategory(ctx, "Кольца")
	require.NoError(t, err)

	require.NoError(t, e.m.Route(ctx, as(owner), admDataExport.MustFormat()))
	last := e.msg.last()
	require.NotNil(t, last.doc)
	assert.Equal(t, "catalog-export.json", last.doc.Name)
	assert.Contains(t, last.text, "категорий: 1")
	_, err = os.Stat(last.doc.Path)
	assert.True(t, os.IsNotExist(err), "temp export removed")

	require.NoError(t, e.m.Route(ctx, as(owner), admDataBackup.MustFormat()))
	last = e.msg.last()
	require.NotNil(t, last.doc)
	assert.True(t, strings.HasPrefix(last.doc.Name, "catalog-"))
	assert.True(t, strings.HasPrefix(last.text, "Бэкап "))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "cat.json", safeName("../../cat.json"))
	assert.Equal(t, "___.db", safeName("кат.db"))
	assert.Equal(t, "upload", safeName(""))
}
