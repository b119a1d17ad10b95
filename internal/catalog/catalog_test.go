package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/catalogbot/internal/store"
)

func texts(links []Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Text)
	}
	return out
}

func TestLinkReordering(t *testing.T) {
	links := []Link{{Text: "1"}, {Text: "2"}, {Text: "3"}}

	links = MoveDown(links, 0)
	assert.Equal(t, []string{"2", "1", "3"}, texts(links))
	links = MoveDown(links, 1)
	assert.Equal(t, []string{"2", "3", "1"}, texts(links))
	links = MoveDown(links, 2)
	assert.Equal(t, []string{"2", "3", "1"}, texts(links))

	links = MoveUp(links, 0)
	assert.Equal(t, []string{"2", "3", "1"}, texts(links))
	links = MoveUp(links, 2)
	assert.Equal(t, []string{"2", "1", "3"}, texts(links))

	links = Remove(links, 1)
	assert.Equal(t, []string{"2", "3"}, texts(links))
	assert.Len(t, Remove(links, 9), 2)
}

func TestParseLinksNormalises(t *testing.T) {
	raw := `[{"text":" Site ","url":"https://a.example","active":1},
		{"text":"Off","url":"https://b.example","active":0},
		{"text":"","url":"https://c.example"},
		"junk",
		{"text":"Bool","url":"https://d.example","active":true},
		{"text":"Default","url":"https://e.example"}]`
	links := ParseLinks(raw)
	require.Len(t, links, 4)
	assert.Equal(t, "Site", links[0].Text)
	assert.False(t, links[1].Active)
	assert.Equal(t, []string{"Site", "Bool", "Default"}, texts(PublicLinks(links)))

	assert.Empty(t, ParseLinks("{oops"))
	assert.Empty(t, ParseLinks(`{"text":"x"}`))
}

func TestParseLinksFalsyFlags(t *testing.T) {
	raw := `[{"text":"Null","url":"https://a.example","active":null},
		{"text":"Empty","url":"https://b.example","active":""},
		{"text":"False","url":"https://c.example","active":false},
		{"text":"Zero","url":"https://d.example","active":"0"},
		{"text":"Two","url":"https://e.example","active":2},
		{"text":"Str","url":"https://f.example","active":"1"}]`
	links := ParseLinks(raw)
	require.Len(t, links, 6)
	assert.Equal(t, []string{"Two", "Str"}, texts(PublicLinks(links)))
}

func TestEncodeLinksRoundTrip(t *testing.T) {
	in := []Link{{Text: "Сайт", URL: "https://x.example", Active: true}, {Text: "Off", URL: "http://y", Active: false}}
	raw, err := EncodeLinks(in)
	require.NoError(t, err)
	assert.Contains(t, raw, `"active":1`)
	assert.Contains(t, raw, "Сайт")
	assert.Equal(t, in, ParseLinks(raw))

	empty, err := EncodeLinks(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}

func TestValidURL(t *testing.T) {
	assert.True(t, ValidURL("https://example.com"))
	assert.True(t, ValidURL("HTTP://example.com"))
	assert.False(t, ValidURL("ftp://example.com"))
	assert.False(t, ValidURL("https://"))
	assert.False(t, ValidURL("example.com"))
}

func TestStockOf(t *testing.T) {
	none := StockOf(nil)
	assert.False(t, none.HasVariants)
	assert.False(t, none.InStock())
	assert.Equal(t, []string{"Варианты: нет."}, none.Lines)

	s := StockOf([]store.Variant{{Name: "16", Stock: 2}, {Name: "<17>", Stock: 0}})
	assert.EqualValues(t, 2, s.Total)
	assert.Equal(t, []string{"Варианты:", "• 16 — 2", "• &lt;17&gt; — 0", "Итого: 2"}, s.Lines)
}

func TestProductText(t *testing.T) {
	desc := "Серебро 925"
	p := store.Product{ID: 3, Name: "Кольцо", Description: &desc}
	text := ProductText(p, []store.Category{{Name: "A"}, {Name: "B"}}, StockOf(nil))
	assert.Equal(t, "<b>Кольцо</b>\nКатегории: A, B\nВарианты: нет.\n<b>Нет в наличии</b>\n\nСеребро 925", text)

	card := CardText(p, StockOf([]store.Variant{{Name: "S", Stock: 1}}))
	assert.NotContains(t, card, "Нет в наличии")
	assert.Equal(t, "—", CategoriesLabel(nil))
}

type mapSettings map[string]string

func (m mapSettings) Setting(_ context.Context, key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func TestReservationURL(t *testing.T) {
	ctx := context.Background()
	r := LoadReservation(ctx, mapSettings{
		store.KeyReserveEnabled:  "1",
		store.KeyReserveUsername: "https://t.me/shop_owner?start=1",
		store.KeyReserveMsgTpl:   "Бронь {name} #{id} {size}",
	})
	assert.Equal(t, "Забронировать", r.Text)
	assert.Equal(t, "Бронь Кольцо #7 —", r.Message(7, "Кольцо", " "))
	assert.Equal(t, "https://t.me/shop_owner?text=%D0%91%D1%80%D0%BE%D0%BD%D1%8C%20%D0%9A%D0%BE%D0%BB%D1%8C%D1%86%D0%BE%20%237%20%E2%80%94",
		r.URL(7, "Кольцо", ""))

	r.Username = ""
	assert.Empty(t, r.URL(7, "x", ""))
	r.Username = "@shop"
	r.Enabled = false
	assert.Empty(t, r.URL(7, "x", ""))

	assert.Equal(t, "shop", NormalizeUsername("@shop"))
	assert.Equal(t, "shop", NormalizeUsername(" shop "))
	assert.Equal(t, "abc", NormalizeUsername("t.me/abc"))
}
