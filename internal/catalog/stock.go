package catalog

import (
	"fmt"
	"strings"

	"github.com/m3rciful/catalogbot/core/telegram/format"
	"github.com/m3rciful/catalogbot/internal/store"
)

// Stock summarises a product's variants.
type Stock struct {
	Total       int64
	HasVariants bool
	Lines       []string
}

// StockOf sums variant stock and renders the listing lines.
func StockOf(variants []store.Variant) Stock {
	if len(variants) == 0 {
		return Stock{Lines: []string{"Варианты: нет."}}
	}
	s := Stock{HasVariants: true, Lines: make([]string, 0, len(variants)+2)}
	s.Lines = append(s.Lines, "Варианты:")
	for _, v := range variants {
		s.Total += v.Stock
		s.Lines = append(s.Lines, fmt.Sprintf("• %s — %d", format.EscapeHTML(v.Name), v.Stock))
	}
	s.Lines = append(s.Lines, fmt.Sprintf("Итого: %d", s.Total))
	return s
}

// InStock reports whether anything can be sold.
func (s Stock) InStock() bool { return s.Total > 0 }

// CategoriesLabel joins category names, or "—" when there are none.
func CategoriesLabel(cats []store.Category) string {
	if len(cats) == 0 {
		return "—"
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, format.EscapeHTML(c.Name))
	}
	return strings.Join(names, ", ")
}

// CardText is the short product card of the client grid.
func CardText(p store.Product, stock Stock) string {
	lines := []string{"<b>" + format.EscapeHTML(p.Name) + "</b>"}
	lines = append(lines, stock.Lines...)
	if !stock.InStock() {
		lines = append(lines, "<b>Нет в наличии</b>")
	}
	return strings.Join(lines, "\n")
}

// ProductText is the full product description used by the client product
// screen and the staff product screen.
func ProductText(p store.Product, cats []store.Category, stock Stock) string {
	lines := []string{
		"<b>" + format.EscapeHTML(p.Name) + "</b>",
		"Категории: " + CategoriesLabel(cats),
	}
	lines = append(lines, stock.Lines...)
	if !stock.InStock() {
		lines = append(lines, "<b>Нет в наличии</b>")
	}
	if d := format.DerefString(p.Description, ""); d != "" {
		lines = append(lines, "", format.EscapeHTML(d))
	}
	return strings.Join(lines, "\n")
}
