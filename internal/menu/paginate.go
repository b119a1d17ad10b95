package menu

// Page is one slice of a paginated listing.
type Page struct {
	Index  int
	Offset int
	Limit  int
	Pages  int
	Prev   bool
	Next   bool
}

// Paginate clamps page into the valid range for total items of size per
// page. An empty listing is page 0 without controls.
func Paginate(total, size, page int) Page {
	if size <= 0 {
		size = 1
	}
	if total <= 0 {
		return Page{Limit: size}
	}
	pages := (total + size - 1) / size
	page = max(0, min(page, pages-1))
	offset := page * size
	return Page{
		Index:  page,
		Offset: offset,
		Limit:  size,
		Pages:  pages,
		Prev:   offset > 0,
		Next:   offset+size < total,
	}
}
