package store

// Category groups products; memberships are many-to-many.
type Category struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Active bool   `db:"is_active"`
}

// Product is a catalog item. Stock lives on its variants.
type Product struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	Description *string `db:"description"`
	Active      bool    `db:"is_active"`
	CreatedAt   string  `db:"created_at"`
}

// Variant is a sellable option of a product with its own stock count.
type Variant struct {
	ID        int64  `db:"id"`
	ProductID int64  `db:"product_id"`
	Name      string `db:"name"`
	Stock     int64  `db:"stock"`
}

// Photo references a Telegram file id.
type Photo struct {
	ID        int64  `db:"id"`
	ProductID int64  `db:"product_id"`
	FileID    string `db:"file_id"`
}

// Membership links a product to a category.
type Membership struct {
	ProductID  int64 `db:"product_id"`
	CategoryID int64 `db:"category_id"`
}

// Editor is a delegated staff member with per-area permissions.
type Editor struct {
	UserID      int64  `db:"user_id"`
	Username    string `db:"username"`
	Active      bool   `db:"is_active"`
	PermCats    bool   `db:"perm_cats"`
	PermProds   bool   `db:"perm_prods"`
	PermPhotos  bool   `db:"perm_photos"`
	PermLinks   bool   `db:"perm_links"`
	PermWelcome bool   `db:"perm_welcome"`
	PermReserve bool   `db:"perm_reserve"`
}

// Perm names accepted by Editor.Has and ToggleEditorPerm.
const (
	PermCats    = "cats"
	PermProds   = "prods"
	PermPhotos  = "photos"
	PermLinks   = "links"
	PermWelcome = "welcome"
	PermReserve = "reserve"
)

// PermNames lists permissions in display order.
var PermNames = []string{PermCats, PermProds, PermPhotos, PermLinks, PermWelcome, PermReserve}

var permColumns = map[string]string{
	PermCats:    "perm_cats",
	PermProds:   "perm_prods",
	PermPhotos:  "perm_photos",
	PermLinks:   "perm_links",
	PermWelcome: "perm_welcome",
	PermReserve: "perm_reserve",
}

// Has reports the flag for perm; unknown names are false.
func (e Editor) Has(perm string) bool {
	switch perm {
	case PermCats:
		return e.PermCats
	case PermProds:
		return e.PermProds
	case PermPhotos:
		return e.PermPhotos
	case PermLinks:
		return e.PermLinks
	case PermWelcome:
		return e.PermWelcome
	case PermReserve:
		return e.PermReserve
	}
	return false
}

// User is a directory entry of someone who has written to the bot.
type User struct {
	UserID    int64  `db:"user_id"`
	Username  string `db:"username"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

// ScreenRecord is one displayed message belonging to a chat scope.
type ScreenRecord struct {
	ID        int64  `db:"id"`
	ChatID    int64  `db:"chat_id"`
	Scope     string `db:"scope"`
	MessageID int    `db:"message_id"`
}
