// Package transfer moves the catalog in and out of the store: JSON
// export/import with upsert-by-id semantics, sqlite backups, and the
// whole-file restore path.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrMalformed rejects a document before any store mutation.
	ErrMalformed = errors.New("transfer: malformed document")
	// ErrUnsupported reports an operation the active driver cannot do.
	ErrUnsupported = errors.New("transfer: unsupported for this database driver")
)

// Flag is a 0/1 switch that also accepts JSON booleans and quoted numbers.
type Flag bool

// MarshalJSON writes 0 or 1.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON accepts 0/1, true/false and their quoted forms.
func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	switch strings.ToLower(s) {
	case "true":
		*f = true
		return nil
	case "false", "":
		*f = false
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid flag %q", s)
	}
	*f = n != 0
	return nil
}

func flagOr(f *Flag, def bool) bool {
	if f == nil {
		return def
	}
	return bool(*f)
}

// Category record.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive *Flag  `json:"is_active,omitempty"`
}

// Product record. CategoryID is the single category reference of older
// exports; it only seeds memberships when none are listed.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsActive    *Flag   `json:"is_active,omitempty"`
	CreatedAt   *string `json:"created_at,omitempty"`
	CategoryID  *int64  `json:"category_id,omitempty"`
}

// Membership record.
type Membership struct {
	ProductID  int64 `json:"product_id"`
	CategoryID int64 `json:"category_id"`
}

// Variant record.
type Variant struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Stock     *int64 `json:"stock,omitempty"`
}

// Photo record. ID is optional.
type Photo struct {
	ID        *int64 `json:"id,omitempty"`
	ProductID int64  `json:"product_id"`
	FileID    string `json:"file_id"`
}

// Document is the portable catalog snapshot.
type Document struct {
	Categories        []Category   `json:"categories"`
	Products          []Product    `json:"products"`
	ProductCategories []Membership `json:"product_categories"`
	ProductVariants   []Variant    `json:"product_variants"`
	Photos            []Photo      `json:"photos"`
}

// Stats counts the records of a document.
type Stats struct {
	Categories  int
	Products    int
	Memberships int
	Variants    int
	Photos      int
}

// Stats returns the record counts.
func (d Document) Stats() Stats {
	return Stats{
		Categories:  len(d.Categories),
		Products:    len(d.Products),
		Memberships: len(d.ProductCategories),
		Variants:    len(d.ProductVariants),
		Photos:      len(d.Photos),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("категорий: %d, товаров: %d, связей: %d, вариантов: %d, фото: %d",
		s.Categories, s.Products, s.Memberships, s.Variants, s.Photos)
}

// ParseDocument decodes and validates a document. Unknown fields are
// ignored; every failure wraps ErrMalformed.
func ParseDocument(r io.Reader) (Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("%w: read: %v", ErrMalformed, err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return Document{}, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	if _, ok := top["categories"]; !ok {
		return Document{}, fmt.Errorf("%w: missing \"categories\"", ErrMalformed)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Validate checks ids and required fields.
func (d Document) Validate() error {
	bad := func(kind string, i int, why string) error {
		return fmt.Errorf("%w: %s[%d]: %s", ErrMalformed, kind, i, why)
	}
	for i, c := range d.Categories {
		if c.ID <= 0 {
			return bad("categories", i, "id must be positive")
		}
		if strings.TrimSpace(c.Name) == "" {
			return bad("categories", i, "empty name")
		}
	}
	for i, p := range d.Products {
		if p.ID <= 0 {
			return bad("products", i, "id must be positive")
		}
		if strings.TrimSpace(p.Name) == "" {
			return bad("products", i, "empty name")
		}
	}
	for i, m := range d.ProductCategories {
		if m.ProductID <= 0 || m.CategoryID <= 0 {
			return bad("product_categories", i, "ids must be positive")
		}
	}
	for i, v := range d.ProductVariants {
		if v.ID <= 0 || v.ProductID <= 0 {
			return bad("product_variants", i, "ids must be positive")
		}
		if strings.TrimSpace(v.Name) == "" {
			return bad("product_variants", i, "empty name")
		}
	}
	for i, ph := range d.Photos {
		if ph.ProductID <= 0 || (ph.ID != nil && *ph.ID <= 0) {
			return bad("photos", i, "ids must be positive")
		}
		if strings.TrimSpace(ph.FileID) == "" {
			return bad("photos", i, "empty file_id")
		}
	}
	return nil
}

// Encode writes the document as indented JSON.
func (d Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
