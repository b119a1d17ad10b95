package store

import (
	"context"
	"errors"
	"fmt"
)

const productCols = "p.id, p.name, p.description, p.is_active, p.created_at"

// CountProducts counts all products.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.Get(ctx, &n, "SELECT COUNT(*) FROM products")
	return n, err
}

// ListProducts returns a page of all products ordered by id.
func (s *Store) ListProducts(ctx context.Context, offset, limit int) ([]Product, error) {
	var out []Product
	err := s.Query(ctx, &out,
		"SELECT "+productCols+" FROM products p ORDER BY p.id LIMIT ? OFFSET ?", limit, offset)
	return out, err
}

// CountProductsInCategory counts members of a category.
func (s *Store) CountProductsInCategory(ctx context.Context, categoryID int64, activeOnly bool) (int, error) {
	var n int
	err := s.Get(ctx, &n, `SELECT COUNT(*) FROM products p
		JOIN product_categories pc ON pc.product_id = p.id
		WHERE pc.category_id = ? AND (? = 0 OR p.is_active = 1)`, categoryID, flag(activeOnly))
	return n, err
}

// ListProductsInCategory returns a page of a category's products ordered by id.
func (s *Store) ListProductsInCategory(ctx context.Context, categoryID int64, activeOnly bool, offset, limit int) ([]Product, error) {
	var out []Product
	err := s.Query(ctx, &out, `SELECT `+productCols+` FROM products p
		JOIN product_categories pc ON pc.product_id = p.id
		WHERE pc.category_id = ? AND (? = 0 OR p.is_active = 1)
		ORDER BY p.id LIMIT ? OFFSET ?`, categoryID, flag(activeOnly), limit, offset)
	return out, err
}

// FirstActiveProduct returns the lowest-id active product, used for previews.
func (s *Store) FirstActiveProduct(ctx context.Context) (Product, error) {
	var p Product
	err := s.Get(ctx, &p, "SELECT "+productCols+" FROM products p WHERE p.is_active = 1 ORDER BY p.id LIMIT 1")
	return p, err
}

// GetProduct loads one product.
func (s *Store) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := s.Get(ctx, &p, "SELECT "+productCols+" FROM products p WHERE p.id = ?", id)
	return p, err
}

// CreateProduct inserts an active product and, when categoryID > 0, its
// first membership in the same transaction.
func (s *Store) CreateProduct(ctx context.Context, name string, description *string, categoryID int64) (int64, error) {
	var id int64
	err := s.InTx(ctx, func(c Conn) error {
		var err error
		id, err = c.Insert(ctx, "INSERT INTO products(name, description, is_active) VALUES(?, ?, 1)", name, description)
		if err != nil {
			return err
		}
		if categoryID > 0 {
			_, err = c.Exec(ctx, `INSERT INTO product_categories(product_id, category_id)
				SELECT CAST(? AS BIGINT), id FROM categories WHERE id = ?`, id, categoryID)
		}
		return err
	})
	return id, err
}

// RenameProduct updates the name.
func (s *Store) RenameProduct(ctx context.Context, id int64, name string) error {
	return affected(s.Exec(ctx, "UPDATE products SET name = ? WHERE id = ?", name, id))
}

// SetProductDescription updates or, with nil, clears the description.
func (s *Store) SetProductDescription(ctx context.Context, id int64, description *string) error {
	return affected(s.Exec(ctx, "UPDATE products SET description = ? WHERE id = ?", description, id))
}

// ToggleProduct flips the active flag.
func (s *Store) ToggleProduct(ctx context.Context, id int64) error {
	return affected(s.Exec(ctx, "UPDATE products SET is_active = 1 - is_active WHERE id = ?", id))
}

// DeleteProduct removes the product with its memberships, variants and photos.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	return affected(s.Exec(ctx, "DELETE FROM products WHERE id = ?", id))
}

// ProductCategories lists the categories a product belongs to.
func (s *Store) ProductCategories(ctx context.Context, productID int64) ([]Category, error) {
	var out []Category
	err := s.Query(ctx, &out, `SELECT c.id, c.name, c.is_active FROM categories c
		JOIN product_categories pc ON pc.category_id = c.id
		WHERE pc.product_id = ? ORDER BY c.id`, productID)
	return out, err
}

// SetProductCategories replaces the product's memberships with ids.
// Unknown category ids are skipped.
func (s *Store) SetProductCategories(ctx context.Context, productID int64, ids []int64) error {
	return s.InTx(ctx, func(c Conn) error {
		var exists int
		if err := c.Get(ctx, &exists, "SELECT COUNT(*) FROM products WHERE id = ?", productID); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		if _, err := c.Exec(ctx, "DELETE FROM product_categories WHERE product_id = ?", productID); err != nil {
			return err
		}
		for _, cid := range ids {
			_, err := c.Exec(ctx, `INSERT INTO product_categories(product_id, category_id)
				SELECT CAST(? AS BIGINT), id FROM categories WHERE id = ?
				ON CONFLICT (product_id, category_id) DO NOTHING`, productID, cid)
			if err != nil {
				return fmt.Errorf("membership %d/%d: %w", productID, cid, err)
			}
		}
		return nil
	})
}

// IsNotFound is shorthand for errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
