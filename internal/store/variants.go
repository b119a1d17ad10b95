package store

import "context"

const variantCols = "id, product_id, name, stock"

// ListVariants returns a product's variants ordered by id.
func (s *Store) ListVariants(ctx context.Context, productID int64) ([]Variant, error) {
	var out []Variant
	err := s.Query(ctx, &out, "SELECT "+variantCols+" FROM product_variants WHERE product_id = ? ORDER BY id", productID)
	return out, err
}

// GetVariant loads a variant scoped to its product.
func (s *Store) GetVariant(ctx context.Context, productID, id int64) (Variant, error) {
	var v Variant
	err := s.Get(ctx, &v, "SELECT "+variantCols+" FROM product_variants WHERE id = ? AND product_id = ?", id, productID)
	return v, err
}

// CreateVariant inserts a variant of an existing product.
func (s *Store) CreateVariant(ctx context.Context, productID int64, name string, stock int64) (int64, error) {
	return s.Insert(ctx, "INSERT INTO product_variants(product_id, name, stock) VALUES(?, ?, ?)", productID, name, stock)
}

// RenameVariant updates the name.
func (s *Store) RenameVariant(ctx context.Context, productID, id int64, name string) error {
	return affected(s.Exec(ctx, "UPDATE product_variants SET name = ? WHERE id = ? AND product_id = ?", name, id, productID))
}

// SetVariantStock updates the stock count.
func (s *Store) SetVariantStock(ctx context.Context, productID, id, stock int64) error {
	return affected(s.Exec(ctx, "UPDATE product_variants SET stock = ? WHERE id = ? AND product_id = ?", stock, id, productID))
}

// DeleteVariant removes a variant.
func (s *Store) DeleteVariant(ctx context.Context, productID, id int64) error {
	return affected(s.Exec(ctx, "DELETE FROM product_variants WHERE id = ? AND product_id = ?", id, productID))
}
