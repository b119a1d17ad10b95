package store

import "context"

// AllProducts returns every product ordered by id.
func (s *Store) AllProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	err := s.Query(ctx, &out, "SELECT "+productCols+" FROM products p ORDER BY p.id")
	return out, err
}

// AllMemberships returns every product/category link ordered by product.
func (s *Store) AllMemberships(ctx context.Context) ([]Membership, error) {
	var out []Membership
	err := s.Query(ctx, &out,
		"SELECT product_id, category_id FROM product_categories ORDER BY product_id, category_id")
	return out, err
}

// AllVariants returns every variant ordered by id.
func (s *Store) AllVariants(ctx context.Context) ([]Variant, error) {
	var out []Variant
	err := s.Query(ctx, &out, "SELECT "+variantCols+" FROM product_variants ORDER BY id")
	return out, err
}

// AllPhotos returns every photo ordered by id.
func (s *Store) AllPhotos(ctx context.Context) ([]Photo, error) {
	var out []Photo
	err := s.Query(ctx, &out, "SELECT id, product_id, file_id FROM photos ORDER BY id")
	return out, err
}
