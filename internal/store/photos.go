package store

import "context"

// ListPhotos returns a product's photos ordered by id.
func (s *Store) ListPhotos(ctx context.Context, productID int64) ([]Photo, error) {
	var out []Photo
	err := s.Query(ctx, &out, "SELECT id, product_id, file_id FROM photos WHERE product_id = ? ORDER BY id", productID)
	return out, err
}

// CountPhotos counts a product's photos.
func (s *Store) CountPhotos(ctx context.Context, productID int64) (int, error) {
	var n int
	err := s.Get(ctx, &n, "SELECT COUNT(*) FROM photos WHERE product_id = ?", productID)
	return n, err
}

// AddPhoto attaches a file id to a product.
func (s *Store) AddPhoto(ctx context.Context, productID int64, fileID string) (int64, error) {
	return s.Insert(ctx, "INSERT INTO photos(product_id, file_id) VALUES(?, ?)", productID, fileID)
}

// ClearPhotos removes every photo of a product and returns how many went.
func (s *Store) ClearPhotos(ctx context.Context, productID int64) (int64, error) {
	return s.Exec(ctx, "DELETE FROM photos WHERE product_id = ?", productID)
}
