package store

import "context"

const categoryCols = "id, name, is_active"

// CountCategories counts categories, optionally only active ones.
func (s *Store) CountCategories(ctx context.Context, activeOnly bool) (int, error) {
	var n int
	err := s.Get(ctx, &n, "SELECT COUNT(*) FROM categories WHERE (? = 0 OR is_active = 1)", flag(activeOnly))
	return n, err
}

// ListCategories returns a page of categories ordered by id.
func (s *Store) ListCategories(ctx context.Context, activeOnly bool, offset, limit int) ([]Category, error) {
	var out []Category
	err := s.Query(ctx, &out,
		"SELECT "+categoryCols+" FROM categories WHERE (? = 0 OR is_active = 1) ORDER BY id LIMIT ? OFFSET ?",
		flag(activeOnly), limit, offset)
	return out, err
}

// AllCategories returns every category ordered by id.
func (s *Store) AllCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := s.Query(ctx, &out, "SELECT "+categoryCols+" FROM categories ORDER BY id")
	return out, err
}

// GetCategory loads one category.
func (s *Store) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := s.Get(ctx, &c, "SELECT "+categoryCols+" FROM categories WHERE id = ?", id)
	return c, err
}

// CreateCategory inserts an active category.
func (s *Store) CreateCategory(ctx context.Context, name string) (int64, error) {
	return s.Insert(ctx, "INSERT INTO categories(name, is_active) VALUES(?, 1)", name)
}

// RenameCategory updates the name.
func (s *Store) RenameCategory(ctx context.Context, id int64, name string) error {
	return affected(s.Exec(ctx, "UPDATE categories SET name = ? WHERE id = ?", name, id))
}

// ToggleCategory flips the active flag.
func (s *Store) ToggleCategory(ctx context.Context, id int64) error {
	return affected(s.Exec(ctx, "UPDATE categories SET is_active = 1 - is_active WHERE id = ?", id))
}

// DeleteCategory removes the category and, by cascade, its memberships only.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return affected(s.Exec(ctx, "DELETE FROM categories WHERE id = ?", id))
}

func affected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
