package store

import (
	"context"
	"fmt"
)

const editorCols = `user_id, username, is_active, perm_cats, perm_prods, perm_photos,
	perm_links, perm_welcome, perm_reserve`

// GetEditor loads one editor row.
func (s *Store) GetEditor(ctx context.Context, userID int64) (Editor, error) {
	var e Editor
	err := s.Get(ctx, &e, "SELECT "+editorCols+" FROM editors WHERE user_id = ?", userID)
	return e, err
}

// ListEditors returns every editor ordered by user id.
func (s *Store) ListEditors(ctx context.Context) ([]Editor, error) {
	var out []Editor
	err := s.Query(ctx, &out, "SELECT "+editorCols+" FROM editors ORDER BY user_id")
	return out, err
}

// UpsertEditor adds an editor with every permission, or reactivates an
// existing one and refreshes its username. Permissions of an existing row
// are kept.
func (s *Store) UpsertEditor(ctx context.Context, userID int64, username string) error {
	_, err := s.Exec(ctx, `INSERT INTO editors(user_id, username, is_active) VALUES(?, ?, 1)
		ON CONFLICT (user_id) DO UPDATE SET username = excluded.username, is_active = 1`, userID, username)
	return err
}

// ToggleEditor flips the active flag.
func (s *Store) ToggleEditor(ctx context.Context, userID int64) error {
	return affected(s.Exec(ctx, "UPDATE editors SET is_active = 1 - is_active WHERE user_id = ?", userID))
}

// ToggleEditorPerm flips one permission flag; perm is one of PermNames.
func (s *Store) ToggleEditorPerm(ctx context.Context, userID int64, perm string) error {
	col, ok := permColumns[perm]
	if !ok {
		return fmt.Errorf("unknown permission %q", perm)
	}
	return affected(s.Exec(ctx, "UPDATE editors SET "+col+" = 1 - "+col+" WHERE user_id = ?", userID))
}

// DeleteEditor removes an editor.
func (s *Store) DeleteEditor(ctx context.Context, userID int64) error {
	return affected(s.Exec(ctx, "DELETE FROM editors WHERE user_id = ?", userID))
}
