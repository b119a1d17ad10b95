package store

import (
	"context"
	"strings"
)

// TouchUser records or refreshes a directory entry.
func (s *Store) TouchUser(ctx context.Context, u User) error {
	_, err := s.Exec(ctx, `INSERT INTO users(user_id, username, first_name, last_name, updated_at)
		VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET username = excluded.username,
			first_name = excluded.first_name, last_name = excluded.last_name,
			updated_at = CURRENT_TIMESTAMP`,
		u.UserID, u.Username, u.FirstName, u.LastName)
	return err
}

// GetUser loads a directory entry by id.
func (s *Store) GetUser(ctx context.Context, userID int64) (User, error) {
	var u User
	err := s.Get(ctx, &u, "SELECT user_id, username, first_name, last_name FROM users WHERE user_id = ?", userID)
	return u, err
}

// FindUserByUsername matches a handle case-insensitively; a leading "@" is ignored.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if name == "" {
		return u, ErrNotFound
	}
	err := s.Get(ctx, &u, `SELECT user_id, username, first_name, last_name FROM users
		WHERE lower(username) = ? ORDER BY updated_at DESC LIMIT 1`, name)
	return u, err
}
