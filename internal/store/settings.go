package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// Setting keys.
const (
	KeyWelcomeHTML     = "welcome_html"
	KeyAutoDeleteUser  = "auto_delete_user"
	KeyAutoDeleteAdmin = "auto_delete_admin"
	KeyReserveEnabled  = "reserve_enabled"
	KeyReserveText     = "reserve_text"
	KeyReserveUsername = "reserve_tg_username"
	KeyReserveMsgTpl   = "reserve_msg_tpl"
	KeyLinksJSON       = "links_json"
)

// DefaultSettings are inserted on startup when absent. Existing values are
// never overwritten.
var DefaultSettings = map[string]string{
	KeyWelcomeHTML:     "Каталог. Нажмите «Открыть витрину».",
	KeyAutoDeleteUser:  "1",
	KeyAutoDeleteAdmin: "0",
	KeyReserveEnabled:  "1",
	KeyReserveText:     "Забронировать",
	KeyReserveUsername: "",
	KeyReserveMsgTpl:   "Здравствуйте, хочу забронировать украшение {name} (ID: {id}, Размер: {size})",
	KeyLinksJSON:       "[]",
}

// GetSetting returns the stored value and whether the key exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.Get(ctx, &v, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Setting returns the stored value, or def when the key is absent or the
// read fails.
func (s *Store) Setting(ctx context.Context, key, def string) string {
	v, ok, err := s.GetSetting(ctx, key)
	if err != nil || !ok {
		return def
	}
	return v
}

// Flag reads a "1"/"0" setting.
func (s *Store) Flag(ctx context.Context, key string) bool {
	return s.Setting(ctx, key, DefaultSettings[key]) == "1"
}

// SetSetting writes a value; the last write wins.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.Exec(ctx, `INSERT INTO settings(key, value) VALUES(?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SeedDefaults inserts DefaultSettings that are missing. It matches the
// bootstrap seeder signature.
func SeedDefaults(ctx context.Context, db *sqlx.DB) error {
	keys := make([]string, 0, len(DefaultSettings))
	for k := range DefaultSettings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO settings(key, value) VALUES(?, ?)
			ON CONFLICT (key) DO NOTHING`), k, DefaultSettings[k])
		if err != nil {
			return fmt.Errorf("seed setting %s: %w", k, err)
		}
	}
	return nil
}
