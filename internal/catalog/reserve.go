package catalog

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/m3rciful/catalogbot/internal/store"
)

// Reservation holds the reservation button settings.
type Reservation struct {
	Enabled  bool
	Text     string
	Username string
	Template string
}

// Settings reads key/value settings.
type Settings interface {
	Setting(ctx context.Context, key, def string) string
}

// LoadReservation reads the reservation settings with their defaults.
func LoadReservation(ctx context.Context, s Settings) Reservation {
	def := store.DefaultSettings
	r := Reservation{
		Enabled:  s.Setting(ctx, store.KeyReserveEnabled, "0") == "1",
		Text:     s.Setting(ctx, store.KeyReserveText, def[store.KeyReserveText]),
		Username: s.Setting(ctx, store.KeyReserveUsername, ""),
		Template: s.Setting(ctx, store.KeyReserveMsgTpl, def[store.KeyReserveMsgTpl]),
	}
	if strings.TrimSpace(r.Text) == "" {
		r.Text = def[store.KeyReserveText]
	}
	if strings.TrimSpace(r.Template) == "" {
		r.Template = def[store.KeyReserveMsgTpl]
	}
	return r
}

var tmeHandle = regexp.MustCompile(`t\.me/([^/?#]+)`)

// NormalizeUsername accepts "@name", "name" or a t.me link.
func NormalizeUsername(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "@") {
		return raw[1:]
	}
	if m := tmeHandle.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// Message fills the template placeholders {id}, {name} and {size}.
func (r Reservation) Message(id int64, name, size string) string {
	size = strings.TrimSpace(size)
	if size == "" {
		size = "—"
	}
	return strings.NewReplacer(
		"{id}", strconv.FormatInt(id, 10),
		"{name}", name,
		"{size}", size,
	).Replace(r.Template)
}

// URL returns the t.me deep link with a prefilled message, or "" when
// reservations are off or no username is set.
func (r Reservation) URL(id int64, name, size string) string {
	if !r.Enabled {
		return ""
	}
	user := NormalizeUsername(r.Username)
	if user == "" {
		return ""
	}
	return "https://t.me/" + user + "?text=" + url.PathEscape(r.Message(id, name, size))
}
