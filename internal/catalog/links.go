// Package catalog holds the pure catalog rules shared by the client and
// staff screens: the promotional link list, stock summaries, product
// captions and reservation links.
package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Link is one promotional button of the welcome screen.
type Link struct {
	Text   string `json:"text"`
	URL    string `json:"url"`
	Active bool   `json:"-"`
}

type linkJSON struct {
	Text   string          `json:"text"`
	URL    string          `json:"url"`
	Active json.RawMessage `json:"active,omitempty"`
}

// MarshalJSON keeps the stored 0/1 active flag.
func (l Link) MarshalJSON() ([]byte, error) {
	active := "0"
	if l.Active {
		active = "1"
	}
	return json.Marshal(linkJSON{Text: l.Text, URL: l.URL, Active: json.RawMessage(active)})
}

// ParseLinks decodes the stored list. Malformed documents yield an empty
// list; entries without text or url are dropped; a missing active flag
// means active while an explicit null means inactive.
func ParseLinks(raw string) []Link {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &items); err != nil {
		return nil
	}
	out := make([]Link, 0, len(items))
	for _, item := range items {
		var lj linkJSON
		if err := json.Unmarshal(item, &lj); err != nil {
			continue
		}
		l := Link{Text: strings.TrimSpace(lj.Text), URL: strings.TrimSpace(lj.URL), Active: activeFlag(lj.Active)}
		if l.Text == "" || l.URL == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// activeFlag reads the stored flag. Only a missing key defaults to active;
// null, false, zero and empty or non-numeric strings are inactive.
func activeFlag(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return int64(x) != 0
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return err == nil && n != 0
	}
	return false
}

// EncodeLinks serialises the list for storage.
func EncodeLinks(links []Link) (string, error) {
	if links == nil {
		links = []Link{}
	}
	b, err := json.Marshal(links)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PublicLinks returns the active entries in order.
func PublicLinks(links []Link) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if l.Active {
			out = append(out, l)
		}
	}
	return out
}

// MoveUp swaps entry i with its predecessor. Out-of-range or first
// entries are left in place.
func MoveUp(links []Link, i int) []Link {
	if i <= 0 || i >= len(links) {
		return links
	}
	links[i-1], links[i] = links[i], links[i-1]
	return links
}

// MoveDown swaps entry i with its successor. The last entry stays put.
func MoveDown(links []Link, i int) []Link {
	if i < 0 || i >= len(links)-1 {
		return links
	}
	links[i], links[i+1] = links[i+1], links[i]
	return links
}

// Remove drops entry i.
func Remove(links []Link, i int) []Link {
	if i < 0 || i >= len(links) {
		return links
	}
	return append(links[:i], links[i+1:]...)
}

// LinkLabel decorates a public link button.
func LinkLabel(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Ссылка"
	}
	return "🔗 " + text
}

// ValidURL accepts http and https addresses only.
func ValidURL(s string) bool {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range []string{"http://", "https://"} {
		if strings.HasPrefix(lower, p) && len(s) > len(p) {
			return true
		}
	}
	return false
}
