// Package format holds text helpers for Telegram HTML messages.
package format

import (
	"html"
	"strings"
	"unicode/utf8"
)

// Telegram limits.
const (
	MaxMessageLen = 4096
	MaxCaptionLen = 1024
	MaxButtonLen  = 64
)

// EscapeHTML escapes text for HTML parse mode.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// Shorten truncates s to at most n runes, ending with an ellipsis when cut.
func Shorten(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n == 1 {
		return "…"
	}
	return strings.TrimRight(string(runes[:n-1]), " ") + "…"
}

// Caption fits s into a photo caption.
func Caption(s string) string {
	return Shorten(s, MaxCaptionLen)
}
