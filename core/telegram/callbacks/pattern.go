// Package callbacks implements the action token grammar carried in inline
// button callback data: ASCII, colon separated segments such as
// "adm:cat:delete:ok:42".
package callbacks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Sep separates token segments.
	Sep = ":"
	// MaxLen is the Telegram limit for callback data in bytes.
	MaxLen = 64
)

var (
	// ErrInvalidToken reports a token that violates the grammar.
	ErrInvalidToken = errors.New("callbacks: invalid token")
	// ErrArgs reports a Format call whose arguments do not fit the pattern.
	ErrArgs = errors.New("callbacks: arguments do not match pattern")
)

type segKind uint8

const (
	segLiteral segKind = iota
	segNumber
	segChoice
)

type segment struct {
	kind    segKind
	literal string
	choices []string
}

// Pattern is a compiled token pattern. Segments are literal words, "#" for a
// non-negative integer, or "{a|b|c}" for one word out of a fixed set.
type Pattern struct {
	raw      string
	segs     []segment
	literals int
}

// Args holds the values captured by a match, in segment order.
type Args struct {
	Nums  []int64
	Words []string
}

// Int returns the i-th numeric argument or 0.
func (a Args) Int(i int) int64 {
	if i < 0 || i >= len(a.Nums) {
		return 0
	}
	return a.Nums[i]
}

// Word returns the i-th choice argument or "".
func (a Args) Word(i int) string {
	if i < 0 || i >= len(a.Words) {
		return ""
	}
	return a.Words[i]
}

// Compile parses a pattern string.
func Compile(p string) (Pattern, error) {
	if !Valid(strings.NewReplacer("#", "0", "{", "", "}", "", "|", "").Replace(p)) {
		return Pattern{}, fmt.Errorf("%w: pattern %q", ErrInvalidToken, p)
	}
	parts := strings.Split(p, Sep)
	out := Pattern{raw: p, segs: make([]segment, 0, len(parts))}
	for _, part := range parts {
		switch {
		case part == "#":
			out.segs = append(out.segs, segment{kind: segNumber})
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			choices := strings.Split(part[1:len(part)-1], "|")
			for _, c := range choices {
				if !isWord(c) {
					return Pattern{}, fmt.Errorf("%w: choice %q in %q", ErrInvalidToken, c, p)
				}
			}
			out.segs = append(out.segs, segment{kind: segChoice, choices: choices})
		case isWord(part):
			out.segs = append(out.segs, segment{kind: segLiteral, literal: part})
			out.literals++
		default:
			return Pattern{}, fmt.Errorf("%w: segment %q in %q", ErrInvalidToken, part, p)
		}
	}
	return out, nil
}

// MustCompile is Compile that panics on error; for package level patterns.
func MustCompile(p string) Pattern {
	pt, err := Compile(p)
	if err != nil {
		panic(err)
	}
	return pt
}

// String returns the source pattern.
func (p Pattern) String() string { return p.raw }

// Domain returns the first segment when it is a literal.
func (p Pattern) Domain() string {
	if len(p.segs) == 0 || p.segs[0].kind != segLiteral {
		return ""
	}
	return p.segs[0].literal
}

// Match reports whether token matches the pattern segment for segment.
func (p Pattern) Match(token string) (Args, bool) {
	if !Valid(token) {
		return Args{}, false
	}
	parts := strings.Split(token, Sep)
	if len(parts) != len(p.segs) {
		return Args{}, false
	}
	var args Args
	for i, seg := range p.segs {
		part := parts[i]
		switch seg.kind {
		case segLiteral:
			if part != seg.literal {
				return Args{}, false
			}
		case segNumber:
			n, ok := parseNumber(part)
			if !ok {
				return Args{}, false
			}
			args.Nums = append(args.Nums, n)
		case segChoice:
			if !contains(seg.choices, part) {
				return Args{}, false
			}
			args.Words = append(args.Words, part)
		}
	}
	return args, true
}

// Format renders a token from the pattern. Numeric slots take int, int64 or
// uint arguments; choice slots take strings. Arguments are consumed in order.
func (p Pattern) Format(args ...any) (string, error) {
	parts := make([]string, 0, len(p.segs))
	next := 0
	for _, seg := range p.segs {
		if seg.kind == segLiteral {
			parts = append(parts, seg.literal)
			continue
		}
		if next >= len(args) {
			return "", fmt.Errorf("%w: %q needs more arguments", ErrArgs, p.raw)
		}
		arg := args[next]
		next++
		switch seg.kind {
		case segNumber:
			n, ok := toInt64(arg)
			if !ok || n < 0 {
				return "", fmt.Errorf("%w: %q got %v for #", ErrArgs, p.raw, arg)
			}
			parts = append(parts, strconv.FormatInt(n, 10))
		case segChoice:
			w, ok := arg.(string)
			if !ok || !contains(seg.choices, w) {
				return "", fmt.Errorf("%w: %q got %v for choice", ErrArgs, p.raw, arg)
			}
			parts = append(parts, w)
		}
	}
	if next != len(args) {
		return "", fmt.Errorf("%w: %q got %d extra arguments", ErrArgs, p.raw, len(args)-next)
	}
	token := strings.Join(parts, Sep)
	if len(token) > MaxLen {
		return "", fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidToken, token, MaxLen)
	}
	return token, nil
}

// MustFormat is Format that panics on error. Patterns and argument types are
// fixed at the call site, so a failure is a programming error.
func (p Pattern) MustFormat(args ...any) string {
	t, err := p.Format(args...)
	if err != nil {
		panic(err)
	}
	return t
}

// moreSpecific orders patterns: more literal segments first, then longer.
func moreSpecific(a, b Pattern) bool {
	if a.literals != b.literals {
		return a.literals > b.literals
	}
	return len(a.segs) > len(b.segs)
}

// Valid reports whether token is non-empty printable ASCII without empty
// segments and within MaxLen.
func Valid(token string) bool {
	if token == "" || len(token) > MaxLen {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] <= ' ' || token[i] > '~' {
			return false
		}
	}
	for _, part := range strings.Split(token, Sep) {
		if part == "" {
			return false
		}
	}
	return true
}

// Key strips numeric segments, leaving the command path for logs and metrics.
func Key(token string) string {
	parts := strings.Split(token, Sep)
	out := parts[:0]
	for _, part := range parts {
		if _, ok := parseNumber(part); ok {
			continue
		}
		out = append(out, part)
	}
	return strings.Join(out, Sep)
}

// Domain returns the first segment of token.
func Domain(token string) string {
	d, _, _ := strings.Cut(token, Sep)
	return d
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			return false
		}
	}
	return !isDigits(s)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func parseNumber(s string) (int64, bool) {
	if !isDigits(s) || len(s) > 18 {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint:
		return int64(n), true
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
