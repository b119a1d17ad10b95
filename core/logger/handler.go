package logger

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

// botToken matches the credential part of Bot API URLs, which the transport
// embeds in its error strings.
var botToken = regexp.MustCompile(`bot(\d+):[A-Za-z0-9_-]{20,}`)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as one flat line of key/value pairs or
// JSON, with well-known keys first in keyOrder.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	groups []string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

// Enabled reports whether level passes the configured minimum.
func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

// Handle writes r as a single line.
func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	line, err := h.render(h.fields(ctx, r))
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

// WithAttrs returns a copy carrying attrs on every record.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(slices.Clip(h.attrs), attrs...)
	return &clone
}

// WithGroup returns a copy that prefixes later keys with name.
func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clip(h.groups), name)
	return &clone
}

func (h *structuredHandler) fields(ctx context.Context, r slog.Record) map[string]any {
	jsonOut := h.cfg.format == formatJSON
	ts := r.Time.UTC()
	f := map[string]any{
		"ts":    ts.Truncate(time.Millisecond).Format(timeFormatMillis),
		"level": normalizeLevel(r.Level.String()),
	}
	if jsonOut {
		f["ts_unix_nano"] = ts.UnixNano()
	}

	prefix := strings.Join(h.groups, ".")
	put := func(a slog.Attr) bool {
		flatten(prefix, a, func(k string, v slog.Value) {
			if key, val, ok := normalizeAttr(k, v); ok {
				f[key] = val
			}
		})
		return true
	}
	for _, a := range h.attrs {
		put(a)
	}
	r.Attrs(put)

	fromContext(ctx, f)

	if rid, _ := f["rid"].(string); rid != "" {
		if short := CompactRID(rid); short != "" && short != rid {
			if jsonOut {
				if _, ok := f["rid_full"]; !ok {
					f["rid_full"] = rid
				}
			}
			f["rid"] = short
		}
	}
	if ev, _ := f["event"].(string); ev == "" {
		f["event"] = cmp.Or(r.Message, "unknown")
	}
	if c, _ := f["component"].(string); c == "" {
		f["component"] = "app"
	}
	if s, _ := f["status"].(string); s != "" {
		norm, _ := normalizeStatus(s)
		f["status"] = norm
	}
	if o, _ := f["outcome"].(string); o != "" {
		if norm, ok := normalizeOutcome(o); ok {
			f["outcome"] = norm
		} else {
			delete(f, "outcome")
		}
	}
	for k, v := range f {
		if s, ok := v.(string); ok && s == "" {
			delete(f, k)
		}
	}
	return f
}

func (h *structuredHandler) render(f map[string]any) ([]byte, error) {
	keys := orderedKeys(f, h.cfg.keyOrder)
	var b bytes.Buffer
	if h.cfg.format == formatJSON {
		b.WriteByte('{')
		for i, k := range keys {
			data, err := json.Marshal(f[k])
			if err != nil {
				return nil, fmt.Errorf("logger: encode %s: %w", k, err)
			}
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			b.Write(data)
		}
		b.WriteByte('}')
		return b.Bytes(), nil
	}
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(f[k]))
	}
	return b.Bytes(), nil
}

// orderedKeys lists the keys of f: those named in order first, the rest
// alphabetically.
func orderedKeys(f map[string]any, order []string) []string {
	keys := make([]string, 0, len(f))
	for _, k := range order {
		if _, ok := f[k]; ok && !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	head := len(keys)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		if !slices.Contains(keys[:head], k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func flatten(prefix string, a slog.Attr, fn func(string, slog.Value)) {
	key := a.Key
	switch {
	case key == "":
		key = prefix
	case prefix != "":
		key = prefix + "." + key
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			flatten(key, child, fn)
		}
		return
	}
	if key != "" {
		fn(key, v)
	}
}

func normalizeAttr(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, clean(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return "", nil, false
	case error:
		return key, clean(x.Error()), true
	case string:
		return key, clean(x), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, clean(x.String()), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// durationKey names the millisecond field of a duration.
func durationKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

// clean trims s and masks Bot API credentials.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "bot") {
		s = botToken.ReplaceAllString(s, "bot$1:***")
	}
	return s
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		s = fmt.Sprint(x)
	}
	if strings.IndexFunc(s, needsQuote) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

// fromContext fills request metadata the record did not set itself.
func fromContext(ctx context.Context, f map[string]any) {
	m := MetaFrom(ctx)
	for _, kv := range []struct {
		key string
		val any
		set bool
	}{
		{"rid", m.RID, m.RID != ""},
		{"user_id", m.UserID, m.UserID != 0},
		{"update_id", m.UpdateID, m.UpdateID != 0},
		{"chat_id", m.ChatID, m.ChatID != 0},
		{"handler", m.Handler, m.Handler != ""},
	} {
		if _, ok := f[kv.key]; kv.set && !ok {
			f[kv.key] = kv.val
		}
	}
}
