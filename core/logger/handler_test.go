package logger

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, format logFormat, level slog.Level, component string, emit func(*slog.Logger)) []string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{level: level, writer: aw, format: format})
	emit(slog.New(h).With("component", component))
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestKVKeyOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
	lines := capture(t, formatKV, slog.LevelInfo, "app", func(l *slog.Logger) {
		LogEvent(ctx, l, slog.LevelInfo, "test.event",
			slog.String("status", "ok"),
			slog.String("cause", "unit"),
		)
	})
	require.Len(t, lines, 1)
	tokens := strings.Split(lines[0], " ")
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	require.GreaterOrEqual(t, len(tokens), len(want))
	for i, prefix := range want {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s", i, tokens[i])
	}
	assert.Contains(t, lines[0], "user_id=7")
	assert.Contains(t, lines[0], "chat_id=9")
}

func TestJSONKeyOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-json"), 11, 22, 33)
	lines := capture(t, formatJSON, slog.LevelInfo, "transfer", func(l *slog.Logger) {
		LogEvent(ctx, l, slog.LevelError, "transfer.import",
			slog.String("status", "fail"),
			slog.String("err", "boom"),
		)
	})
	require.Len(t, lines, 1)
	pos := -1
	for _, pref := range []string{`{"ts":`, `"level":"ERROR"`, `"component":"transfer"`, `"event":"transfer.import"`, `"status":"fail"`, `"rid":"rid-json"`} {
		idx := strings.Index(lines[0], pref)
		require.Greater(t, idx, pos, "%s out of order in %s", pref, lines[0])
		pos = idx
	}
}

func TestCompactRID(t *testing.T) {
	raw := "123:456:789"
	ctx := WithRID(Background(), raw)
	emit := func(l *slog.Logger) { LogEvent(ctx, l, slog.LevelInfo, "rid.test") }

	kv := capture(t, formatKV, slog.LevelInfo, "app", emit)
	require.Len(t, kv, 1)
	assert.Contains(t, kv[0], "rid="+CompactRID(raw))
	assert.NotContains(t, kv[0], "rid_full=")

	js := capture(t, formatJSON, slog.LevelInfo, "app", emit)
	require.Len(t, js, 1)
	assert.Contains(t, js[0], `"rid":"`+CompactRID(raw)+`"`)
	assert.Contains(t, js[0], `"rid_full":"`+raw+`"`)
	assert.Contains(t, js[0], `"ts_unix_nano"`)
}

func TestOutcomeNormalized(t *testing.T) {
	lines := capture(t, formatKV, slog.LevelDebug, "router", func(l *slog.Logger) {
		LogEvent(Background(), l, slog.LevelDebug, "action.routed",
			slog.String("outcome", "DENIED"),
			slog.String("capability", "prods"),
			slog.String("scope", "admin"),
		)
		LogEvent(Background(), l, slog.LevelDebug, "action.routed",
			slog.String("outcome", "exploded"),
		)
	})
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "outcome=denied")
	assert.Less(t, strings.Index(lines[0], "scope="), strings.Index(lines[0], "capability="))
	assert.NotContains(t, lines[1], "outcome=")
}

func TestDurationsAndErrors(t *testing.T) {
	lines := capture(t, formatKV, slog.LevelInfo, "db", func(l *slog.Logger) {
		LogEvent(Background(), l, slog.LevelInfo, "db.connect",
			slog.Duration("duration", 1500*time.Microsecond),
			slog.Duration("took_ms", 2*time.Millisecond),
			slog.Any("err", errors.New("dial tcp: timeout")),
		)
	})
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "duration_ms=2")
	assert.Contains(t, lines[0], "took_ms=2")
	assert.Contains(t, lines[0], `err="dial tcp: timeout"`)
}

func TestBotTokenMasked(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAH3kZ_abcdefghijklmnopqrstu/sendMessage": EOF`)
	lines := capture(t, formatJSON, slog.LevelInfo, "tg", func(l *slog.Logger) {
		LogEvent(Background(), l, slog.LevelWarn, "send.failed", slog.Any("err", err))
	})
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "AAH3kZ")
	assert.Contains(t, lines[0], "bot123456:***")
}

func TestLevelFilter(t *testing.T) {
	lines := capture(t, formatKV, slog.LevelWarn, "app", func(l *slog.Logger) {
		l.Info("quiet")
		l.Warn("loud")
	})
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "event=loud")
}

func TestWriterRejectsAfterClose(t *testing.T) {
	aw := newAsyncWriter([]io.Writer{io.Discard}, 0)
	require.NoError(t, aw.Write([]byte("x\n")))
	require.NoError(t, aw.Close())
	assert.ErrorIs(t, aw.Write([]byte("y\n")), errWriterClosed)
	assert.NoError(t, aw.Flush())
}

func TestSampler(t *testing.T) {
	s := newSampler(1, 3)
	var got []bool
	for range 6 {
		got = append(got, s.Allow())
	}
	assert.Equal(t, []bool{true, false, false, true, false, false}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	for ratio, want := range map[string][2]int{"2/5": {2, 5}, "10": {1, 10}, "all": {0, 0}} {
		num, den, ok := parseRatio(ratio)
		require.True(t, ok, ratio)
		assert.Equal(t, want, [2]int{num, den}, ratio)
	}
	_, _, ok := parseRatio("x/2")
	assert.False(t, ok)
}

func TestPreview(t *testing.T) {
	s, more := Preview([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b", s)
	assert.True(t, more)
	s, more = Preview([]string{"a"}, 2)
	assert.Equal(t, "a", s)
	assert.False(t, more)
}

