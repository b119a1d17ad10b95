package middleware

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	sender *tele.User
	chat   *tele.Chat
	store  map[string]any
}

func newFake(userID, chatID int64) *fakeContext {
	return &fakeContext{
		update: tele.Update{ID: 1, Message: &tele.Message{Text: "x"}},
		sender: &tele.User{ID: userID},
		chat:   &tele.Chat{ID: chatID},
		store:  map[string]any{},
	}
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Sender() *tele.User       { return f.sender }
func (f *fakeContext) Chat() *tele.Chat         { return f.chat }
func (f *fakeContext) Text() string             { return "x" }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }

func TestRateLimitBurstThenDrop(t *testing.T) {
	var calls, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Burst:     2,
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { calls++; return nil })

	c := newFake(1, 1)
	for i := 0; i < 4; i++ {
		require.NoError(t, h(c))
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, limited)

	require.NoError(t, h(newFake(2, 2)))
	assert.Equal(t, 3, calls)
}

func TestRateLimitExclusions(t *testing.T) {
	var calls int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"callback": {}},
	})
	h := mw(func(tele.Context) error { calls++; return nil })

	c := newFake(1, 1)
	c.update = tele.Update{Callback: &tele.Callback{Data: "shop:home"}}
	for i := 0; i < 3; i++ {
		require.NoError(t, h(c))
	}
	assert.Equal(t, 3, calls)
}

func TestRecoverReturnsError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newFake(1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestStaffOnly(t *testing.T) {
	var rejected, passed int
	mw := StaffOnlyMiddleware(StaffOptions{
		IsStaff:  func(_ tele.Context, id int64) bool { return id == 10 },
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	h := mw(func(tele.Context) error { passed++; return nil })
	require.NoError(t, h(newFake(10, 10)))
	require.NoError(t, h(newFake(11, 11)))
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, rejected)
}

func TestSerializeChats(t *testing.T) {
	var inFlight, maxSeen atomic.Int32
	h := SerializeChats()(func(tele.Context) error {
		n := inFlight.Add(1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h(newFake(1, 42))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
}

func attrMap(attrs []slog.Attr) map[string]string {
	out := map[string]string{}
	for _, a := range attrs {
		out[a.Key] = a.Value.String()
	}
	return out
}

func TestDescribeUpdate(t *testing.T) {
	f := newFake(1, 1)
	f.update = tele.Update{ID: 2, Callback: &tele.Callback{Data: "adm:cat:delete:ok:15"}}
	got := attrMap(describe(f))
	assert.Equal(t, "callback", got["kind"])
	assert.Equal(t, "adm", got["domain"])
	assert.Equal(t, "adm:cat:delete:ok", got["cb_key"])

	f.update = tele.Update{ID: 3, Message: &tele.Message{Text: "/start payload"}}
	got = attrMap(describe(f))
	assert.Equal(t, "command", got["kind"])
	assert.Equal(t, "/start", got["command"])

	f.update = tele.Update{ID: 4, Message: &tele.Message{Text: "+7 999 123"}}
	got = attrMap(describe(f))
	assert.Equal(t, "text", got["kind"])
	assert.Equal(t, "10", got["text_len"])
	assert.NotContains(t, got, "payload")
}

func TestSeenUpdatesOnce(t *testing.T) {
	var s seenUpdates
	assert.True(t, s.mark(7))
	assert.False(t, s.mark(7))
	for id := 100; id < 100+len(s.ring); id++ {
		s.mark(id)
	}
	assert.True(t, s.mark(7), "evicted ids are logged again")
}
