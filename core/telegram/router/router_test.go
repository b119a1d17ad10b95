package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/catalogbot/core/telegram"
	"github.com/m3rciful/catalogbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update    tele.Update
	store     map[string]any
	responded bool
}

func newFake(upd tele.Update) *fakeContext {
	return &fakeContext{update: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Sender() *tele.User       { return &tele.User{ID: 5} }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: 5} }
func (f *fakeContext) Message() *tele.Message   { return f.update.Message }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responded = true
	return nil
}
func (f *fakeContext) Text() string {
	if f.update.Message == nil {
		return ""
	}
	return f.update.Message.Text
}

type fakeInput struct {
	text, photo, doc bool
	seen             []string
}

func (in *fakeInput) OnText(c tele.Context) (bool, error) {
	in.seen = append(in.seen, "text:"+c.Text())
	return in.text, nil
}
func (in *fakeInput) OnPhoto(tele.Context) (bool, error)    { in.seen = append(in.seen, "photo"); return in.photo, nil }
func (in *fakeInput) OnDocument(tele.Context) (bool, error) { in.seen = append(in.seen, "doc"); return in.doc, nil }

func routeFor(routes []tg.Route, endpoint any) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	return nil
}

func textUpdate(s string) tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{Text: s}}
}

func TestPendingInputWinsOverCommands(t *testing.T) {
	reg := tg.NewRegistry()
	var ran []string
	reg.RegisterCommand("/shop", commands.Command{Description: "shop", Handler: func(tele.Context) error {
		ran = append(ran, "shop")
		return nil
	}})
	reg.RegisterCommand("/admin", commands.Command{Description: "admin", StaffOnly: true, Handler: func(tele.Context) error {
		ran = append(ran, "admin")
		return nil
	}})

	in := &fakeInput{text: true}
	h := routeFor(TextRoutes(in, reg, TextOptions{}), tele.OnText)
	require.NotNil(t, h)

	require.NoError(t, h(newFake(textUpdate("shop"))))
	assert.Empty(t, ran)

	in.text = false
	require.NoError(t, h(newFake(textUpdate("shop"))))
	require.NoError(t, h(newFake(textUpdate("admin"))))
	assert.Equal(t, []string{"shop"}, ran, "staff commands are not reachable as plain text")
}

func TestSlashTextBypassesPendingInput(t *testing.T) {
	var fallback int
	in := &fakeInput{text: true}
	routes := TextRoutes(in, tg.NewRegistry(), TextOptions{
		UnknownText: func(tele.Context) error { fallback++; return nil },
	})
	h := routeFor(routes, tele.OnText)

	require.NoError(t, h(newFake(textUpdate("/help"))))
	require.NoError(t, h(newFake(textUpdate(" /start@bot"))))
	assert.Empty(t, in.seen)
	assert.Equal(t, 2, fallback)

	require.NoError(t, h(newFake(textUpdate("Кольца"))))
	assert.Equal(t, []string{"text:Кольца"}, in.seen)
	assert.Equal(t, 2, fallback)
}

func TestUnknownTextFallsBack(t *testing.T) {
	var fallback int
	routes := TextRoutes(&fakeInput{}, tg.NewRegistry(), TextOptions{
		UnknownText: func(tele.Context) error { fallback++; return nil },
	})
	require.NoError(t, routeFor(routes, tele.OnText)(newFake(textUpdate("hello"))))
	assert.Equal(t, 1, fallback)

	in := &fakeInput{doc: true}
	routes = TextRoutes(in, nil, TextOptions{})
	require.NoError(t, routeFor(routes, tele.OnDocument)(newFake(textUpdate(""))))
	require.NoError(t, routeFor(routes, tele.OnPhoto)(newFake(textUpdate(""))))
	assert.Equal(t, []string{"doc", "photo"}, in.seen)
}

type dispatchFunc func(tele.Context, string) error

func (f dispatchFunc) Dispatch(c tele.Context, token string) error { return f(c, token) }

func TestCallbackRouteAnswersAndClassifies(t *testing.T) {
	stale := errors.New("stale")
	var got string
	route := CallbackRoute(dispatchFunc(func(_ tele.Context, token string) error {
		got = token
		return fmt.Errorf("wrapped: %w", stale)
	}), CallbackOptions{Classify: func(err error) (string, string, error) {
		if errors.Is(err, stale) {
			return "skip", "unknown", nil
		}
		return "", "", err
	}})
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	c := newFake(tele.Update{ID: 9, Callback: &tele.Callback{Data: " adm:cat:7 "}})
	require.NoError(t, route.Handler(c))
	assert.True(t, c.responded)
	assert.Equal(t, "adm:cat:7", got)
}

type quotaExceeded struct{}

func (*quotaExceeded) Error() string { return "quota" }

type coded string

func (c coded) Error() string { return string(c) }
func (c coded) Code() string  { return string(c) }

func TestErrorCode(t *testing.T) {
	sentinel := errors.New("store: not found")
	assert.Equal(t, "STORE_NOT_FOUND", errorCode(fmt.Errorf("load product 4: %w", sentinel)))
	assert.Equal(t, "STORE_NOT_FOUND", errorCode(errors.Join(sentinel, errors.New("other"))))
	assert.Equal(t, "QUOTA_EXCEEDED", errorCode(&quotaExceeded{}))
	assert.Equal(t, "BAD_REQUEST", errorCode(coded("bad request")))
	assert.Equal(t, "UNKNOWN_ERROR", upperSnake("::"))
}

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "start", handlerName("/Start"))
	assert.Equal(t, "unknown", handlerName(" "))
	assert.Equal(t, "adm.cat", handlerName("adm.cat"))
}
