package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/catalogbot/core/logger"
	coretelegram "github.com/m3rciful/catalogbot/core/telegram"
	tghelpers "github.com/m3rciful/catalogbot/core/telegram/helpers"
	"github.com/m3rciful/catalogbot/internal/input"
	"github.com/m3rciful/catalogbot/internal/menu"
	"github.com/m3rciful/catalogbot/internal/store"

	tele "gopkg.in/telebot.v4"
)

func request(c tele.Context) menu.Request {
	var req menu.Request
	if chat := c.Chat(); chat != nil {
		req.Chat = chat.ID
	}
	if user := c.Sender(); user != nil {
		req.User = user.ID
	}
	return req
}

func inbound(c tele.Context) input.Message {
	req := request(c)
	msg := input.Message{Chat: req.Chat, User: req.User}
	if m := c.Message(); m != nil {
		msg.MessageID = m.ID
	}
	return msg
}

// actions adapts the menu to the callback router.
type actions struct {
	menu *menu.Menu
}

func (a actions) Dispatch(c tele.Context, token string) error {
	return a.menu.Route(tghelpers.BuildContext(c), request(c), token)
}

// classify keeps stale and forbidden presses out of the error path.
func classify(err error) (status, outcome string, out error) {
	switch {
	case errors.Is(err, menu.ErrUnknownAction):
		return "skip", "unknown", nil
	case errors.Is(err, menu.ErrDenied):
		return "skip", "denied", nil
	}
	return "", "", err
}

// inputs adapts the menu to free-form message routing.
type inputs struct {
	menu *menu.Menu
	bot  *tele.Bot
}

func (in inputs) OnText(c tele.Context) (bool, error) {
	handled, err := in.menu.Text(tghelpers.BuildContext(c), input.Text{Message: inbound(c), Text: c.Text()})
	return handled, quiet(err)
}

func (in inputs) OnPhoto(c tele.Context) (bool, error) {
	m := c.Message()
	if m == nil || m.Photo == nil {
		return false, nil
	}
	handled, err := in.menu.Photo(tghelpers.BuildContext(c), input.Photo{Message: inbound(c), FileID: m.Photo.FileID})
	return handled, quiet(err)
}

func (in inputs) OnDocument(c tele.Context) (bool, error) {
	m := c.Message()
	if m == nil || m.Document == nil {
		return false, nil
	}
	doc := m.Document
	return in.menu.Upload(tghelpers.BuildContext(c), menu.Upload{
		Request:  request(c),
		FileName: doc.FileName,
		Size:     int64(doc.FileSize),
		Fetch: func(_ context.Context, dst string) error {
			return in.bot.Download(&doc.File, dst)
		},
	})
}

// quiet drops permission refusals of pending replies; the actor lost the
// capability after the prompt and there is nothing to report.
func quiet(err error) error {
	if errors.Is(err, menu.ErrDenied) {
		return nil
	}
	return err
}

func command(mn *menu.Menu, run func(*menu.Menu, context.Context, menu.Request) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		mn.Tidy(ctx, inbound(c))
		return run(mn, ctx, request(c))
	}
}

// directory records every sender so owners can add editors by @username.
func directory(st *store.Store) coretelegram.Middleware {
	return coretelegram.Middleware{
		Name: "directory",
		Use: func(next tele.HandlerFunc) tele.HandlerFunc {
			return func(c tele.Context) error {
				if u := c.Sender(); u != nil && !u.IsBot {
					ctx := tghelpers.BuildContext(c)
					err := st.TouchUser(ctx, store.User{
						UserID:    u.ID,
						Username:  u.Username,
						FirstName: u.FirstName,
						LastName:  u.LastName,
					})
					if err != nil {
						logger.Warn(ctx, "app", "directory.touch_failed",
							slog.String("err", err.Error()),
						)
					}
				}
				return next(c)
			}
		},
	}
}
