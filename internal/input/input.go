// Package input turns free-form messages into the continuation of a pending
// multi-step flow. One continuation is kept per user; arming a new one
// replaces the old.
package input

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/core/metrics"
	"github.com/m3rciful/catalogbot/core/telegram/state"
)

// Message identifies the inbound message.
type Message struct {
	Chat      int64
	User      int64
	MessageID int
}

// Text is a free-text reply.
type Text struct {
	Message
	Text string
}

// Photo is a photo reply; FileID is the largest size.
type Photo struct {
	Message
	FileID string
}

// TextHandler continues a flow with text. The continuation has already been
// consumed; handlers re-arm it to retry or arm the next step.
type TextHandler func(ctx context.Context, in Text, s state.Session) error

// PhotoHandler continues a flow with a photo. The continuation stays armed.
type PhotoHandler func(ctx context.Context, in Photo, s state.Session) error

// Engine dispatches inputs to the handler registered for the pending tag.
type Engine struct {
	slots state.Manager
	text  map[state.State]TextHandler
	photo map[state.State]PhotoHandler
	log   *slog.Logger
}

// New builds an engine over a continuation store.
func New(slots state.Manager) *Engine {
	return &Engine{
		slots: slots,
		text:  map[state.State]TextHandler{},
		photo: map[state.State]PhotoHandler{},
		log:   logger.Component("input"),
	}
}

// HandleText registers the text handler of tag.
func (e *Engine) HandleText(tag state.State, h TextHandler) {
	e.text[tag] = h
}

// HandlePhoto registers the photo handler of tag.
func (e *Engine) HandlePhoto(tag state.State, h PhotoHandler) {
	e.photo[tag] = h
}

// Tags lists every registered tag.
func (e *Engine) Tags() []state.State {
	seen := map[state.State]bool{}
	var out []state.State
	for t := range e.text {
		seen[t] = true
		out = append(out, t)
	}
	for t := range e.photo {
		if !seen[t] {
			out = append(out, t)
		}
	}
	return out
}

// Await arms tag for user with the carried context of s, replacing any
// pending continuation.
func (e *Engine) Await(user int64, tag state.State, s state.Session) {
	s.State = tag
	e.slots.Set(user, s)
}

// Pending returns the user's continuation without consuming it.
func (e *Engine) Pending(user int64) (state.Session, bool) {
	return e.slots.Get(user)
}

// Cancel drops the user's continuation.
func (e *Engine) Cancel(user int64) {
	e.slots.Clear(user)
}

// OnText consumes the pending continuation when its tag accepts text and
// runs the handler. It reports false when nothing was pending for text.
func (e *Engine) OnText(ctx context.Context, in Text) (bool, error) {
	s, ok := e.slots.Get(in.User)
	if !ok {
		return false, nil
	}
	h := e.text[s.State]
	if h == nil {
		return false, nil
	}
	if s, ok = e.slots.Take(in.User); !ok {
		return false, nil
	}
	return true, e.run(ctx, "text", s.State, func() error { return h(ctx, in, s) })
}

// OnPhoto runs the photo handler of the pending continuation, leaving it
// armed so several photos can follow.
func (e *Engine) OnPhoto(ctx context.Context, in Photo) (bool, error) {
	s, ok := e.slots.Get(in.User)
	if !ok {
		return false, nil
	}
	h := e.photo[s.State]
	if h == nil {
		return false, nil
	}
	return true, e.run(ctx, "photo", s.State, func() error { return h(ctx, in, s) })
}

func (e *Engine) run(ctx context.Context, kind string, tag state.State, fn func() error) error {
	err := fn()
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	metrics.Continuations.WithLabelValues(kind, outcome).Inc()
	e.log.DebugContext(ctx, "continuation handled",
		slog.String("event", "input."+kind),
		slog.String("tag", string(tag)),
		slog.String("outcome", outcome),
	)
	if err != nil {
		return fmt.Errorf("continuation %s: %w", tag, err)
	}
	return nil
}

// IsDone reports whether text ends a collecting step such as photo upload.
func IsDone(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "готово", "готово!", "done":
		return true
	}
	return false
}
