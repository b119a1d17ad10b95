package input

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/catalogbot/core/telegram/state"
)

func text(user int64, s string) Text {
	return Text{Message: Message{Chat: user, User: user}, Text: s}
}

func TestTextConsumesContinuation(t *testing.T) {
	ctx := context.Background()
	e := New(state.NewMemoryManager())

	var got []string
	e.HandleText("cat.add", func(_ context.Context, in Text, s state.Session) error {
		got = append(got, in.Text)
		return nil
	})

	handled, err := e.OnText(ctx, text(1, "ignored"))
	require.NoError(t, err)
	assert.False(t, handled)

	e.Await(1, "cat.add", state.Session{})
	handled, err = e.OnText(ctx, text(1, "Кольца"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"Кольца"}, got)

	_, pending := e.Pending(1)
	assert.False(t, pending)
}

func TestReplacementNotStacking(t *testing.T) {
	ctx := context.Background()
	e := New(state.NewMemoryManager())

	var hits []state.State
	for _, tag := range []state.State{"cat.rename", "prod.edit.name"} {
		tag := tag
		e.HandleText(tag, func(_ context.Context, _ Text, s state.Session) error {
			hits = append(hits, s.State)
			assert.EqualValues(t, 9, s.Target)
			return nil
		})
	}

	e.Await(1, "cat.rename", state.Session{Target: 3})
	e.Await(1, "prod.edit.name", state.Session{Target: 9})

	handled, err := e.OnText(ctx, text(1, "stale reply"))
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, []state.State{"prod.edit.name"}, hits)

	// nothing left behind from the first continuation
	handled, err = e.OnText(ctx, text(1, "again"))
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestRetryAndChain(t *testing.T) {
	ctx := context.Background()
	e := New(state.NewMemoryManager())

	var committed string
	e.HandleText("variant.add.name", func(_ context.Context, in Text, s state.Session) error {
		e.Await(in.User, "variant.add.stock", s.With("name", in.Text))
		return nil
	})
	e.HandleText("variant.add.stock", func(_ context.Context, in Text, s state.Session) error {
		if in.Text != "5" {
			e.Await(in.User, s.State, s)
			return nil
		}
		committed = s.Field("name") + "=" + in.Text
		return nil
	})

	e.Await(1, "variant.add.name", state.Session{Target: 4})
	for _, msg := range []string{"18", "пять", "5"} {
		handled, err := e.OnText(ctx, text(1, msg))
		require.NoError(t, err)
		require.True(t, handled)
	}
	assert.Equal(t, "18=5", committed)
}

func TestPhotoKeepsContinuation(t *testing.T) {
	ctx := context.Background()
	e := New(state.NewMemoryManager())

	var files []string
	done := false
	e.HandlePhoto("photo.add", func(_ context.Context, in Photo, _ state.Session) error {
		files = append(files, in.FileID)
		return nil
	})
	e.HandleText("photo.add", func(_ context.Context, in Text, s state.Session) error {
		if IsDone(in.Text) {
			done = true
			return nil
		}
		e.Await(in.User, s.State, s)
		return nil
	})

	handled, err := e.OnPhoto(ctx, Photo{Message: Message{User: 1}, FileID: "x"})
	require.NoError(t, err)
	assert.False(t, handled)

	e.Await(1, "photo.add", state.Session{Target: 2})
	for _, f := range []string{"a", "b"} {
		handled, err = e.OnPhoto(ctx, Photo{Message: Message{User: 1}, FileID: f})
		require.NoError(t, err)
		require.True(t, handled)
	}
	_, err = e.OnText(ctx, text(1, "ещё"))
	require.NoError(t, err)
	_, pending := e.Pending(1)
	assert.True(t, pending)

	_, err = e.OnText(ctx, text(1, "Готово!"))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"a", "b"}, files)
	_, pending = e.Pending(1)
	assert.False(t, pending)
}

func TestTextIgnoredForPhotoOnlyTag(t *testing.T) {
	ctx := context.Background()
	e := New(state.NewMemoryManager())
	e.HandlePhoto("only.photo", func(context.Context, Photo, state.Session) error { return nil })

	e.Await(1, "only.photo", state.Session{})
	handled, err := e.OnText(ctx, text(1, "hi"))
	require.NoError(t, err)
	assert.False(t, handled)
	_, pending := e.Pending(1)
	assert.True(t, pending)
}

func TestHandlerErrorWrapped(t *testing.T) {
	ctx := context.Background()
	e := New(state.NewMemoryManager())
	boom := errors.New("boom")
	e.HandleText("welcome", func(context.Context, Text, state.Session) error { return boom })
	e.Await(1, "welcome", state.Session{})

	handled, err := e.OnText(ctx, text(1, "x"))
	assert.True(t, handled)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, e.Tags(), 1)
}
