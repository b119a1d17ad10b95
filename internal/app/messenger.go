package app

import (
	"context"
	"strconv"

	tghelpers "github.com/m3rciful/catalogbot/core/telegram/helpers"
	"github.com/m3rciful/catalogbot/core/telegram/keyboard"
	"github.com/m3rciful/catalogbot/core/telegram/sender"
	"github.com/m3rciful/catalogbot/internal/screen"

	tele "gopkg.in/telebot.v4"
)

// messenger sends through the shared dispatcher so every call gets the
// same retry and flood-wait policy. Sends run synchronously because the
// screen manager records the returned message ids.
type messenger struct {
	bot  *tele.Bot
	disp *sender.Dispatcher
}

var _ screen.Messenger = (*messenger)(nil)

func htmlOptions(kb keyboard.Rows) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: kb.Markup(), DisableWebPagePreview: true}
}

func (m *messenger) send(ctx context.Context, action, endpoint string, chat int64, what any, opts *tele.SendOptions) (int, error) {
	var msg *tele.Message
	err := m.disp.Do(ctx, action, endpoint, func() error {
		var err error
		msg, err = m.bot.Send(tele.ChatID(chat), what, opts)
		return err
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (m *messenger) SendText(ctx context.Context, chat int64, html string, kb keyboard.Rows) (int, error) {
	return m.send(ctx, "send.text", "sendMessage", chat, html, htmlOptions(kb))
}

func (m *messenger) SendPhoto(ctx context.Context, chat int64, fileID, caption string, kb keyboard.Rows) (int, error) {
	photo := &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption}
	return m.send(ctx, "send.photo", "sendPhoto", chat, photo, htmlOptions(kb))
}

// SendGallery sends up to ten photos as one album; a single photo is sent
// on its own because albums need at least two items.
func (m *messenger) SendGallery(ctx context.Context, chat int64, fileIDs []string) ([]int, error) {
	switch len(fileIDs) {
	case 0:
		return nil, nil
	case 1:
		id, err := m.SendPhoto(ctx, chat, fileIDs[0], "", nil)
		if err != nil {
			return nil, err
		}
		return []int{id}, nil
	}
	album := make(tele.Album, 0, len(fileIDs))
	for _, id := range fileIDs {
		album = append(album, &tele.Photo{File: tele.File{FileID: id}})
	}
	var msgs []tele.Message
	err := m.disp.Do(ctx, "send.album", "sendMediaGroup", func() error {
		var err error
		msgs, err = m.bot.SendAlbum(tele.ChatID(chat), album)
		return err
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(msgs))
	for _, msg := range msgs {
		ids = append(ids, msg.ID)
	}
	return ids, nil
}

func (m *messenger) SendDocument(ctx context.Context, chat int64, doc screen.Document) (int, error) {
	file := &tele.Document{File: tele.FromDisk(doc.Path), FileName: doc.Name, Caption: doc.Caption}
	return m.send(ctx, "send.document", "sendDocument", chat, file, htmlOptions(nil))
}

// Delete is queued: nothing waits on it, and a screen is replaced without
// blocking on the removal of the old one.
func (m *messenger) Delete(ctx context.Context, chat int64, messageID int) error {
	return tghelpers.Enqueue(ctx, "delete", "deleteMessage", func() error {
		return m.bot.Delete(tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chat})
	})
}
