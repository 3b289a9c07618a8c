package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vaultgram/vaultgram-server/internal/model"
	"github.com/vaultgram/vaultgram-server/internal/relay"
	tele "gopkg.in/telebot.v3"
)

// archiveWriter stores canonical copies into the private archive chat
// through the bot identity.
type archiveWriter struct {
	bot  *tele.Bot
	chat tele.ChatID
}

var _ relay.Archive = (*archiveWriter)(nil)

func (a *archiveWriter) StoreText(_ context.Context, text string) (int64, error) {
	msg, err := a.bot.Send(a.chat, text)
	if err != nil {
		return 0, err
	}
	return int64(msg.ID), nil
}

func (a *archiveWriter) StoreFile(_ context.Context, path string, kind model.MediaKind, caption string) (int64, error) {
	media, err := inputMedia(path, kind, caption)
	if err != nil {
		return 0, err
	}

	msg, err := a.bot.Send(a.chat, media)
	if err != nil {
		return 0, err
	}
	return int64(msg.ID), nil
}

func (a *archiveWriter) StoreAlbum(_ context.Context, paths []string, kinds []model.MediaKind, caption string) ([]int64, error) {
	album := make(tele.Album, 0, len(paths))
	for i, path := range paths {
		// The caption rides on the first member only.
		itemCaption := ""
		if i == 0 {
			itemCaption = caption
		}
		media, err := inputMedia(path, kinds[i], itemCaption)
		if err != nil {
			return nil, err
		}
		album = append(album, media)
	}

	messages, err := a.bot.SendAlbum(a.chat, album)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(messages))
	for i := range messages {
		ids[i] = int64(messages[i].ID)
	}
	return ids, nil
}

func inputMedia(path string, kind model.MediaKind, caption string) (tele.Inputtable, error) {
	file := tele.FromDisk(path)
	switch kind {
	case model.MediaPhoto:
		return &tele.Photo{File: file, Caption: caption}, nil
	case model.MediaDocumentVideo:
		return &tele.Video{File: file, Caption: caption}, nil
	case model.MediaDocumentAudio:
		return &tele.Audio{File: file, Caption: caption}, nil
	case model.MediaDocumentOther:
		return &tele.Document{File: file, Caption: caption}, nil
	case model.MediaNone, model.MediaUnsupported:
		return nil, relay.ErrUnsupportedMedia
	default:
		return nil, fmt.Errorf("unknown media kind %d", kind)
	}
}

// courier copies archived messages from the archive chat to the requester.
type courier struct {
	bot     *tele.Bot
	archive int64
}

var _ relay.Courier = (*courier)(nil)

func (c *courier) Deliver(_ context.Context, userID model.UserID, archiveMessageIDs []int64) error {
	for _, id := range archiveMessageIDs {
		stored := tele.StoredMessage{
			ChatID:    c.archive,
			MessageID: strconv.FormatInt(id, 10),
		}
		if _, err := c.bot.Copy(tele.ChatID(userID.ToInt64()), stored); err != nil {
			return err
		}
	}
	return nil
}
