// Library repository: https://github.com/tucnak/telebot

package telegram

import (
	"log/slog"
	"net/http"

	"github.com/vaultgram/vaultgram-server/internal/config"
	"github.com/vaultgram/vaultgram-server/internal/log"
	"github.com/vaultgram/vaultgram-server/internal/model"
	"github.com/vaultgram/vaultgram-server/internal/payment"
	"github.com/vaultgram/vaultgram-server/internal/relay"
	"github.com/vaultgram/vaultgram-server/internal/storage"
	tele "gopkg.in/telebot.v3"
	mw "gopkg.in/telebot.v3/middleware"
)

type Telegram struct {
	bot     *tele.Bot
	db      *storage.Storage
	config  *config.Config
	logger  *slog.Logger
	http    *http.Client
	relayer *relay.Orchestrator
}

var _ payment.Notifier = (*Telegram)(nil)

func New(config *config.Config, db *storage.Storage, httpClient *http.Client, logger *slog.Logger) (*Telegram, error) {
	pref := tele.Settings{
		Token: config.Telegram.Token,
		Poller: &tele.LongPoller{
			Timeout: config.Telegram.Timeout,
		},
		Client: httpClient,
		OnError: func(err error, _ tele.Context) {
			logger.Error("telegram error", slog.String("error", err.Error()))
		},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	// Global-scoped middleware:
	bot.Use(mw.Recover())
	bot.Use(mw.AutoRespond())
	bot.Use(mw.Logger(log.NewLogAdapter(logger)))
	if len(config.Telegram.Whitelist) > 0 {
		bot.Use(mw.Whitelist(config.Telegram.Whitelist...))
	}

	return &Telegram{
		bot:    bot,
		db:     db,
		config: config,
		logger: logger,
		http:   httpClient,
	}, nil
}

// Archive returns the archive-chat writer bound to this bot identity.
func (t *Telegram) Archive() relay.Archive {
	return &archiveWriter{
		bot:  t.bot,
		chat: tele.ChatID(t.config.Telegram.ArchiveChatID),
	}
}

// Courier returns the archive-to-requester copier bound to this bot identity.
func (t *Telegram) Courier() relay.Courier {
	return &courier{
		bot:     t.bot,
		archive: t.config.Telegram.ArchiveChatID,
	}
}

// Classifier returns the chat policy resolver backed by the Bot API.
func (t *Telegram) Classifier() relay.Classifier {
	return newClassifier(t.config.Telegram.Token, t.http)
}

// Bind attaches the relay orchestrator and registers all handlers. Called
// once from the composition root, after the orchestrator exists.
func (t *Telegram) Bind(relayer *relay.Orchestrator) {
	t.relayer = relayer
	t.registerHandlers()
}

// NotifyUser sends a service notice to a user, outside any handler flow.
func (t *Telegram) NotifyUser(userID model.UserID, text string) error {
	_, err := t.bot.Send(tele.ChatID(userID.ToInt64()), text)
	return err
}

// NotifyAdmin sends a service notice to the configured admin, if any.
func (t *Telegram) NotifyAdmin(text string) error {
	if t.config.Telegram.AdminID == 0 {
		return nil
	}
	_, err := t.bot.Send(tele.ChatID(t.config.Telegram.AdminID), text)
	return err
}

func (t *Telegram) Start() {
	t.bot.Start()
}

func (t *Telegram) Stop() {
	t.bot.Stop()
}

// Username is the bot's public slug, used to build referral links.
func (t *Telegram) Username() string {
	return t.bot.Me.Username
}
