// Package bot is the Telegram front end of the seat-reservation engine. It
// drives the conversation with reply keyboards and textual seat commands
// and keeps per-user conversation state in the shared store.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/backend"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/config"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/store"
)

// conversationTTL bounds how long a half-finished dialog (login steps, day
// selection, interrupted booking) survives in the store.
const conversationTTL = 10 * time.Minute

// Conversation stages, kept per user under the "stage" temp key.
const (
	stageUsername = "username"
	stagePassword = "password"
	stageCaptcha  = "captcha"
	stageTime     = "time"
)

// Follow-up actions resumed after a successful challenge login.
const (
	nextReservations = "reservations"
	nextBooking      = "booking"
)

// Bot wires Telegram updates to the reservation engine.
type Bot struct {
	api    *tgbot.Bot
	engine *backend.Backend
	store  store.Store
	now    func() time.Time
}

// New builds the bot against the given engine and state store.
func New(cfg *config.Config, engine *backend.Backend, st store.Store) (*Bot, error) {
	b := &Bot{
		engine: engine,
		store:  st,
		now:    time.Now,
	}

	api, err := tgbot.New(cfg.BotToken, tgbot.WithDefaultHandler(b.dispatch))
	if err != nil {
		return nil, err
	}
	b.api = api
	return b, nil
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	slog.Info("bot started")
	b.api.Start(ctx)
	slog.Info("bot stopped")
}

// dispatch routes one update. Pending conversation stages win over button
// texts so that a user typing their password is never treated as a command.
func (b *Bot) dispatch(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.From.IsBot {
		return
	}
	msg := update.Message
	text := msg.Text

	switch b.getTemp(ctx, msg.From.ID, "stage") {
	case stageUsername:
		b.loginUsername(ctx, msg)
		return
	case stagePassword:
		b.loginPassword(ctx, msg)
		return
	case stageCaptcha:
		b.loginCaptcha(ctx, msg)
		return
	case stageTime:
		if b.timeSelected(ctx, msg) {
			return
		}
	}

	switch {
	case dayDeltaForLabel(text) >= 0:
		b.daySelected(ctx, msg)
	case text == buttonReservations:
		b.reservations(ctx, msg)
	case text == buttonLogin:
		b.loginStart(ctx, msg)
	case text == buttonTimes:
		b.openingTimes(ctx, msg)
	case text == buttonStatistics:
		b.statistics(ctx, msg)
	case text == buttonCancel:
		b.cancelAction(ctx, msg)
	case bookingFullPattern.MatchString(text),
		bookingSeatPattern.MatchString(text),
		bookingAreaPattern.MatchString(text),
		cancelPattern.MatchString(text):
		b.seatCommand(ctx, msg)
	default:
		b.unknown(ctx, msg)
	}
}

// session loads the user's session and picks the matching main keyboard.
// With validate the stored session is checked against the site first, so a
// nil jar then really means "must log in again".
func (b *Bot) session(ctx context.Context, userID, chatID int64, validate bool) (models.CookieJar, tgmodels.ReplyMarkup) {
	b.typing(ctx, chatID)
	jar, err := b.engine.Login(ctx, userID, "", "", validate)
	if err != nil {
		if !errors.Is(err, backend.ErrChallengeRequired) && !errors.Is(err, backend.ErrNoCredentials) {
			slog.Warn("session probe failed", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, mainKeyboard(false)
	}
	return jar, mainKeyboard(true)
}

func (b *Bot) typing(ctx context.Context, chatID int64) {
	_, err := b.api.SendChatAction(ctx, &tgbot.SendChatActionParams{
		ChatID: chatID,
		Action: tgmodels.ChatActionTyping,
	})
	if err != nil {
		slog.Debug("send chat action", slog.Any("error", err))
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, markup tgmodels.ReplyMarkup) *tgmodels.Message {
	sent, err := b.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   tgmodels.ParseModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		slog.Error("send message", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return nil
	}
	return sent
}

func (b *Bot) getTemp(ctx context.Context, userID int64, description string) string {
	raw, err := b.store.Get(ctx, store.TempKey(description, userID))
	if err != nil {
		return ""
	}
	return string(raw)
}

func (b *Bot) setTemp(ctx context.Context, userID int64, description, value string) {
	if err := b.store.Set(ctx, store.TempKey(description, userID), []byte(value), conversationTTL); err != nil {
		slog.Error("store conversation state",
			slog.String("key", description),
			slog.Any("error", err),
		)
	}
}

func (b *Bot) clearTemp(ctx context.Context, userID int64, descriptions ...string) {
	for _, description := range descriptions {
		if err := b.store.Delete(ctx, store.TempKey(description, userID)); err != nil {
			slog.Debug("clear conversation state", slog.String("key", description))
		}
	}
}

// clearLoginState drops every trace of a login dialog.
func (b *Bot) clearLoginState(ctx context.Context, userID int64) {
	b.clearTemp(ctx, userID, "stage", "login_username", "login_password", "login_cookies")
}
