package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/backend"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
)

// loginStart opens the login dialog. Users with stored credentials only
// have to solve the challenge again; everyone else is asked for their
// library account first.
func (b *Bot) loginStart(ctx context.Context, msg *tgmodels.Message) {
	userID := msg.From.ID
	b.typing(ctx, msg.Chat.ID)

	if _, err := b.engine.Credentials(ctx, userID); err == nil {
		if b.sendCaptcha(ctx, msg,
			"Gib nun die Zeichen im Captcha ein.\nWenn du dich neu einloggen willst, klicke unten auf den Knopf.",
			true) {
			return
		}
	}

	b.setTemp(ctx, userID, "stage", stageUsername)
	b.reply(ctx, msg.Chat.ID,
		"Um dich einzuloggen musst du leider deine Kontodaten eingeben.\n"+
			"Es ist (soweit ich weiß) noch kein <a href=\"https://oauth.net/\">Oauth</a> für die Sitzplatzreservierung implementiert.\n"+
			"Gib nun die <b>Kontonummer</b> von deinem Bibliotheks-Konto ein:",
		cancelKeyboard())
}

func (b *Bot) loginUsername(ctx context.Context, msg *tgmodels.Message) {
	if msg.Text == buttonCancel {
		b.loginCancel(ctx, msg)
		return
	}
	userID := msg.From.ID
	b.setTemp(ctx, userID, "login_username", msg.Text)
	b.setTemp(ctx, userID, "stage", stagePassword)
	b.reply(ctx, msg.Chat.ID,
		"Gib jetzt das <b>Passwort</b> von deinem Bibliotheks-Konto ein:",
		cancelKeyboard())
}

func (b *Bot) loginPassword(ctx context.Context, msg *tgmodels.Message) {
	if msg.Text == buttonCancel {
		b.loginCancel(ctx, msg)
		return
	}
	userID := msg.From.ID

	// Get the plaintext password out of the chat history.
	_, err := b.api.DeleteMessage(ctx, &tgbot.DeleteMessageParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
	})
	if err != nil {
		slog.Debug("delete password message", slog.Any("error", err))
	}

	b.typing(ctx, msg.Chat.ID)
	b.setTemp(ctx, userID, "login_password", msg.Text)
	b.showCaptcha(ctx, msg)
}

// showCaptcha fetches a fresh challenge and moves the dialog to the answer
// stage. On failure the dialog is abandoned.
func (b *Bot) showCaptcha(ctx context.Context, msg *tgmodels.Message) {
	if !b.sendCaptcha(ctx, msg, "Gib nun die Zeichen im Captcha ein", false) {
		_, markup := b.session(ctx, msg.From.ID, msg.Chat.ID, false)
		b.reply(ctx, msg.Chat.ID, "Konnte Captcha nicht laden :(", markup)
	}
}

func (b *Bot) sendCaptcha(ctx context.Context, msg *tgmodels.Message, caption string, offerNewLogin bool) bool {
	userID := msg.From.ID
	photo, jar, err := b.engine.FetchCaptcha(ctx)
	if err != nil || photo == nil {
		if err != nil {
			slog.Error("fetch captcha", slog.Any("error", err))
		}
		return false
	}

	b.setTemp(ctx, userID, "login_cookies", jsonString(jar))
	b.setTemp(ctx, userID, "stage", stageCaptcha)

	_, err = b.api.SendPhoto(ctx, &tgbot.SendPhotoParams{
		ChatID:      msg.Chat.ID,
		Photo:       &tgmodels.InputFileUpload{Filename: "captcha.png", Data: bytes.NewReader(photo)},
		Caption:     caption,
		ReplyMarkup: captchaKeyboard(offerNewLogin),
	})
	if err != nil {
		slog.Error("send captcha", slog.Any("error", err))
		return false
	}
	return true
}

func (b *Bot) loginCaptcha(ctx context.Context, msg *tgmodels.Message) {
	userID := msg.From.ID
	text := msg.Text

	switch text {
	case buttonCancel:
		b.loginCancel(ctx, msg)
		return
	case buttonNewLogin:
		if err := b.engine.RemoveCredentials(ctx, userID); err != nil {
			slog.Error("remove credentials", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		b.setTemp(ctx, userID, "stage", stageUsername)
		b.reply(ctx, msg.Chat.ID,
			"Gib nun die Kontonummer von deinem Bibliotheks-Konto ein:",
			cancelKeyboard())
		return
	}
	b.typing(ctx, msg.Chat.ID)

	username := b.getTemp(ctx, userID, "login_username")
	password := b.getTemp(ctx, userID, "login_password")
	if username == "" {
		if creds, err := b.engine.Credentials(ctx, userID); err == nil {
			username, password = creds.User, creds.Password
		}
	}

	var jar models.CookieJar
	if stored := b.getTemp(ctx, userID, "login_cookies"); stored != "" {
		if err := json.Unmarshal([]byte(stored), &jar); err != nil {
			jar = nil
		}
	}
	b.clearLoginState(ctx, userID)

	_, err := b.engine.CompleteLogin(ctx, userID, username, password, text, jar)
	if err != nil {
		if !errors.Is(err, backend.ErrAuthFailed) {
			slog.Error("complete login", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		b.reply(ctx, msg.Chat.ID, "Login fehlgeschlagen :(", mainKeyboard(false))
		return
	}

	next := b.getTemp(ctx, userID, "captcha_next")
	b.clearTemp(ctx, userID, "captcha_next")
	switch next {
	case nextReservations:
		b.reservations(ctx, msg)
	case nextBooking:
		b.resumeBooking(ctx, msg)
	default:
		b.reply(ctx, msg.Chat.ID,
			"Erfolgreich eingeloggt!\n"+
				"Die Nachrichten mit deinen Login-Daten kannst du jetzt löschen.",
			mainKeyboard(true))
	}
}

func (b *Bot) loginCancel(ctx context.Context, msg *tgmodels.Message) {
	b.clearLoginState(ctx, msg.From.ID)
	b.reply(ctx, msg.Chat.ID, "Login abgebrochen", mainKeyboard(false))
}
