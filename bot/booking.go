package bot

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/backend"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/query"
)

// Seat command shapes. The overview messages emit them, users tap them.
var (
	bookingFullPattern = regexp.MustCompile(`^/B(\d)_(\d)_(\d+)_([A-Z0-9]+)_([A-Z0-9_]+)$`)
	bookingSeatPattern = regexp.MustCompile(`^/B_([A-Z0-9]+)_([A-Z0-9_]+)$`)
	bookingAreaPattern = regexp.MustCompile(`^/B(\d)_(\d)_(\d+)$`)
	cancelPattern      = regexp.MustCompile(`^/C(\d+)$`)
)

// bookingRequest carries one booking through the captcha interruption.
type bookingRequest struct {
	DayDelta int    `json:"day_delta"`
	Daytime  int    `json:"daytime"`
	Area     string `json:"area"`
	RoomID   string `json:"room_id"`
	Seat     string `json:"seat"`
}

func (b *Bot) seatCommand(ctx context.Context, msg *tgmodels.Message) {
	text := msg.Text
	userID := msg.From.ID

	if m := bookingFullPattern.FindStringSubmatch(text); m != nil {
		delta, _ := strconv.Atoi(m[1])
		daytime, _ := strconv.Atoi(m[2])
		b.book(ctx, msg, bookingRequest{
			DayDelta: delta,
			Daytime:  daytime,
			Area:     m[3],
			RoomID:   m[4],
			Seat:     strings.ReplaceAll(m[5], "_", " "),
		})
		return
	}

	if m := bookingSeatPattern.FindStringSubmatch(text); m != nil {
		stored := b.getTemp(ctx, userID, "booking_info")
		b.clearTemp(ctx, userID, "booking_info")
		var request bookingRequest
		if stored == "" || json.Unmarshal([]byte(stored), &request) != nil {
			_, markup := b.session(ctx, userID, msg.Chat.ID, false)
			b.reply(ctx, msg.Chat.ID, "Es ist ein Fehler aufgetreten, versuche es nochmal.", markup)
			return
		}
		request.RoomID = m[1]
		request.Seat = strings.ReplaceAll(m[2], "_", " ")
		b.book(ctx, msg, request)
		return
	}

	if m := bookingAreaPattern.FindStringSubmatch(text); m != nil {
		b.seatSelection(ctx, msg, m)
		return
	}

	if m := cancelPattern.FindStringSubmatch(text); m != nil {
		b.cancelReservation(ctx, msg, m[1])
		return
	}
}

// seatSelection answers an area drill-down command with a keyboard of the
// area's free seats.
func (b *Bot) seatSelection(ctx context.Context, msg *tgmodels.Message, match []string) {
	userID := msg.From.ID
	delta, _ := strconv.Atoi(match[1])
	daytime, _ := strconv.Atoi(match[2])
	area := match[3]

	request := bookingRequest{DayDelta: delta, Daytime: daytime, Area: area}
	b.setTemp(ctx, userID, "booking_info", jsonString(request))

	b.typing(ctx, msg.Chat.ID)
	date := b.now().AddDate(0, 0, delta)
	bookings, err := query.SearchBookings(ctx, b.engine, date, 1, models.StateFree,
		[]int{daytime}, []models.Area{{ID: area, Name: b.engine.AreaName(area)}}, nil)
	if err != nil {
		_, markup := b.session(ctx, userID, msg.Chat.ID, false)
		slog.Error("seat selection", slog.Any("error", err))
		b.reply(ctx, msg.Chat.ID, "Leider ist ein Fehler aufgetreten:\n"+err.Error(), markup)
		return
	}

	commands := make([]string, 0, len(bookings))
	for _, booking := range bookings {
		seat := strings.ReplaceAll(booking.Seat.Seat, " ", "_")
		commands = append(commands, "/B_"+booking.Seat.RoomID+"_"+seat)
	}
	b.reply(ctx, msg.Chat.ID, "Wähle einen Sitzplatz", seatKeyboard(commands))
}

// book runs one booking, detouring through the captcha dialog when the
// session has to be renewed first.
func (b *Bot) book(ctx context.Context, msg *tgmodels.Message, request bookingRequest) {
	userID := msg.From.ID
	b.typing(ctx, msg.Chat.ID)

	jar, err := b.engine.Login(ctx, userID, "", "", true)
	switch {
	case err == nil:
	case errors.Is(err, backend.ErrChallengeRequired):
		b.setTemp(ctx, userID, "booking_captcha_values", jsonString(request))
		b.setTemp(ctx, userID, "captcha_next", nextBooking)
		b.showCaptcha(ctx, msg)
		return
	case errors.Is(err, backend.ErrNoCredentials):
		b.reply(ctx, msg.Chat.ID, "Zuerst musst du dich einloggen. Klicke dazu unten auf Login.", mainKeyboard(false))
		return
	default:
		slog.Error("login for booking", slog.Int64("user_id", userID), slog.Any("error", err))
		b.reply(ctx, msg.Chat.ID, "Leider ist ein Fehler aufgetreten:\n"+err.Error(), mainKeyboard(false))
		return
	}

	ok, reason, err := b.engine.BookSeat(ctx, userID,
		request.DayDelta, request.Daytime, request.Area, request.Seat, request.RoomID, jar)
	markup := mainKeyboard(true)
	if err != nil {
		slog.Error("book seat", slog.Int64("user_id", userID), slog.Any("error", err))
		b.reply(ctx, msg.Chat.ID, "Leider ist ein Fehler aufgetreten:\n"+err.Error(), markup)
		return
	}
	if ok {
		b.reply(ctx, msg.Chat.ID, "Erfolgreich gebucht!", markup)
		return
	}
	text := "Buchung ist leider fehlgeschlagen."
	if reason != "" {
		text += "\nFehler: " + reason
	}
	b.reply(ctx, msg.Chat.ID, text, markup)
}

// resumeBooking retries a booking that was interrupted by the captcha.
func (b *Bot) resumeBooking(ctx context.Context, msg *tgmodels.Message) {
	userID := msg.From.ID
	stored := b.getTemp(ctx, userID, "booking_captcha_values")
	b.clearTemp(ctx, userID, "booking_captcha_values")

	var request bookingRequest
	if stored == "" || json.Unmarshal([]byte(stored), &request) != nil {
		_, markup := b.session(ctx, userID, msg.Chat.ID, false)
		b.reply(ctx, msg.Chat.ID, "Es ist ein Fehler aufgetreten, versuche es nochmal.", markup)
		return
	}
	b.book(ctx, msg, request)
}

func (b *Bot) cancelReservation(ctx context.Context, msg *tgmodels.Message, entryID string) {
	userID := msg.From.ID
	jar, markup := b.session(ctx, userID, msg.Chat.ID, true)
	if jar == nil {
		b.reply(ctx, msg.Chat.ID, "Zuerst musst du dich einloggen. Klicke dazu unten auf Login.", markup)
		return
	}

	ok, err := b.engine.CancelReservation(ctx, userID, entryID, jar)
	if err != nil {
		slog.Error("cancel reservation", slog.Int64("user_id", userID), slog.Any("error", err))
		b.reply(ctx, msg.Chat.ID, "Löschen fehlgeschlagen.\nFehler: "+err.Error(), markup)
		return
	}
	if ok {
		b.reply(ctx, msg.Chat.ID, "Reservierung erfolgreich gelöscht.", markup)
		return
	}
	b.reply(ctx, msg.Chat.ID, "Löschen fehlgeschlagen.", markup)
}
