package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/query"
)

func (b *Bot) start(ctx context.Context, msg *tgmodels.Message) {
	_, markup := b.session(ctx, msg.From.ID, msg.Chat.ID, false)
	b.reply(ctx, msg.Chat.ID,
		"Willkommen beim KIT-Sitzplatzreservierungsbot!\n"+
			"Klicke auf die Knöpfe unten, um freie Plätze abzurufen.\n"+
			"Um Plätze zu buchen musst du dich zuerst einloggen. Klicke dazu unten auf Login.",
		markup)
}

func (b *Bot) daySelected(ctx context.Context, msg *tgmodels.Message) {
	delta := dayDeltaForLabel(msg.Text)
	if delta < 0 {
		return
	}
	b.setTemp(ctx, msg.From.ID, "day_selected", strconv.Itoa(delta))
	b.setTemp(ctx, msg.From.ID, "stage", stageTime)

	names := make([]string, 0, len(b.engine.Daytimes()))
	for _, slot := range b.engine.Daytimes() {
		names = append(names, title(slot.Name))
	}
	b.reply(ctx, msg.Chat.ID, "Welche Zeit?", daytimeKeyboard(names))
}

// timeSelected finishes the day/time dialog. It reports false when the text
// is no daytime label so the message falls through to normal routing.
func (b *Bot) timeSelected(ctx context.Context, msg *tgmodels.Message) bool {
	daytime := -1
	for _, slot := range b.engine.Daytimes() {
		if strings.EqualFold(msg.Text, slot.Name) {
			daytime = slot.Index
			break
		}
	}
	if daytime < 0 {
		return false
	}

	userID := msg.From.ID
	dayValue := b.getTemp(ctx, userID, "day_selected")
	b.clearTemp(ctx, userID, "day_selected", "stage")
	_, markup := b.session(ctx, userID, msg.Chat.ID, false)
	if dayValue == "" {
		b.reply(ctx, msg.Chat.ID, "Wähle zuerst einen Tag aus.", markup)
		return true
	}
	delta, err := strconv.Atoi(dayValue)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, "Wähle zuerst einen Tag aus.", markup)
		return true
	}

	text, err := b.freeSeatOverview(ctx, delta, daytime)
	if err != nil {
		slog.Error("free seat overview", slog.Any("error", err))
		b.reply(ctx, msg.Chat.ID, "Leider ist ein Fehler aufgetreten:\n"+err.Error(), markup)
		return true
	}
	b.reply(ctx, msg.Chat.ID, text, markup)
	return true
}

// freeSeatOverview renders one day's free seats per area. The search runs
// anonymously so all users share the same cached grids; areas served from the
// cache are printed in italics. Up to three free seats become direct booking
// commands, larger areas get a drill-down command instead.
func (b *Bot) freeSeatOverview(ctx context.Context, delta, daytime int) (string, error) {
	date := b.now().AddDate(0, 0, delta)
	grids, err := b.engine.DayEntries(ctx, date, nil, nil)
	if len(grids) == 0 {
		if err != nil {
			return "", err
		}
		// Telegram rejects empty message texts.
		return "Aktuell sind keine Bereiche bekannt.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", query.FormatDay(date))
	fmt.Fprintf(&sb, "<pre>%s</pre>\n", title(b.engine.Daytimes()[daytime].Name))
	for _, area := range b.engine.Areas() {
		grid, ok := grids[area.ID]
		if !ok {
			continue
		}
		entries := grid.Slots[daytime]
		var free []models.SeatEntry
		for _, entry := range entries {
			if entry.State == models.StateFree {
				free = append(free, entry)
			}
		}
		if len(free) == 0 {
			continue
		}

		name := area.Name
		if grid.Cached {
			name = "<i>" + name + "</i>"
		}
		fmt.Fprintf(&sb, "%s: %d/%d", name, len(free), len(entries))
		if len(free) <= 3 {
			commands := make([]string, len(free))
			for i, entry := range free {
				commands[i] = seatCommandText(delta, daytime, entry)
			}
			fmt.Fprintf(&sb, " (%s)", strings.Join(commands, ", "))
		} else {
			fmt.Fprintf(&sb, " /B%d_%d_%s", delta, daytime, area.ID)
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// seatCommandText renders the command that books one concrete seat.
func seatCommandText(delta, daytime int, entry models.SeatEntry) string {
	seat := strings.ReplaceAll(entry.Seat, " ", "_")
	return fmt.Sprintf("/B%d_%d_%s_%s_%s", delta, daytime, entry.Area, entry.RoomID, seat)
}

func (b *Bot) reservations(ctx context.Context, msg *tgmodels.Message) {
	userID := msg.From.ID
	jar, markup := b.session(ctx, userID, msg.Chat.ID, true)
	if jar == nil {
		b.setTemp(ctx, userID, "captcha_next", nextReservations)
		b.showCaptcha(ctx, msg)
		return
	}

	reservations, err := b.engine.Reservations(ctx, userID, jar)
	if err != nil {
		slog.Error("list reservations", slog.Int64("user_id", userID), slog.Any("error", err))
		b.reply(ctx, msg.Chat.ID, "Es gab einen Fehler beim Öffnen der Reservierungen", markup)
		return
	}
	if len(reservations) == 0 {
		b.reply(ctx, msg.Chat.ID, "Du hast aktuell keine Reservierungen.", markup)
		return
	}

	var sb strings.Builder
	sb.WriteString("<u>Deine Reservierungen</u>\n")
	lastDate := ""
	for i, reservation := range reservations {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if reservation.Date != lastDate {
			fmt.Fprintf(&sb, "<b>%s</b>\n", reservation.Date)
			lastDate = reservation.Date
		}
		if reservation.Daytime != "" {
			fmt.Fprintf(&sb, "<pre>%s</pre>\n", reservation.Daytime)
		}
		fmt.Fprintf(&sb, "%s: Platz %s . Löschen: /C%s\n",
			reservation.Room, reservation.Seat, reservation.ID)
	}

	sent := b.reply(ctx, msg.Chat.ID, sb.String(), markup)
	if sent == nil {
		return
	}
	// Keep the latest reservation list pinned in the chat.
	if _, err := b.api.UnpinAllChatMessages(ctx, &tgbot.UnpinAllChatMessagesParams{ChatID: msg.Chat.ID}); err != nil {
		slog.Debug("unpin messages", slog.Any("error", err))
	}
	_, err = b.api.PinChatMessage(ctx, &tgbot.PinChatMessageParams{
		ChatID:              msg.Chat.ID,
		MessageID:           sent.ID,
		DisableNotification: true,
	})
	if err != nil {
		slog.Debug("pin reservations", slog.Any("error", err))
	}
}

func (b *Bot) openingTimes(ctx context.Context, msg *tgmodels.Message) {
	_, markup := b.session(ctx, msg.From.ID, msg.Chat.ID, false)
	text, err := b.engine.OpeningTimes(ctx)
	if err != nil {
		slog.Error("fetch opening times", slog.Any("error", err))
		b.reply(ctx, msg.Chat.ID, "Die Öffnungszeiten konnten nicht geladen werden.", markup)
		return
	}
	b.reply(ctx, msg.Chat.ID, text, markup)
}

func (b *Bot) statistics(ctx context.Context, msg *tgmodels.Message) {
	_, markup := b.session(ctx, msg.From.ID, msg.Chat.ID, false)

	var sb strings.Builder
	for delta := 0; delta < 4; delta++ {
		date := b.now().AddDate(0, 0, delta)
		stats, err := query.OccupancyStats(ctx, b.engine, date)
		if err != nil {
			slog.Error("occupancy statistics", slog.Any("error", err))
			b.reply(ctx, msg.Chat.ID, "Leider ist ein Fehler aufgetreten:\n"+err.Error(), markup)
			return
		}

		total := 0
		byGroup := make(map[string]int)
		var groupOrder []string
		for _, campus := range stats {
			for group, count := range campus.ByGroup {
				if _, seen := byGroup[group]; !seen {
					groupOrder = append(groupOrder, group)
				}
				byGroup[group] += count
				total += count
			}
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "<b>%s</b>\n", query.FormatDay(date))
		fmt.Fprintf(&sb, "Insgesamt: %d\n", total)
		sb.WriteString("<u>Nach Uni/Hochschule:</u>\n")
		for _, group := range groupOrder {
			count := byGroup[group]
			percent := 0.0
			if total > 0 {
				percent = float64(count) / float64(total) * 100
			}
			fmt.Fprintf(&sb, "%s: %d (%.1f%%)\n", group, count, percent)
		}
		sb.WriteString("\n<u>Nach Standort:</u>\n")
		for _, campus := range stats {
			occupied := campus.Total - campus.Free
			fmt.Fprintf(&sb, "%s: %d\n", campus.Campus, occupied)
		}
	}
	b.reply(ctx, msg.Chat.ID, sb.String(), markup)
}

func (b *Bot) cancelAction(ctx context.Context, msg *tgmodels.Message) {
	userID := msg.From.ID
	b.clearLoginState(ctx, userID)
	b.clearTemp(ctx, userID, "day_selected", "booking_info", "booking_captcha_values", "captcha_next")
	_, markup := b.session(ctx, userID, msg.Chat.ID, false)
	b.reply(ctx, msg.Chat.ID, "Aktion abgebrochen.", markup)
}

func (b *Bot) unknown(ctx context.Context, msg *tgmodels.Message) {
	if msg.Text == "/start" {
		b.start(ctx, msg)
		return
	}
	_, markup := b.session(ctx, msg.From.ID, msg.Chat.ID, false)
	b.reply(ctx, msg.Chat.ID, "Unbekannter Befehl. Benutze die Buttons unten, um Funktionen aufzurufen.", markup)
}

func title(text string) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// jsonString marshals conversation payloads; errors cannot happen for the
// plain structs involved.
func jsonString(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode conversation payload", slog.Any("error", err))
		return ""
	}
	return string(raw)
}
