package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/parser"
)

// precheckPayload is the JSON answer of the booking handler in ajax mode.
type precheckPayload struct {
	ValidBooking bool     `json:"valid_booking"`
	RulesBroken  []string `json:"rules_broken"`
}

// BookSeat books one seat for the user. dayDelta counts days from today,
// daytime indexes the discovered slots. The transaction runs in two phases
// against the site's booking handler: an ajax precheck whose JSON names the
// violated rule when the booking is doomed, then the real commit. Only a
// redirect on the commit means the seat is booked; any message collected
// during the precheck is discarded then, because the commit verdict is the
// authoritative one.
//
// The returned string carries the site's rejection wording when the booking
// failed; it is empty on success. An error return means the outcome is
// unknown, not that the booking failed.
func (b *Backend) BookSeat(ctx context.Context, userID int64, dayDelta, daytime int, area, seat, roomID string, jar models.CookieJar) (bool, string, error) {
	if daytime < 0 || daytime >= len(b.daytimes) {
		err := InvalidDaytimeError{Index: daytime, Count: len(b.daytimes)}
		b.metrics.IncError(errorTypeLabel(err))
		return false, "", err
	}

	creds, err := b.Credentials(ctx, userID)
	if err != nil {
		return false, "", err
	}

	date := b.now().AddDate(0, 0, dayDelta)
	slot := b.daytimes[daytime]

	// The handler takes the start and end timestamps as separate day,
	// month, year and seconds-of-day fields; start and end are identical
	// because one booking covers exactly one slot.
	form := url.Values{
		"name":          {creds.User},
		"description":   {strings.ToLower(slot.Name) + "+"},
		"start_day":     {fmt.Sprint(date.Day())},
		"start_month":   {fmt.Sprint(int(date.Month()))},
		"start_year":    {fmt.Sprint(date.Year())},
		"start_seconds": {fmt.Sprint(slot.Seconds)},
		"end_day":       {fmt.Sprint(date.Day())},
		"end_month":     {fmt.Sprint(int(date.Month()))},
		"end_year":      {fmt.Sprint(date.Year())},
		"end_seconds":   {fmt.Sprint(slot.Seconds)},
		"area":          {area},
		"rooms[]":       {roomID},
		"type":          {"K"},
		"confirmed":     {"1"},
		"returl":        {dayURL(date, area)},
		"create_by":     {creds.User},
		"rep_id":        {"0"},
		"edit_type":     {"series"},
	}

	// Warm-up: the handler refuses bookings whose form page was never
	// opened in the same session.
	warmup := fmt.Sprintf("edit_entry.php?area=%s&room=%s&period=0&year=%d&month=%d&day=%d",
		area, roomID, date.Year(), int(date.Month()), date.Day())
	if res, err := b.get(ctx, warmup, jar, true); err == nil {
		jar = res.cookies
	} else {
		slog.Warn("booking form warm-up failed", slog.Any("error", err))
	}

	// Phase one. Failures here never abort the booking; the precheck only
	// contributes a better rejection message.
	rejection := ""
	preForm := url.Values{}
	for key, values := range form {
		preForm[key] = values
	}
	preForm.Set("ajax", "1")
	if pre, err := b.post(ctx, "edit_entry_handler.php", preForm, jar, true); err == nil {
		jar = pre.cookies
		var payload precheckPayload
		if json.Unmarshal(pre.body, &payload) == nil && !payload.ValidBooking && len(payload.RulesBroken) > 0 {
			rejection = payload.RulesBroken[0]
		}
	} else {
		slog.Warn("booking precheck failed", slog.Any("error", err))
	}

	// Phase two. A timeout here leaves the outcome unknown and must reach
	// the caller as an error, never as a rejection.
	commit, err := b.post(ctx, "edit_entry_handler.php", form, jar, false)
	if err != nil {
		b.metrics.IncBooking("error")
		return false, "", err
	}
	if commit.status >= 300 && commit.status < 400 {
		b.metrics.IncBooking("success")
		slog.Info("seat booked",
			slog.Int64("user_id", userID),
			slog.String("area", area),
			slog.String("seat", seat),
			slog.Time("date", date),
			slog.String("daytime", slot.Name),
		)
		return true, "", nil
	}

	if rejection == "" {
		rejection = parser.MainContent(commit.body)
	}
	b.metrics.IncBooking("rejected")
	slog.Info("booking rejected",
		slog.Int64("user_id", userID),
		slog.String("area", area),
		slog.String("seat", seat),
		slog.String("reason", rejection),
	)
	return false, rejection, nil
}
