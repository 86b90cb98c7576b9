package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/parser"
)

// reportQuery builds the report endpoint's query for all upcoming
// reservations created by the given account.
func (b *Backend) reportQuery(account string) url.Values {
	now := b.now()
	return url.Values{
		"from_day":        {fmt.Sprint(now.Day())},
		"from_month":      {fmt.Sprint(int(now.Month()))},
		"from_year":       {fmt.Sprint(now.Year())},
		"to_day":          {"1"},
		"to_month":        {"12"},
		"to_year":         {"2030"},
		"areamatch":       {""},
		"roommatch":       {""},
		"namematch":       {""},
		"descrmatch":      {""},
		"creatormatch":    {account},
		"match_private":   {"2"},
		"match_confirmed": {"2"},
		"output":          {"0"},
		"output_format":   {"0"},
		"sortby":          {"d"},
		"sumby":           {"d"},
		"phase":           {"2,2"},
		"datatable":       {"1"},
	}
}

// Reservations lists the user's upcoming reservations from the site's
// report endpoint. The jar must belong to an authenticated session.
func (b *Backend) Reservations(ctx context.Context, userID int64, jar models.CookieJar) ([]models.Reservation, error) {
	creds, err := b.Credentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := b.reportQuery(creds.User)
	query.Set("ajax", "1")
	query.Set("_", fmt.Sprint(b.now().UnixMilli()))
	res, err := b.get(ctx, "report.php?"+query.Encode(), jar, true)
	if err != nil {
		return nil, err
	}
	if res.status != http.StatusOK {
		// An empty reservation list is a 200 with an empty table; any
		// other status is a failure, never "no reservations".
		return nil, TransportError{Err: fmt.Errorf("report status %d", res.status)}
	}

	names := make([]string, len(b.daytimes))
	for i, slot := range b.daytimes {
		names[i] = slot.Name
	}
	return parser.ParseReservations(res.body, names)
}

// CancelReservation deletes one reservation by its entry id. The site
// answers a successful deletion with a redirect back to the report; a plain
// page means the entry was not deletable (already gone, or foreign).
func (b *Backend) CancelReservation(ctx context.Context, userID int64, entryID string, jar models.CookieJar) (bool, error) {
	creds, err := b.Credentials(ctx, userID)
	if err != nil {
		return false, err
	}

	// The deletion's return report is sorted by room and runs in a single
	// phase, unlike the listing query.
	returlQuery := b.reportQuery(creds.User)
	returlQuery.Set("sortby", "r")
	returlQuery.Set("phase", "2")
	returl := "report.php?" + returlQuery.Encode()
	query := url.Values{
		"id":     {entryID},
		"series": {"0"},
		"returl": {returl},
	}
	res, err := b.get(ctx, "del_entry.php?"+query.Encode(), jar, false)
	if err != nil {
		return false, err
	}
	if res.status >= 300 && res.status < 400 {
		slog.Info("reservation cancelled",
			slog.Int64("user_id", userID),
			slog.String("entry_id", entryID),
		)
		return true, nil
	}
	return false, nil
}
