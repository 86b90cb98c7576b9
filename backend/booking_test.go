package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
)

// bookingSite mocks the booking endpoints. The handler answers the ajax
// precheck with the given payload and the commit with the given status and
// body; the submitted commit form is captured for inspection.
func bookingSite(t *testing.T, precheck string, commitStatus int, commitBody string) *url.Values {
	t.Helper()
	var commitForm url.Values

	httpmock.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`edit_entry\.php`,
		httpmock.NewStringResponder(http.StatusOK, "<html><body>form</body></html>"))
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"edit_entry_handler.php",
		func(req *http.Request) (*http.Response, error) {
			if err := req.ParseForm(); err != nil {
				t.Errorf("parse booking form: %v", err)
			}
			if req.PostForm.Get("ajax") == "1" {
				resp := httpmock.NewStringResponse(http.StatusOK, precheck)
				resp.Request = req
				return resp, nil
			}
			commitForm = req.PostForm
			resp := httpmock.NewStringResponse(commitStatus, commitBody)
			if commitStatus >= 300 && commitStatus < 400 {
				resp.Header.Set("Location", testBaseURL)
			}
			resp.Request = req
			return resp, nil
		})
	return &commitForm
}

func TestBookSeatSuccess(t *testing.T) {
	b := newTestBackend(t)
	seedCredentials(t, b, 42, "uxyz1234", "secret")
	commitForm := bookingSite(t, `{"valid_booking": true, "rules_broken": []}`, http.StatusFound, "")
	jar := models.CookieJar{{Name: "PHPSESSID", Value: "session"}}

	ok, message, err := b.BookSeat(context.Background(), 42, 0, 0, "20", "7", "102", jar)
	if err != nil {
		t.Fatalf("BookSeat() error = %v", err)
	}
	if !ok || message != "" {
		t.Fatalf("BookSeat() = (%v, %q), want (true, \"\")", ok, message)
	}

	checks := map[string]string{
		"name":          "uxyz1234",
		"create_by":     "uxyz1234",
		"description":   "vormittags+",
		"start_day":     "10",
		"start_month":   "3",
		"start_year":    "2026",
		"start_seconds": "43200",
		"end_day":       "10",
		"end_month":     "3",
		"end_year":      "2026",
		"end_seconds":   "43200",
		"area":          "20",
		"rooms[]":       "102",
		"type":          "K",
		"confirmed":     "1",
		"rep_id":        "0",
		"edit_type":     "series",
		"returl":        "day.php?year=2026&month=3&day=10&area=20",
	}
	for field, want := range checks {
		if got := commitForm.Get(field); got != want {
			t.Errorf("commit form %s = %q, want %q", field, got, want)
		}
	}
	if commitForm.Get("ajax") != "" {
		t.Error("commit carried the ajax marker")
	}
}

func TestBookSeatRejectedWithRuleMessage(t *testing.T) {
	b := newTestBackend(t)
	seedCredentials(t, b, 42, "uxyz1234", "secret")
	bookingSite(t, `{"valid_booking": false, "rules_broken": ["Maximal 2 Buchungen pro Tag"]}`,
		http.StatusOK, "<html><body><div id='contents'>Fehler</div></body></html>")

	ok, message, err := b.BookSeat(context.Background(), 42, 1, 1, "20", "1", "101", nil)
	if err != nil {
		t.Fatalf("BookSeat() error = %v", err)
	}
	if ok {
		t.Fatal("BookSeat() = true, want rejection")
	}
	if message != "Maximal 2 Buchungen pro Tag" {
		t.Errorf("BookSeat() message = %q, want the broken rule", message)
	}
}

func TestBookSeatCommitVerdictWins(t *testing.T) {
	// A stale precheck complaint is discarded once the commit redirects.
	b := newTestBackend(t)
	seedCredentials(t, b, 42, "uxyz1234", "secret")
	bookingSite(t, `{"valid_booking": false, "rules_broken": ["Der Platz ist bereits gebucht"]}`,
		http.StatusFound, "")

	ok, message, err := b.BookSeat(context.Background(), 42, 0, 2, "20", "1", "101", nil)
	if err != nil {
		t.Fatalf("BookSeat() error = %v", err)
	}
	if !ok || message != "" {
		t.Errorf("BookSeat() = (%v, %q), want (true, \"\")", ok, message)
	}
}

func TestBookSeatRejectedWithPageMessage(t *testing.T) {
	b := newTestBackend(t)
	seedCredentials(t, b, 42, "uxyz1234", "secret")
	bookingSite(t, `not json at all`,
		http.StatusOK, "<html><body><div id=\"contents\">Bitte zuerst anmelden</div></body></html>")

	ok, message, err := b.BookSeat(context.Background(), 42, 0, 0, "20", "1", "101", nil)
	if err != nil {
		t.Fatalf("BookSeat() error = %v", err)
	}
	if ok {
		t.Fatal("BookSeat() = true, want rejection")
	}
	if message != "Bitte zuerst anmelden" {
		t.Errorf("BookSeat() message = %q, want the page text", message)
	}
}

func TestBookSeatInvalidDaytime(t *testing.T) {
	b := newTestBackend(t)
	seedCredentials(t, b, 42, "uxyz1234", "secret")

	for _, index := range []int{-1, len(testDaytimes)} {
		var invalid InvalidDaytimeError
		_, _, err := b.BookSeat(context.Background(), 42, 0, index, "20", "1", "101", nil)
		if !errors.As(err, &invalid) {
			t.Errorf("BookSeat(daytime=%d) error = %v, want InvalidDaytimeError", index, err)
		}
	}
	if calls := httpmock.GetTotalCallCount(); calls != 0 {
		t.Errorf("invalid daytime issued %d requests, want 0", calls)
	}
}

func TestBookSeatWithoutCredentials(t *testing.T) {
	b := newTestBackend(t)

	_, _, err := b.BookSeat(context.Background(), 42, 0, 0, "20", "1", "101", nil)
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("BookSeat() error = %v, want ErrNoCredentials", err)
	}
}
