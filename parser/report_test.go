package parser

import (
	"errors"
	"testing"
)

var slotNames = []string{"vormittags", "nachmittags", "abends"}

func TestParseReservations(t *testing.T) {
	body := `{"aaData": [
[ "<a data-id=\"4711\" href=\"edit_entry.php?id=4711\">vormittags+</a>",
  "Lesesaal Altbau", "Platz A2",
  "<span>vormittags+ Montag, 31. August 2026</span>" ],
[ "<a data-id=\"4712\" href=\"edit_entry.php?id=4712\">abends+</a>",
  "Lesesaal Neubau", "Platz N7",
  "01.09.2026" ]
]}`

	reservations, err := ParseReservations([]byte(body), slotNames)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(reservations) != 2 {
		t.Fatalf("reservations = %d, want 2", len(reservations))
	}

	first := reservations[0]
	if first.ID != "4711" || first.Room != "Lesesaal Altbau" || first.Seat != "Platz A2" {
		t.Fatalf("first = %+v", first)
	}
	if first.Date != "Mo, 31.08." {
		t.Fatalf("first date = %q, want %q", first.Date, "Mo, 31.08.")
	}
	if first.Daytime != "Vormittags" {
		t.Fatalf("first daytime = %q, want Vormittags", first.Daytime)
	}

	second := reservations[1]
	if second.ID != "4712" {
		t.Fatalf("second = %+v", second)
	}
	if second.Date != "Di, 01.09." {
		t.Fatalf("second date = %q, want %q", second.Date, "Di, 01.09.")
	}
	if second.Daytime != "" {
		t.Fatalf("second daytime = %q, want empty", second.Daytime)
	}
}

func TestParseReservationsEmpty(t *testing.T) {
	reservations, err := ParseReservations([]byte(`{"aaData": []}`), slotNames)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(reservations) != 0 {
		t.Fatalf("reservations = %d, want 0", len(reservations))
	}
}

func TestParseReservationsStructuralFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>Fehler</html>`},
		{name: "short row", body: `{"aaData": [["<a data-id=\"1\"></a>", "Raum"]]}`},
		{name: "missing entry id", body: `{"aaData": [["<a href=\"#\">x</a>", "Raum", "Platz", "01.09.2026"]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReservations([]byte(tt.body), slotNames)
			var structural StructureError
			if !errors.As(err, &structural) {
				t.Fatalf("err = %v, want StructureError", err)
			}
		})
	}
}

func TestNormalizeReportDate(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantDate    string
		wantDaytime string
	}{
		{
			name:     "numeric date",
			raw:      "30.08.2026",
			wantDate: "So, 30.08.",
		},
		{
			name:     "german long date",
			raw:      "Montag, 31. August 2026",
			wantDate: "Mo, 31.08.",
		},
		{
			name:        "daytime prefix with plus",
			raw:         "nachmittags+ 31.08.2026",
			wantDate:    "Mo, 31.08.",
			wantDaytime: "Nachmittags",
		},
		{
			name:        "daytime prefix without date",
			raw:         "abends+ demnächst",
			wantDate:    "Demnächst",
			wantDaytime: "Abends",
		},
		{
			name:     "unrecognized text",
			raw:      "gesperrt wegen wartung",
			wantDate: "Gesperrt Wegen Wartung",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, daytime := NormalizeReportDate(tt.raw, slotNames)
			if date != tt.wantDate {
				t.Fatalf("date = %q, want %q", date, tt.wantDate)
			}
			if daytime != tt.wantDaytime {
				t.Fatalf("daytime = %q, want %q", daytime, tt.wantDaytime)
			}
		})
	}
}
