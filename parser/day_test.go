package parser

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
)

func TestStateFromClasses(t *testing.T) {
	tests := []struct {
		name    string
		classes []string
		want    models.SeatState
	}{
		{name: "free", classes: []string{"new"}, want: models.StateFree},
		{name: "occupied", classes: []string{"private", "K"}, want: models.StateOccupied},
		{name: "mine", classes: []string{"writable"}, want: models.StateMine},
		{name: "no markers", classes: []string{"celldiv", "foo"}, want: models.StateUnknown},
		{name: "empty", classes: nil, want: models.StateUnknown},
		{name: "precedence new over writable", classes: []string{"writable", "new"}, want: models.StateFree},
		{name: "precedence private over writable", classes: []string{"writable", "private"}, want: models.StateOccupied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateFromClasses(tt.classes); got != tt.want {
				t.Fatalf("StateFromClasses(%v) = %v, want %v", tt.classes, got, tt.want)
			}
			// Classification must be stable under reordering of the set.
			reversed := make([]string, 0, len(tt.classes))
			for i := len(tt.classes) - 1; i >= 0; i-- {
				reversed = append(reversed, tt.classes[i])
			}
			if got := StateFromClasses(reversed); got != tt.want {
				t.Fatalf("StateFromClasses(%v) = %v, want %v", reversed, got, tt.want)
			}
		})
	}
}

func TestOccupierFromClasses(t *testing.T) {
	tests := []struct {
		name    string
		state   models.SeatState
		classes []string
		want    string
	}{
		{name: "free never has occupier", state: models.StateFree, classes: []string{"new", "K"}, want: ""},
		{name: "mine never has occupier", state: models.StateMine, classes: []string{"writable", "P"}, want: ""},
		{name: "kit students", state: models.StateOccupied, classes: []string{"private", "K"}, want: "KIT Studenten"},
		{name: "dhbw students", state: models.StateOccupied, classes: []string{"private", "D"}, want: "DHBW Studenten"},
		{name: "hska students", state: models.StateOccupied, classes: []string{"private", "H"}, want: "HsKa Studenten"},
		{name: "internal", state: models.StateOccupied, classes: []string{"private", "I"}, want: "Interne Buchungen"},
		{name: "staff", state: models.StateOccupied, classes: []string{"private", "P"}, want: "Personal"},
		{name: "private bookings", state: models.StateOccupied, classes: []string{"private", "G"}, want: "Private Buchungen"},
		{name: "internal beats kit", state: models.StateOccupied, classes: []string{"K", "I"}, want: "Interne Buchungen"},
		{name: "no marker falls back to special", state: models.StateOccupied, classes: []string{"private"}, want: OccupierSpecial},
		{name: "unknown state still categorised", state: models.StateUnknown, classes: []string{"K"}, want: "KIT Studenten"},
		{name: "unknown state without marker", state: models.StateUnknown, classes: nil, want: OccupierSpecial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OccupierFromClasses(tt.state, tt.classes); got != tt.want {
				t.Fatalf("OccupierFromClasses(%v, %v) = %q, want %q", tt.state, tt.classes, got, tt.want)
			}
		})
	}
}

func dayPage(rows string) string {
	return fmt.Sprintf(`<html><body><table id="day_main">
<thead><tr><th>&nbsp;</th>
<th data-room="R1"><a href="#">Altbau</a>Platz A1</th>
<th data-room="R2"><a href="#">Altbau</a>Platz A2</th>
<th data-room="R3"><a href="#">Altbau</a>Platz A3</th>
</tr></thead>
<tbody>%s</tbody></table></body></html>`, rows)
}

func dayRow(parity, label string, cells string) string {
	return fmt.Sprintf(`<tr class="%s_row"><td class="row_labels"><div class="celldiv">%s</div></td>%s</tr>`,
		parity, label, cells)
}

func TestParseDayGrid(t *testing.T) {
	rows := dayRow("even", "vormittags",
		`<td class="new"><div class="celldiv"></div></td>`+
			`<td class="private K"><div class="celldiv"></div></td>`+
			`<td class="writable"><div class="celldiv" data-id="4711"></div></td>`) +
		dayRow("odd", "nachmittags",
			`<td class="new"><div class="celldiv"></div></td>`+
				`<td class="glitch"><div class="celldiv"></div></td>`+
				`<td class="new"><div class="celldiv"></div></td>`)

	grid, labels, err := ParseDayGrid([]byte(dayPage(rows)), "20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(labels) != 2 || labels[0] != "vormittags" || labels[1] != "nachmittags" {
		t.Fatalf("row labels = %v", labels)
	}
	if len(grid.Slots) != 2 {
		t.Fatalf("slots = %d, want 2", len(grid.Slots))
	}

	first := grid.Slots[0]
	if len(first) != 3 {
		t.Fatalf("row 0 seats = %d, want 3", len(first))
	}
	if first[0].State != models.StateFree || first[0].Occupier != "" {
		t.Fatalf("seat A1 = %+v, want free without occupier", first[0])
	}
	if first[1].State != models.StateOccupied || first[1].Occupier != "KIT Studenten" {
		t.Fatalf("seat A2 = %+v, want occupied by KIT Studenten", first[1])
	}
	if first[2].State != models.StateMine || first[2].Occupier != "" {
		t.Fatalf("seat A3 = %+v, want mine without occupier", first[2])
	}
	if first[2].EntryID != "4711" {
		t.Fatalf("seat A3 entry id = %q, want 4711", first[2].EntryID)
	}
	if first[0].Seat != "Platz A1" || first[0].RoomID != "R1" || first[0].Area != "20" {
		t.Fatalf("seat A1 labels = %+v", first[0])
	}

	second := grid.Slots[1]
	if second[1].State != models.StateUnknown {
		t.Fatalf("unmarked cell state = %v, want unknown", second[1].State)
	}
	if second[1].Occupier != OccupierSpecial {
		t.Fatalf("unmarked cell occupier = %q, want %q", second[1].Occupier, OccupierSpecial)
	}
}

func TestParseDayGridStructuralFailures(t *testing.T) {
	goodRow := dayRow("even", "vormittags", `<td class="new"><div></div></td>`)

	tests := []struct {
		name     string
		body     string
		landmark string
	}{
		{
			name:     "missing table",
			body:     `<html><body><p>Wartung</p></body></html>`,
			landmark: "day_main table",
		},
		{
			name: "missing header",
			body: `<table id="day_main"><thead><tr><th>x</th></tr></thead><tbody>` +
				goodRow + `</tbody></table>`,
			landmark: "header row",
		},
		{
			name:     "missing rows",
			body:     dayPage(`<tr class="other"><td>x</td></tr>`),
			landmark: "data rows",
		},
		{
			name:     "missing row label",
			body:     dayPage(`<tr class="even_row"><td class="new"><div></div></td></tr>`),
			landmark: "row label",
		},
		{
			name: "more cells than header columns",
			body: dayPage(dayRow("even", "vormittags",
				strings.Repeat(`<td class="new"><div></div></td>`, 4))),
			landmark: "header column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseDayGrid([]byte(tt.body), "20")
			var structural StructureError
			if !errors.As(err, &structural) {
				t.Fatalf("err = %v, want StructureError", err)
			}
			if !strings.Contains(structural.Landmark, tt.landmark) {
				t.Fatalf("landmark = %q, want %q", structural.Landmark, tt.landmark)
			}
		})
	}
}
