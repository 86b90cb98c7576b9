package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/PuerkitoBio/goquery"
)

// reportPayload is the DataTables blob the report endpoint returns.
type reportPayload struct {
	AaData [][]string `json:"aaData"`
}

// ParseReservations extracts the user's reservations from the report
// endpoint's JSON table. daytimeNames are the discovered slot names used to
// recognize a leading daytime label in the date cell.
func ParseReservations(body []byte, daytimeNames []string) ([]models.Reservation, error) {
	var payload reportPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, StructureError{Landmark: "report json"}
	}

	reservations := make([]models.Reservation, 0, len(payload.AaData))
	for _, row := range payload.AaData {
		if len(row) < 4 {
			return nil, StructureError{Landmark: "report row cells"}
		}

		id, err := reportEntryID(row[0])
		if err != nil {
			return nil, err
		}
		date, daytime := NormalizeReportDate(cellText(row[3]), daytimeNames)

		reservations = append(reservations, models.Reservation{
			ID:      id,
			Room:    strings.TrimSpace(row[1]),
			Seat:    strings.TrimSpace(row[2]),
			Date:    date,
			Daytime: daytime,
		})
	}
	return reservations, nil
}

// reportEntryID digs the reservation id out of the first cell's link markup.
func reportEntryID(cell string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(cell)))
	if err != nil {
		return "", StructureError{Landmark: "report entry cell"}
	}
	id, ok := doc.Find("a[data-id]").First().Attr("data-id")
	if !ok || id == "" {
		return "", StructureError{Landmark: "report entry id"}
	}
	return id, nil
}

func cellText(cell string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(cell)))
	if err != nil {
		return cell
	}
	return doc.Text()
}

var germanMonths = map[string]time.Month{
	"januar": time.January, "februar": time.February, "märz": time.March,
	"april": time.April, "mai": time.May, "juni": time.June,
	"juli": time.July, "august": time.August, "september": time.September,
	"oktober": time.October, "november": time.November, "dezember": time.December,
}

var weekdayAbbrev = [7]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"}

var reportDatePattern = regexp.MustCompile(`(\d{1,2})\.?\s*([\p{L}]+|\d{1,2})\.?\s*(\d{4})`)

// NormalizeReportDate turns the report's free-text date cell into the fixed
// "Wd, dd.mm." display format. A leading daytime label (one of the
// discovered slot names, optionally followed by '+') is split off and
// returned title-cased; when the remaining text matches no known date shape
// it is returned title-cased as-is.
func NormalizeReportDate(raw string, daytimeNames []string) (string, string) {
	text := strings.Join(strings.Fields(raw), " ")

	daytime := ""
	lower := strings.ToLower(text)
	for _, name := range daytimeNames {
		prefix := strings.ToLower(name)
		if strings.HasPrefix(lower, prefix) {
			rest := text[len(prefix):]
			rest = strings.TrimPrefix(rest, "+")
			text = strings.TrimSpace(rest)
			daytime = titleCase(name)
			break
		}
	}

	match := reportDatePattern.FindStringSubmatch(text)
	if match == nil {
		return titleCase(text), daytime
	}

	day := atoiSafe(match[1])
	year := atoiSafe(match[3])
	var month time.Month
	if m, ok := germanMonths[strings.ToLower(match[2])]; ok {
		month = m
	} else if n := atoiSafe(match[2]); n >= 1 && n <= 12 {
		month = time.Month(n)
	} else {
		return titleCase(text), daytime
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || date.Month() != month {
		// Rolled over; the cell did not hold a real date.
		return titleCase(text), daytime
	}
	return fmt.Sprintf("%s, %02d.%02d.", weekdayAbbrev[int(date.Weekday())], day, int(month)), daytime
}

func titleCase(text string) string {
	words := strings.Fields(strings.ToLower(text))
	for i, word := range words {
		runes := []rune(word)
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}
