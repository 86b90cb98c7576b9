package parser

import (
	"bytes"
	"strings"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

type columnLabel struct {
	seat   string
	roomID string
}

// ParseDayGrid extracts the availability grid of one (date, area) day view.
// It returns the grid keyed by row position and the ordered row labels (the
// daytime slot names as the site prints them).
func ParseDayGrid(body []byte, area string) (models.DayGrid, []string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.DayGrid{}, nil, StructureError{Landmark: "parseable html"}
	}

	table := doc.Find("#day_main")
	if table.Length() == 0 {
		return models.DayGrid{}, nil, StructureError{Landmark: "day_main table"}
	}

	labels, err := headerLabels(table)
	if err != nil {
		return models.DayGrid{}, nil, err
	}

	rows := table.Find("tbody tr.even_row, tbody tr.odd_row")
	if rows.Length() == 0 {
		return models.DayGrid{}, nil, StructureError{Landmark: "data rows"}
	}

	grid := models.DayGrid{Slots: make(map[int][]models.SeatEntry, rows.Length())}
	rowLabels := make([]string, 0, rows.Length())

	var parseErr error
	rows.EachWithBreak(func(rowIndex int, row *goquery.Selection) bool {
		rowLabel := ""
		entries := make([]models.SeatEntry, 0, len(labels))
		column := 0

		row.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			classes := strings.Fields(cell.AttrOr("class", ""))
			if containsClass(classes, "row_labels") {
				rowLabel = strings.TrimSpace(cell.Find(".celldiv").First().Text())
				return true
			}
			if column >= len(labels) {
				parseErr = StructureError{Landmark: "header column for data cell"}
				return false
			}

			state := StateFromClasses(classes)
			entry := models.SeatEntry{
				Area:     area,
				Seat:     labels[column].seat,
				RoomID:   labels[column].roomID,
				State:    state,
				Occupier: OccupierFromClasses(state, classes),
			}
			if id, ok := cell.Find("div").First().Attr("data-id"); ok {
				entry.EntryID = id
			}
			entries = append(entries, entry)
			column++
			return true
		})
		if parseErr != nil {
			return false
		}
		if rowLabel == "" {
			parseErr = StructureError{Landmark: "row label"}
			return false
		}

		grid.Slots[rowIndex] = entries
		rowLabels = append(rowLabels, rowLabel)
		return true
	})
	if parseErr != nil {
		return models.DayGrid{}, nil, parseErr
	}

	return grid, rowLabels, nil
}

func headerLabels(table *goquery.Selection) ([]columnLabel, error) {
	header := table.Find("thead [data-room]")
	if header.Length() == 0 {
		return nil, StructureError{Landmark: "header row"}
	}

	labels := make([]columnLabel, 0, header.Length())
	header.Each(func(_ int, cell *goquery.Selection) {
		roomID := cell.AttrOr("data-room", "")
		// The seat label is the cell's second text node; the first one
		// belongs to the room link.
		texts := textNodes(cell)
		seat := ""
		if len(texts) > 1 {
			seat = texts[1]
		} else if len(texts) == 1 {
			seat = texts[0]
		}
		labels = append(labels, columnLabel{seat: seat, roomID: roomID})
	})
	return labels, nil
}

// textNodes returns the trimmed non-empty text nodes of a selection in
// document order.
func textNodes(sel *goquery.Selection) []string {
	var texts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				texts = append(texts, text)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return texts
}

func containsClass(classes []string, marker string) bool {
	for _, class := range classes {
		if class == marker {
			return true
		}
	}
	return false
}
