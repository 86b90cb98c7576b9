package parser

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/PuerkitoBio/goquery"
)

// ParseAreas extracts the area list from the site's front page.
func ParseAreas(body []byte) ([]models.Area, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, StructureError{Landmark: "parseable html"}
	}

	list := doc.Find("#dwm_areas li")
	if list.Length() == 0 {
		return nil, StructureError{Landmark: "area list"}
	}

	areas := make([]models.Area, 0, list.Length())
	list.Each(func(_ int, item *goquery.Selection) {
		name := strings.TrimSpace(item.Text())
		href := item.Find("a").First().AttrOr("href", "")
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		id := parsed.Query().Get("area")
		if id == "" || name == "" {
			return
		}
		areas = append(areas, models.Area{ID: id, Name: name})
	})
	if len(areas) == 0 {
		return nil, StructureError{Landmark: "area links"}
	}
	return areas, nil
}

// ParseOpeningTimes extracts the opening-hours notice from the front page as
// plain text lines.
func ParseOpeningTimes(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", StructureError{Landmark: "parseable html"}
	}

	notice := doc.Find("font[style='color: #000000']").First()
	if notice.Length() == 0 {
		return "", StructureError{Landmark: "opening times notice"}
	}

	var lines []string
	for _, text := range textNodes(notice) {
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n"), nil
}
