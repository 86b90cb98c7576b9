package parser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// loggedInMarker is the site's signature of an authenticated session on the
// booking overview page.
const loggedInMarker = "Buchungsübersicht von"

// CaptchaImageURL locates the login page's challenge image. ok is false when
// the page shows no challenge widget (already authenticated, or the layout
// changed); callers fall back to a plain re-login prompt then.
func CaptchaImageURL(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	src, ok := doc.Find("img[src*='captcha']").First().Attr("src")
	if !ok || src == "" {
		return "", false
	}
	return src, true
}

// MainContent returns the trimmed text of a page's main content pane, used
// to surface the site's own wording when a booking is rejected without a
// structured reason.
func MainContent(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("#contents").First().Text())
}

// LoggedInAccount checks a page for the logged-in landmark and returns the
// account name printed next to it.
func LoggedInAccount(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	text := doc.Text()
	index := strings.Index(text, loggedInMarker)
	if index < 0 {
		return "", false
	}
	rest := text[index+len(loggedInMarker):]
	if lineEnd := strings.IndexByte(rest, '\n'); lineEnd >= 0 {
		rest = rest[:lineEnd]
	}
	return strings.TrimSpace(rest), true
}
