package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
)

// siteResponse is one fully-read response from the reservation site.
// cookies is the caller's jar merged with the cookies the site set.
type siteResponse struct {
	status  int
	body    []byte
	cookies models.CookieJar
	header  http.Header
}

func (b *Backend) get(ctx context.Context, suburl string, jar models.CookieJar, follow bool) (*siteResponse, error) {
	return b.request(ctx, http.MethodGet, suburl, nil, jar, follow)
}

func (b *Backend) post(ctx context.Context, suburl string, form url.Values, jar models.CookieJar, follow bool) (*siteResponse, error) {
	return b.request(ctx, http.MethodPost, suburl, form, jar, follow)
}

// request issues one HTTP round trip. The input jar is never mutated; the
// response carries a merged copy for the next call in the flow.
func (b *Backend) request(ctx context.Context, method, suburl string, form url.Values, jar models.CookieJar, follow bool) (*siteResponse, error) {
	ref, err := url.Parse(suburl)
	if err != nil {
		return nil, TransportError{Err: fmt.Errorf("parse url %q: %w", suburl, err)}
	}
	target := b.base.ResolveReference(ref)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, TransportError{Err: err}
	}
	req.Header.Set("User-Agent", b.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", b.cfg.AcceptLanguage)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, cookie := range jar {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	client := b.follow
	if !follow {
		client = b.noFollow
	}

	b.metrics.IncRequest(method)
	start := time.Now()
	res, err := client.Do(req)
	if err != nil {
		classified := classifyTransportError(err)
		b.metrics.IncError(errorTypeLabel(classified))
		return nil, classified
	}
	defer res.Body.Close()
	b.metrics.ObserveDuration(time.Since(start))

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		classified := classifyTransportError(err)
		b.metrics.IncError(errorTypeLabel(classified))
		return nil, classified
	}

	return &siteResponse{
		status:  res.StatusCode,
		body:    payload,
		cookies: jar.Merge(cookiesFromResponse(res)),
		header:  res.Header,
	}, nil
}

func cookiesFromResponse(res *http.Response) models.CookieJar {
	raw := res.Cookies()
	if len(raw) == 0 {
		return nil
	}
	jar := make(models.CookieJar, 0, len(raw))
	for _, cookie := range raw {
		jar = append(jar, models.Cookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Path:   cookie.Path,
			Domain: cookie.Domain,
		})
	}
	return jar
}

func newClients(proxy func(*http.Request) (*url.URL, error), timeout time.Duration) (follow, noFollow *http.Client) {
	transport := &http.Transport{
		Proxy:               proxy,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	follow = &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
	noFollow = &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return follow, noFollow
}
