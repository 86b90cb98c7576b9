package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/config"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/store"
)

const testBaseURL = "https://reservation.test/sitz/"

var testAreas = []models.Area{
	{ID: "20", Name: "Lernplätze Lesesaal"},
	{ID: "32", Name: "DHBW Bibliothek"},
}

var testDaytimes = []models.Daytime{
	{Index: 0, Name: "vormittags", Seconds: 43200},
	{Index: 1, Name: "nachmittags", Seconds: 43260},
	{Index: 2, Name: "abends", Seconds: 43320},
}

var testNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.Local)

// newTestBackend builds a Backend against a mocked transport with fixed
// metadata and a fixed clock.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.BaseURL = testBaseURL
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}

	b := &Backend{
		cfg:   cfg,
		store: store.NewMemory(),
		base:  base,
		now:   func() time.Time { return testNow },
	}
	b.follow, b.noFollow = newClients(http.ProxyFromEnvironment, cfg.Timeout)
	b.setMetadata(testAreas, testDaytimes)

	httpmock.ActivateNonDefault(b.follow)
	httpmock.ActivateNonDefault(b.noFollow)
	t.Cleanup(httpmock.DeactivateAndReset)

	return b
}

func seedCredentials(t *testing.T, b *Backend, userID int64, user, password string) {
	t.Helper()
	raw, err := json.Marshal(models.Credentials{User: user, Password: password})
	if err != nil {
		t.Fatalf("marshal credentials: %v", err)
	}
	if err := b.store.Set(context.Background(), store.CredentialsKey(userID), raw, 0); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}
}

func seedCookies(t *testing.T, b *Backend, userID int64, jar models.CookieJar) {
	t.Helper()
	raw, err := json.Marshal(jar)
	if err != nil {
		t.Fatalf("marshal cookies: %v", err)
	}
	if err := b.store.Set(context.Background(), store.CookiesKey(userID), raw, 0); err != nil {
		t.Fatalf("seed cookies: %v", err)
	}
}

func redirectResponder(location string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(http.StatusFound, "")
		resp.Header.Set("Location", location)
		resp.Request = req
		return resp, nil
	}
}
