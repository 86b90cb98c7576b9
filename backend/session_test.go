package backend

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
)

const loggedInPage = `<html><body>
<div id="contents">Buchungsübersicht von  uxyz1234
<table></table></div>
</body></html>`

const loggedOutPage = `<html><body><div id="contents">
<form action="admin.php"><input name="NewUserName"></form>
<img src="lib/captcha/image.php?session=99" alt="challenge">
</div></body></html>`

func TestLoginWithoutCredentials(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.Login(context.Background(), 42, "", "", false)
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("Login() error = %v, want ErrNoCredentials", err)
	}
	if calls := httpmock.GetTotalCallCount(); calls != 0 {
		t.Errorf("Login() issued %d requests, want 0", calls)
	}
}

func TestLoginTrustsStoredSession(t *testing.T) {
	b := newTestBackend(t)
	seedCookies(t, b, 42, models.CookieJar{{Name: "PHPSESSID", Value: "stored"}})

	jar, err := b.Login(context.Background(), 42, "", "", false)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if len(jar) == 0 || jar[0].Value != "stored" {
		t.Errorf("Login() jar = %v, want stored session cookie", jar)
	}
	if calls := httpmock.GetTotalCallCount(); calls != 0 {
		t.Errorf("unvalidated Login() issued %d requests, want 0", calls)
	}
}

func TestLoginValidatesStoredSession(t *testing.T) {
	b := newTestBackend(t)
	seedCookies(t, b, 42, models.CookieJar{{Name: "PHPSESSID", Value: "stored"}})
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"admin.php",
		httpmock.NewStringResponder(http.StatusOK, loggedInPage))

	jar, err := b.Login(context.Background(), 42, "", "", true)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if len(jar) == 0 || jar[0].Value != "stored" {
		t.Errorf("Login() jar = %v, want stored session cookie", jar)
	}
	if calls := httpmock.GetTotalCallCount(); calls != 1 {
		t.Errorf("validated Login() issued %d requests, want 1", calls)
	}
}

func TestLoginDemandsChallenge(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, b *Backend)
	}{
		{
			name:  "no stored session",
			setup: func(t *testing.T, b *Backend) {},
		},
		{
			name: "stored session expired on the site",
			setup: func(t *testing.T, b *Backend) {
				seedCookies(t, b, 42, models.CookieJar{{Name: "PHPSESSID", Value: "stale"}})
				httpmock.RegisterResponder(http.MethodGet, testBaseURL+"admin.php",
					httpmock.NewStringResponder(http.StatusOK, loggedOutPage))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBackend(t)
			tt.setup(t, b)

			_, err := b.Login(context.Background(), 42, "uxyz1234", "secret", true)
			if !errors.Is(err, ErrChallengeRequired) {
				t.Fatalf("Login() error = %v, want ErrChallengeRequired", err)
			}
		})
	}
}

func TestCompleteLoginPersistsCanonicalAccount(t *testing.T) {
	b := newTestBackend(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"admin.php",
		redirectResponder(testBaseURL))
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"admin.php",
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusOK, loggedInPage)
			resp.Header.Set("Set-Cookie", "PHPSESSID=fresh; path=/")
			resp.Request = req
			return resp, nil
		})

	jar, err := b.CompleteLogin(context.Background(), 42, "UXYZ1234", "secret", "k3h7f", nil)
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	if len(jar) == 0 || jar[len(jar)-1].Value != "fresh" {
		t.Errorf("CompleteLogin() jar = %v, want fresh session cookie", jar)
	}

	creds, err := b.Credentials(context.Background(), 42)
	if err != nil {
		t.Fatalf("Credentials() error = %v", err)
	}
	if creds.User != "uxyz1234" {
		t.Errorf("stored account = %q, want site spelling %q", creds.User, "uxyz1234")
	}
	if creds.Password != "secret" {
		t.Errorf("stored password = %q, want %q", creds.Password, "secret")
	}
}

func TestCompleteLoginRejected(t *testing.T) {
	b := newTestBackend(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"admin.php",
		httpmock.NewStringResponder(http.StatusOK, loggedOutPage))

	_, err := b.CompleteLogin(context.Background(), 42, "uxyz1234", "wrong", "k3h7f", nil)
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("CompleteLogin() error = %v, want ErrAuthFailed", err)
	}
	if _, err := b.Credentials(context.Background(), 42); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Credentials() after rejected login = %v, want ErrNoCredentials", err)
	}
}

func TestFetchCaptcha(t *testing.T) {
	b := newTestBackend(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"admin.php",
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusOK, loggedOutPage)
			resp.Header.Set("Set-Cookie", "PHPSESSID=challenge; path=/")
			resp.Request = req
			return resp, nil
		})
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"lib/captcha/image.php?session=99",
		httpmock.NewBytesResponder(http.StatusOK, []byte{0x89, 'P', 'N', 'G'}))

	img, jar, err := b.FetchCaptcha(context.Background())
	if err != nil {
		t.Fatalf("FetchCaptcha() error = %v", err)
	}
	if len(img) == 0 {
		t.Error("FetchCaptcha() returned empty image")
	}
	if len(jar) == 0 || jar[0].Value != "challenge" {
		t.Errorf("FetchCaptcha() jar = %v, want challenge session cookie", jar)
	}
}

func TestFetchCaptchaAbsent(t *testing.T) {
	b := newTestBackend(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"admin.php",
		httpmock.NewStringResponder(http.StatusOK, loggedInPage))

	img, jar, err := b.FetchCaptcha(context.Background())
	if err != nil {
		t.Fatalf("FetchCaptcha() error = %v", err)
	}
	if img != nil || jar != nil {
		t.Errorf("FetchCaptcha() = (%v, %v), want (nil, nil) when no challenge is shown", img, jar)
	}
}

func TestRemoveCredentials(t *testing.T) {
	b := newTestBackend(t)
	seedCredentials(t, b, 42, "uxyz1234", "secret")
	seedCookies(t, b, 42, models.CookieJar{{Name: "PHPSESSID", Value: "stored"}})

	if err := b.RemoveCredentials(context.Background(), 42); err != nil {
		t.Fatalf("RemoveCredentials() error = %v", err)
	}
	if _, err := b.Credentials(context.Background(), 42); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Credentials() after removal = %v, want ErrNoCredentials", err)
	}
	if _, err := b.loadCookies(context.Background(), 42); err == nil {
		t.Error("loadCookies() after removal succeeded, want error")
	}
}
