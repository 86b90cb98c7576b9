package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/parser"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/store"
)

// Login returns an authenticated cookie jar for the user. Without validate
// a stored jar is trusted and returned with no network traffic; with
// validate the jar is probed against the site first. When the session is
// gone but credentials are known, Login reports ErrChallengeRequired
// because the site guards every fresh login with an image challenge.
func (b *Backend) Login(ctx context.Context, userID int64, user, password string, validate bool) (models.CookieJar, error) {
	jar, err := b.loadCookies(ctx, userID)
	if err != nil || len(jar) == 0 {
		jar = nil
	}
	if jar != nil && !validate {
		return jar, nil
	}

	if jar != nil {
		probe, err := b.get(ctx, "admin.php", jar, true)
		if err != nil {
			return nil, err
		}
		if account, ok := parser.LoggedInAccount(probe.body); ok {
			slog.Debug("session still valid",
				slog.Int64("user_id", userID),
				slog.String("account", account),
			)
			if err := b.saveCookies(ctx, userID, probe.cookies); err != nil {
				slog.Error("save session cookies", slog.Any("error", err))
			}
			return probe.cookies, nil
		}
	}

	if user == "" || password == "" {
		creds, err := b.Credentials(ctx, userID)
		if err != nil {
			return nil, ErrNoCredentials
		}
		user, password = creds.User, creds.Password
	}
	if user == "" || password == "" {
		return nil, ErrNoCredentials
	}
	return nil, ErrChallengeRequired
}

// CompleteLogin performs the actual login with a solved challenge answer.
// preJar must be the jar returned by FetchCaptcha so that the answer is
// checked against the right challenge session. On success the canonical
// account name reported by the site is persisted together with the
// password, and the fresh session jar is stored and returned.
func (b *Backend) CompleteLogin(ctx context.Context, userID int64, user, password, answer string, preJar models.CookieJar) (models.CookieJar, error) {
	form := url.Values{
		"NewUserName":     {user},
		"NewUserPassword": {password},
		"captcha_code":    {answer},
		"eula_agreed":     {"1"},
		"returl":          {b.base.String()},
		"TargetURL":       {b.base.String()},
		"Action":          {"SetName"},
	}
	res, err := b.post(ctx, "admin.php", form, preJar, false)
	if err != nil {
		return nil, err
	}
	if res.status < 300 || res.status >= 400 {
		return nil, ErrAuthFailed
	}

	probe, err := b.get(ctx, "admin.php", res.cookies, true)
	if err != nil {
		return nil, err
	}
	account, ok := parser.LoggedInAccount(probe.body)
	if !ok {
		return nil, ErrAuthFailed
	}

	// The site normalizes the login name; keep its spelling so later form
	// submissions match the account exactly.
	if err := b.saveCredentials(ctx, userID, models.Credentials{User: account, Password: password}); err != nil {
		slog.Error("save credentials", slog.Any("error", err))
	}
	if err := b.saveCookies(ctx, userID, probe.cookies); err != nil {
		slog.Error("save session cookies", slog.Any("error", err))
	}
	slog.Info("login completed",
		slog.Int64("user_id", userID),
		slog.String("account", account),
	)
	return probe.cookies, nil
}

// FetchCaptcha starts a fresh login flow and fetches the challenge image.
// The returned jar belongs to the challenge and must be passed on to
// CompleteLogin. A (nil, nil, nil) result means the site is currently not
// presenting a challenge.
func (b *Backend) FetchCaptcha(ctx context.Context) ([]byte, models.CookieJar, error) {
	page, err := b.get(ctx, "admin.php", nil, true)
	if err != nil {
		return nil, nil, err
	}
	src, ok := parser.CaptchaImageURL(page.body)
	if !ok {
		return nil, nil, nil
	}

	img, err := b.get(ctx, src, page.cookies, true)
	if err != nil {
		return nil, nil, err
	}
	if img.status != http.StatusOK {
		return nil, nil, TransportError{Err: fmt.Errorf("challenge image status %d", img.status)}
	}
	return img.body, img.cookies, nil
}

// Credentials returns the stored credentials for the user.
func (b *Backend) Credentials(ctx context.Context, userID int64) (models.Credentials, error) {
	raw, err := b.store.Get(ctx, store.CredentialsKey(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Credentials{}, ErrNoCredentials
		}
		return models.Credentials{}, err
	}
	var creds models.Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return models.Credentials{}, fmt.Errorf("decode stored credentials: %w", err)
	}
	return creds, nil
}

// RemoveCredentials forgets the user's credentials and session.
func (b *Backend) RemoveCredentials(ctx context.Context, userID int64) error {
	if err := b.store.Delete(ctx, store.CredentialsKey(userID)); err != nil {
		return err
	}
	return b.store.Delete(ctx, store.CookiesKey(userID))
}

func (b *Backend) saveCredentials(ctx context.Context, userID int64, creds models.Credentials) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return b.store.Set(ctx, store.CredentialsKey(userID), raw, 0)
}

func (b *Backend) loadCookies(ctx context.Context, userID int64) (models.CookieJar, error) {
	raw, err := b.store.Get(ctx, store.CookiesKey(userID))
	if err != nil {
		return nil, err
	}
	var jar models.CookieJar
	if err := json.Unmarshal(raw, &jar); err != nil {
		return nil, fmt.Errorf("decode stored cookies: %w", err)
	}
	return jar, nil
}

func (b *Backend) saveCookies(ctx context.Context, userID int64, jar models.CookieJar) error {
	raw, err := json.Marshal(jar)
	if err != nil {
		return err
	}
	return b.store.Set(ctx, store.CookiesKey(userID), raw, 0)
}
