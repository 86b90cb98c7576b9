// Package store provides the key-value store used for session cookies,
// credentials, cached availability grids, and site metadata. Values are
// opaque serialized blobs; every key carries its own expiry.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or expired.
var ErrNotFound = errors.New("store: key not found")

// Store is a key-value store with per-key expiry. A ttl of zero means the
// key does not expire. Writes replace values wholesale; no read-modify-write
// is ever performed through this interface.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CookiesKey names the cookie-jar blob for one bot user.
func CookiesKey(userID int64) string {
	return fmt.Sprintf("login-cookies:%d", userID)
}

// CredentialsKey names the credential record for one bot user.
func CredentialsKey(userID int64) string {
	return fmt.Sprintf("login-creds:%d", userID)
}

// RoomEntriesKey names a cached availability grid for one (date, area) pair.
func RoomEntriesKey(date time.Time, area string) string {
	return fmt.Sprintf("room_entries:%s:%s", date.Format("2006-01-02"), area)
}

// MetaKey names discovered site metadata such as the area list.
func MetaKey(name string) string {
	return "site-meta:" + name
}

// TempKey names transient per-user conversation state.
func TempKey(description string, userID int64) string {
	return fmt.Sprintf("temp:%s:%d", description, userID)
}
