// Package tokencache caches OAuth client-credentials tokens per carrier in
// a persistent key-value store, refreshing them shortly before expiry so
// repeated refresh passes avoid needless logins.
package tokencache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ExpiryMargin is how close to expiry a cached token may be before a fresh
// login is performed.
const ExpiryMargin = 30 * time.Second

// Store is the persistence the cache writes through to. It outlives a
// single process run; entries are stored as JSON under the cache key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Credential is a freshly obtained token in the shape carriers return it.
// With IssuedAt zero, ExpiresIn counts from the moment of login; otherwise
// the token expires at IssuedAt + ExpiresIn.
type Credential struct {
	AccessToken string
	ExpiresIn   time.Duration
	IssuedAt    time.Time
}

// LoginFunc performs a carrier login and returns a fresh credential.
type LoginFunc func(ctx context.Context) (Credential, error)

// Counter counts successful logins. Prometheus counters satisfy it.
type Counter interface {
	Inc()
}

// Entry is the cached, normalized token. ExpiresAt is always an absolute
// timestamp, computed once at login time and never re-derived on read.
type Entry struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Cache caches one carrier's access token under a carrier-specific key.
//
// The check-then-act sequence here is not atomic across concurrent callers:
// two overlapping refreshes may both log in. That is idempotent and safe;
// the refresh scheduler serializes passes, so in practice it does not occur.
type Cache struct {
	store  Store
	key    string
	login  LoginFunc
	now    func() time.Time
	logins Counter
}

// New creates a token cache for one carrier. The key must be unique per
// carrier, e.g. "token:fedex".
func New(store Store, key string, login LoginFunc) *Cache {
	return NewWithClock(store, key, login, time.Now)
}

// NewWithClock creates a token cache with an injectable clock. Useful for
// exercising expiry behavior in tests.
func NewWithClock(store Store, key string, login LoginFunc, now func() time.Time) *Cache {
	return &Cache{store: store, key: key, login: login, now: now}
}

// WithLoginCounter sets a counter incremented on every successful login,
// never on a cache hit. A nil counter disables counting.
func (c *Cache) WithLoginCounter(counter Counter) *Cache {
	c.logins = counter
	return c
}

// Token returns a valid access token, logging in when the cache is empty or
// the cached token expires within ExpiryMargin. A failed login leaves the
// cached entry untouched.
func (c *Cache) Token(ctx context.Context) (string, error) {
	now := c.now()
	if raw, err := c.store.Get(ctx, c.key); err == nil && raw != nil {
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err == nil && entry.ExpiresAt.After(now.Add(ExpiryMargin)) {
			return entry.AccessToken, nil
		}
	}

	cred, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	if c.logins != nil {
		c.logins.Inc()
	}

	entry := Entry{
		AccessToken: cred.AccessToken,
		ExpiresAt:   normalize(cred, now),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encoding token entry: %w", err)
	}

	ttl := entry.ExpiresAt.Sub(now)
	if ttl < 0 {
		ttl = 0
	}
	if err := c.store.Set(ctx, c.key, raw, ttl); err != nil {
		return "", fmt.Errorf("storing token entry: %w", err)
	}
	return entry.AccessToken, nil
}

// normalize converts a carrier-shaped expiry into an absolute timestamp.
// Both upstream encodings land here: seconds remaining at response time,
// and issued_at plus expires_in as separate fields.
func normalize(cred Credential, now time.Time) time.Time {
	if !cred.IssuedAt.IsZero() {
		return cred.IssuedAt.Add(cred.ExpiresIn)
	}
	return now.Add(cred.ExpiresIn)
}
