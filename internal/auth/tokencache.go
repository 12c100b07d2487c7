// Package auth manages the short-lived cloud-platform bearer token shared by all outbound calls.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skinlab/internal/metrics"
)

const (
	// TokenLifetime is the server-side lifetime of an issued access token.
	TokenLifetime = time.Hour
	// RefreshMargin is subtracted from the expiry when deciding whether to reuse a token.
	RefreshMargin = 5 * time.Minute
)

// Token is an access token as returned by a Fetcher.
type Token struct {
	AccessToken string
	// Expiry is optional; when zero the cache assumes TokenLifetime from issuance.
	Expiry time.Time
}

// Fetcher obtains a fresh access token.
type Fetcher interface {
	Fetch(ctx context.Context) (Token, error)
}

// TokenCache is a single-slot token cache. Concurrent refreshes may race; the last
// writer wins and every reader observes either the old or the new complete value.
type TokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	fetcher Fetcher
	now     func() time.Time
	logger  *zap.Logger
}

// NewTokenCache creates an empty cache backed by fetcher.
func NewTokenCache(fetcher Fetcher, logger *zap.Logger) *TokenCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCache{fetcher: fetcher, now: time.Now, logger: logger}
}

// WithClock overrides the time source.
func (c *TokenCache) WithClock(now func() time.Time) *TokenCache {
	c.now = now
	return c
}

// Token returns the cached token while now < expiresAt - RefreshMargin, otherwise
// fetches, caches and returns a new one.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	now := c.now()

	c.mu.RLock()
	token, expiresAt := c.token, c.expiresAt
	c.mu.RUnlock()

	if token != "" && now.Before(expiresAt.Add(-RefreshMargin)) {
		return token, nil
	}

	fresh, err := c.fetcher.Fetch(ctx)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	if fresh.AccessToken == "" {
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("refresh access token: empty token")
	}

	expiry := fresh.Expiry
	if expiry.IsZero() {
		expiry = now.Add(TokenLifetime)
	}

	c.mu.Lock()
	c.token = fresh.AccessToken
	c.expiresAt = expiry
	c.mu.Unlock()

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	c.logger.Debug("Access token refreshed", zap.Time("expires_at", expiry))
	return fresh.AccessToken, nil
}

// Invalidate empties the slot so the next Token call refreshes synchronously.
// Callers invoke it after a 401/403 from a dependent endpoint.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
	c.logger.Debug("Access token invalidated")
}
