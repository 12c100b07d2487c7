package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return Token{}, f.err
	}
	return Token{AccessToken: fmt.Sprintf("token-%d", f.calls)}, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestCache(f Fetcher) (*TokenCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewTokenCache(f, zap.NewNop()).WithClock(clock.now), clock
}

func TestTokenCache_ReusedUntil55Minutes(t *testing.T) {
	f := &fakeFetcher{}
	c, clock := newTestCache(f)
	ctx := context.Background()
	start := clock.t

	first, err := c.Token(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, offset := range []time.Duration{time.Minute, 30 * time.Minute, 55*time.Minute - time.Second} {
		clock.t = start.Add(offset)
		got, err := c.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != first {
			t.Errorf("at +%v expected cached %q, got %q", offset, first, got)
		}
	}
	if f.count() != 1 {
		t.Fatalf("expected 1 fetch, got %d", f.count())
	}

	clock.t = start.Add(56 * time.Minute)
	refreshed, err := c.Token(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refreshed == first {
		t.Error("expected a new token after 56 minutes")
	}
	if f.count() != 2 {
		t.Errorf("expected exactly one refresh, got %d fetches", f.count())
	}

	if _, err := c.Token(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.count() != 2 {
		t.Errorf("refreshed token should be reused, got %d fetches", f.count())
	}
}

func TestTokenCache_InvalidateForcesRefresh(t *testing.T) {
	f := &fakeFetcher{}
	c, _ := newTestCache(f)
	ctx := context.Background()

	if _, err := c.Token(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Invalidate()
	got, err := c.Token(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "token-2" {
		t.Errorf("expected token-2 after invalidation, got %q", got)
	}
}

func TestTokenCache_UsesFetcherExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	f := fetcherFunc(func(context.Context) (Token, error) {
		return Token{AccessToken: "short", Expiry: clock.t.Add(10 * time.Minute)}, nil
	})
	calls := 0
	counting := fetcherFunc(func(ctx context.Context) (Token, error) {
		calls++
		return f(ctx)
	})
	c := NewTokenCache(counting, nil).WithClock(clock.now)

	_, _ = c.Token(context.Background())
	clock.t = clock.t.Add(6 * time.Minute)
	_, _ = c.Token(context.Background())
	if calls != 2 {
		t.Errorf("expected refresh inside the 5 minute margin, got %d fetches", calls)
	}
}

func TestTokenCache_FetchError(t *testing.T) {
	boom := errors.New("boom")
	c, _ := newTestCache(&fakeFetcher{err: boom})

	_, err := c.Token(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func TestTokenCache_ConcurrentReaders(t *testing.T) {
	f := &fakeFetcher{}
	c, _ := newTestCache(f)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.Token(context.Background())
			if err != nil || tok == "" {
				t.Errorf("unexpected result %q, %v", tok, err)
			}
		}()
	}
	wg.Wait()

	if f.count() < 1 {
		t.Error("expected at least one fetch")
	}
}

type fetcherFunc func(ctx context.Context) (Token, error)

func (f fetcherFunc) Fetch(ctx context.Context) (Token, error) { return f(ctx) }
