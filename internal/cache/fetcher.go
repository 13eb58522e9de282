package cache

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// FetchTimeout bounds a single upstream request attempt (spec.md §4.B/§5).
const FetchTimeout = 30 * time.Second

// Fetcher composes a Store with domain validation and user-agent rotation
// to implement get_or_fetch_with (spec.md §4.B).
type Fetcher struct {
	store        *Store
	security     *Security
	client       *http.Client
	cacheEnabled bool
}

// NewFetcher builds a Fetcher. cacheEnabled mirrors [network].enable; when
// false, reads and writes are both skipped and every call goes to the
// network.
func NewFetcher(store *Store, security *Security, cacheEnabled bool) *Fetcher {
	return &Fetcher{
		store:        store,
		security:     security,
		cacheEnabled: cacheEnabled,
		client:       &http.Client{Timeout: FetchTimeout},
	}
}

// GetOrFetchWith implements spec.md §4.B's higher-level fetcher:
//  1. validate domain
//  2. on a cache hit (if enabled and not noCache), parse and return
//  3. otherwise try each user agent in order, parsing the first 2xx body
//     that parses successfully, storing it on success
//  4. if every user agent's body failed to parse, return a FetchFailed
//     error carrying the last diagnostic
func GetOrFetchWith[T any](ctx context.Context, f *Fetcher, rawURL string, userAgents []string, noCache bool, parse func(string) (T, error)) (T, error) {
	var zero T

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return zero, newError(KindInvalidURL, "invalid url %q", rawURL)
	}
	if err := f.security.ValidateURL(u); err != nil {
		return zero, err
	}

	if f.cacheEnabled && !noCache {
		if text, ok := f.store.Read(rawURL); ok {
			return parse(text)
		}
	}

	if len(userAgents) == 0 {
		return zero, newError(KindFetchFailed, "no user agents configured for fetch of %s", rawURL)
	}

	var lastErr error
	for _, ua := range userAgents {
		text, err := f.attempt(ctx, rawURL, ua)
		if err != nil {
			lastErr = err
			continue
		}

		value, err := parse(text)
		if err != nil {
			lastErr = err
			log.Warn().Str("url", rawURL).Str("user_agent", ua).Err(err).Msg("fetch parsed body failed, trying next user agent")
			continue
		}

		if f.cacheEnabled {
			if err := f.store.Store(rawURL, text); err != nil {
				log.Warn().Str("url", rawURL).Err(err).Msg("failed to cache fetched content")
			}
		}
		return value, nil
	}

	return zero, newError(KindFetchFailed, "all user agents failed for %s: %v", rawURL, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, rawURL, userAgent string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newError(KindFetchFailed, "unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
