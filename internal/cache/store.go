// Package cache implements the content-addressed, TTL-bounded HTTP fetch
// cache (spec.md §4.B): one file per URL at <dir>/<sha256(url)>.cache,
// written atomically via a .tmp-then-rename, with a SHA-256 integrity check
// on read and a domain allowlist gate on every read/fetch.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// entry mirrors the spec's CacheEntry: expiry, content hash, and path. The
// URL is the key the entry is stored under in Store.entries.
type entry struct {
	expiresAt time.Time
	sha256    string
	path      string
}

// Store is the disk-backed cache index.
type Store struct {
	dir string
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry
}

// ListEntry is a diagnostic snapshot row returned by List.
type ListEntry struct {
	URL          string
	RemainingTTL time.Duration
}

// New creates dir as a fresh, empty cache directory (removing it and its
// contents first if it already exists), per spec.md §4.B and §6
// ("Directory is re-created empty at startup").
func New(dir string, ttl time.Duration) (*Store, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		dir:     dir,
		ttl:     ttl,
		entries: make(map[string]entry),
	}, nil
}

// Read returns the cached text for url if present, unexpired, and intact.
// Any failure mode (absent, expired, missing file, hash mismatch, non-UTF-8)
// evicts the entry and reports a miss rather than an error.
func (s *Store) Read(url string) (string, bool) {
	e, expired, ok := s.lookup(url)
	if expired {
		s.evict(url, e)
		return "", false
	}
	if !ok {
		return "", false
	}

	data, err := os.ReadFile(e.path)
	if err != nil {
		s.evict(url, e)
		return "", false
	}

	if sha256Hex(data) != e.sha256 {
		log.Warn().Str("url", url).Msg("cache integrity mismatch, evicting")
		s.evict(url, e)
		return "", false
	}

	if !utf8.Valid(data) {
		s.evict(url, e)
		return "", false
	}

	log.Info().Str("url", url).Dur("ttl_remaining", time.Until(e.expiresAt)).Msg("cache hit")
	return string(data), true
}

// Store writes text for url atomically (temp file + rename) and records the
// index entry, replacing any prior entry for the same URL.
func (s *Store) Store(url, text string) error {
	data := []byte(text)
	key := sha256Hex([]byte(url))
	path := filepath.Join(s.dir, key+".cache")
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	e := entry{
		expiresAt: time.Now().Add(s.ttl),
		sha256:    sha256Hex(data),
		path:      path,
	}

	s.mu.Lock()
	s.entries[url] = e
	s.mu.Unlock()

	return nil
}

// List snapshots (url, remaining TTL) for every live entry, for diagnostics.
func (s *Store) List() []ListEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := make([]ListEntry, 0, len(s.entries))
	for url, e := range s.entries {
		if e.expiresAt.Before(now) {
			continue
		}
		out = append(out, ListEntry{URL: url, RemainingTTL: e.expiresAt.Sub(now)})
	}
	return out
}

func (s *Store) lookup(url string) (e entry, expired bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, present := s.entries[url]
	if !present {
		return entry{}, false, false
	}
	if !e.expiresAt.After(time.Now()) {
		delete(s.entries, url)
		return e, true, false
	}
	return e, false, true
}

func (s *Store) evict(url string, e entry) {
	s.mu.Lock()
	delete(s.entries, url)
	s.mu.Unlock()

	if e.path != "" {
		_ = os.Remove(e.path)
	}
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
