package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s, err := New(dir, time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.Store("https://ok.example/x", "hello"))
	text, ok := s.Read("https://ok.example/x")
	require.True(t, ok)
	require.Equal(t, "hello", text)
}

func TestStoreExpiry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s, err := New(dir, -time.Second)
	require.NoError(t, err)

	require.NoError(t, s.Store("https://ok.example/x", "hello"))
	_, ok := s.Read("https://ok.example/x")
	require.False(t, ok)
}

func TestReadEvictsOnIntegrityMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s, err := New(dir, time.Hour)
	require.NoError(t, err)

	url := "https://ok.example/x"
	require.NoError(t, s.Store(url, "hello"))

	key := sha256Hex([]byte(url))
	path := filepath.Join(dir, key+".cache")
	require.NoError(t, os.WriteFile(path, []byte("hello!"), 0o644))

	_, ok := s.Read(url)
	require.False(t, ok)

	// A subsequent store succeeds cleanly with no leftover .tmp file.
	require.NoError(t, s.Store(url, "new content"))
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))

	text, ok := s.Read(url)
	require.True(t, ok)
	require.Equal(t, "new content", text)
}

func TestNewWipesExistingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.cache"), []byte("x"), 0o644))

	_, err := New(dir, time.Hour)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestList(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s, err := New(dir, time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.Store("https://ok.example/a", "a"))

	entries := s.List()
	require.Len(t, entries, 1)
	require.Equal(t, "https://ok.example/a", entries[0].URL)
	require.Greater(t, entries[0].RemainingTTL, time.Duration(0))
}
