package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAbsolute(t *testing.T) {
	if got := Resolve("/base", "/abs/path"); got != "/abs/path" {
		t.Fatalf("Resolve() = %q, want /abs/path", got)
	}
}

func TestResolveLocalHit(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pref.toml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := Resolve(dir, "pref.toml")
	want := filepath.Join(dir, "pref.toml")
	if got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveFallsThroughToLocalWhenNothingExists(t *testing.T) {
	dir := t.TempDir()
	got := Resolve(dir, "missing.toml")
	want := filepath.Join(dir, "missing.toml")
	if got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}
