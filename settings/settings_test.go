package settings

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	store := NewJSONSettingsStore(filepath.Join(t.TempDir(), "settings.json"))
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if got != want {
		t.Fatalf("expected Default() for a missing file, got %+v", got)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	store := NewJSONSettingsStore(filepath.Join(t.TempDir(), "settings.json"))
	s := Default()
	s.NDKPath = "/opt/ndk"
	s.UseSymlink = false

	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != s {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, s)
	}
}
