package main

import (
	"testing"

	"github.com/StackDoubleFlow/qpm/settings"
)

func TestGetSettingKnownKeys(t *testing.T) {
	s := settings.Settings{CacheDir: "/tmp/cache", UseSymlink: true, TimeoutMillis: 5000, RegistryURL: "https://registry.example.com"}

	cases := map[string]string{
		"cacheDir":      "/tmp/cache",
		"useSymlink":    "true",
		"timeoutMillis": "5000",
		"registryUrl":   "https://registry.example.com",
	}
	for key, want := range cases {
		got, err := getSetting(s, key)
		if err != nil {
			t.Fatalf("getSetting(%q): %v", key, err)
		}
		if got != want {
			t.Errorf("getSetting(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestGetSettingUnknownKey(t *testing.T) {
	if _, err := getSetting(settings.Settings{}, "bogus"); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestSetSettingUpdatesInPlace(t *testing.T) {
	s := settings.Default()

	if err := setSetting(&s, "useSymlink", "false"); err != nil {
		t.Fatalf("setSetting useSymlink: %v", err)
	}
	if s.UseSymlink {
		t.Error("useSymlink should be false after setSetting")
	}

	if err := setSetting(&s, "timeoutMillis", "1500"); err != nil {
		t.Fatalf("setSetting timeoutMillis: %v", err)
	}
	if s.TimeoutMillis != 1500 {
		t.Errorf("timeoutMillis = %d, want 1500", s.TimeoutMillis)
	}
}

func TestSetSettingRejectsBadBool(t *testing.T) {
	s := settings.Default()
	if err := setSetting(&s, "useSymlink", "not-a-bool"); err == nil {
		t.Fatal("expected an error for a non-boolean useSymlink value")
	}
}

func TestSetSettingUnknownKey(t *testing.T) {
	s := settings.Default()
	if err := setSetting(&s, "bogus", "value"); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}
