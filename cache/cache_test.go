package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

func mustVersion(t *testing.T, s string) *semver.Version {
	t.Helper()
	v, err := pkgid.ParseVersion(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func writeManifest(t *testing.T, dir, id, version string) {
	t.Helper()
	b := []byte(`{"info":{"id":"` + id + `","name":"n","version":"` + version + `"}}`)
	if err := os.WriteFile(filepath.Join(dir, "qpm.json"), b, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEnsurePopulatesOnFirstCall(t *testing.T) {
	c := New(t.TempDir())
	v := mustVersion(t, "1.0.0")

	calls := 0
	populate := func(src, lib, tmp string) error {
		calls++
		writeManifest(t, src, "com.example.pkg", "1.0.0")
		return os.WriteFile(filepath.Join(lib, "libpkg.so"), []byte("bin"), 0o644)
	}

	e, err := c.Ensure("com.example.pkg", v, false, populate)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected populate called once, got %d", calls)
	}
	if _, err := os.Stat(filepath.Join(e.Lib, "libpkg.so")); err != nil {
		t.Fatalf("expected lib populated: %v", err)
	}

	e2, err := c.Ensure("com.example.pkg", v, false, populate)
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if calls != 1 {
		t.Fatalf("second Ensure should be a cache hit, got %d populate calls", calls)
	}
	if e2.Src != e.Src {
		t.Fatalf("expected same src path across calls")
	}
}

func TestEnsureHeadersOnlySkipsLib(t *testing.T) {
	c := New(t.TempDir())
	v := mustVersion(t, "2.0.0")

	populate := func(src, lib, tmp string) error {
		writeManifest(t, src, "com.example.headers", "2.0.0")
		return nil
	}

	e, err := c.Ensure("com.example.headers", v, true, populate)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := os.Stat(e.Lib); !os.IsNotExist(err) {
		t.Fatalf("expected no lib dir for headers-only entry")
	}
}

func TestEnsureIntegrityMismatch(t *testing.T) {
	c := New(t.TempDir())
	v := mustVersion(t, "1.0.0")

	populate := func(src, lib, tmp string) error {
		writeManifest(t, src, "wrong.id", "1.0.0")
		return nil
	}

	_, err := c.Ensure("com.example.pkg", v, true, populate)
	if err == nil {
		t.Fatalf("expected integrity error")
	}
	if _, ok := err.(*IntegrityError); !ok {
		t.Fatalf("expected *IntegrityError, got %T: %v", err, err)
	}
}

func TestClearRemovesEntries(t *testing.T) {
	root := t.TempDir()
	c := New(root)
	v := mustVersion(t, "1.0.0")

	populate := func(src, lib, tmp string) error {
		writeManifest(t, src, "com.example.pkg", "1.0.0")
		return nil
	}
	if _, err := c.Ensure("com.example.pkg", v, true, populate); err != nil {
		t.Fatal(err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty cache root after Clear, got %v", entries)
	}
}

func TestListFindsAllEntries(t *testing.T) {
	c := New(t.TempDir())

	for _, vs := range []string{"1.0.0", "1.1.0"} {
		v, err := pkgid.ParseVersion(vs)
		if err != nil {
			t.Fatal(err)
		}
		populate := func(src, lib, tmp string) error {
			writeManifest(t, src, "com.example.pkg", vs)
			return nil
		}
		if _, err := c.Ensure("com.example.pkg", v, true, populate); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(ids), ids)
	}
}
