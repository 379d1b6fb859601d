package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/StackDoubleFlow/qpm/lockfile"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

const samplePublished = `{
  "config": {
    "info": {"id": "com.example.h", "name": "H", "version": "1.0.3", "additionalData": {"headersOnly": true}},
    "dependencies": [],
    "dependenciesDir": "extern",
    "sharedDir": "shared"
  },
  "restoredDependencies": []
}`

func TestListVersionsMemoizes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		json.NewEncoder(w).Encode([]versionEntry{
			{ID: "com.example.h", Version: "1.0.3"},
			{ID: "com.example.h", Version: "1.0.2"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil)

	v1, err := c.ListVersions(context.Background(), "com.example.h")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(v1) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(v1))
	}

	if _, err := c.ListVersions(context.Background(), "com.example.h"); err != nil {
		t.Fatalf("second ListVersions: %v", err)
	}

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected exactly 1 network hit, got %d", hits)
	}
}

func TestGetPublishedManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePublished))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil)
	v, _ := pkgid.ParseVersion("1.0.3")

	lock, err := c.GetPublishedManifest(context.Background(), "com.example.h", v)
	if err != nil {
		t.Fatalf("GetPublishedManifest: %v", err)
	}
	if lock.Config.Info.ID != "com.example.h" {
		t.Fatalf("got id %q", lock.Config.Info.ID)
	}
}

func TestRegistryErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil)
	_, err := c.ListVersions(context.Background(), "missing.pkg")
	if err == nil {
		t.Fatalf("expected an error for 404 response")
	}
	var regErr *RegistryError
	if !asRegistryError(err, &regErr) {
		t.Fatalf("expected *RegistryError, got %T: %v", err, err)
	}
	if regErr.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d", regErr.StatusCode)
	}
}

func asRegistryError(err error, target **RegistryError) bool {
	if re, ok := err.(*RegistryError); ok {
		*target = re
		return true
	}
	return false
}

type fakeCreds struct{ token string }

func (f fakeCreds) Token() (string, bool) { return f.token, f.token != "" }

func TestTokenNeverLeaksInError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, fakeCreds{token: "super-secret-token"})
	lock, err := lockfile.Parse(strings.NewReader(samplePublished))
	if err != nil {
		t.Fatal(err)
	}
	err = c.Publish(context.Background(), "com.example.h", versionStringer{"1.0.0"}, lock)
	if err == nil {
		t.Fatalf("expected publish to fail")
	}
	if strings.Contains(err.Error(), "super-secret-token") {
		t.Fatalf("token leaked into error: %v", err)
	}
}

type versionStringer struct{ s string }

func (v versionStringer) String() string { return v.s }
