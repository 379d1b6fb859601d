package qpm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/StackDoubleFlow/qpm/lockfile"
	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
	"github.com/StackDoubleFlow/qpm/registry"
)

func rootProjectManifest(t *testing.T, extra func(*manifest.Manifest)) *manifest.Manifest {
	t.Helper()
	v, err := pkgid.ParseVersion("1.0.0")
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	m := &manifest.Manifest{
		Info: manifest.PackageInfo{
			ID:      "com.example.root",
			Name:    "Root",
			Version: v,
			URL:     "https://example.com/root.zip",
		},
	}
	if extra != nil {
		extra(m)
	}
	return m
}

func TestPublishRejectsMissingURL(t *testing.T) {
	m := rootProjectManifest(t, func(m *manifest.Manifest) { m.Info.URL = "" })
	proj := &Project{Manifest: m, Lockfile: &lockfile.SharedPackageConfig{Config: *m}}

	err := Publish(context.Background(), proj, registry.NewClient("http://unused", time.Second, nil))
	if _, ok := err.(*PublishValidationError); !ok {
		t.Fatalf("expected *PublishValidationError for missing url, got %T: %v", err, err)
	}
}

func TestPublishRejectsMissingSoLinkWhenNotHeadersOnly(t *testing.T) {
	m := rootProjectManifest(t, nil)
	proj := &Project{Manifest: m, Lockfile: &lockfile.SharedPackageConfig{Config: *m}}

	err := Publish(context.Background(), proj, registry.NewClient("http://unused", time.Second, nil))
	ve, ok := err.(*PublishValidationError)
	if !ok {
		t.Fatalf("expected *PublishValidationError for missing soLink, got %T: %v", err, err)
	}
	if ve.Reason == "" {
		t.Fatalf("expected a reason explaining the missing soLink")
	}
}

func TestPublishRejectsWithoutLockfile(t *testing.T) {
	m := rootProjectManifest(t, func(m *manifest.Manifest) { m.Info.AdditionalData.HeadersOnly = true })
	proj := &Project{Manifest: m, Lockfile: nil}

	err := Publish(context.Background(), proj, registry.NewClient("http://unused", time.Second, nil))
	if _, ok := err.(*PublishValidationError); !ok {
		t.Fatalf("expected *PublishValidationError for a missing lockfile, got %T: %v", err, err)
	}
}

func TestPublishRejectsUnresolvedDeclaredDependency(t *testing.T) {
	m := rootProjectManifest(t, func(m *manifest.Manifest) {
		m.Info.AdditionalData.HeadersOnly = true
		m.Dependencies = []manifest.Dependency{{ID: "com.example.leaf", VersionRange: pkgid.MustParseRange("^1.0.0")}}
	})
	proj := &Project{Manifest: m, Lockfile: &lockfile.SharedPackageConfig{Config: *m}}

	err := Publish(context.Background(), proj, registry.NewClient("http://unused", time.Second, nil))
	if _, ok := err.(*PublishValidationError); !ok {
		t.Fatalf("expected *PublishValidationError for an unresolved declared dependency, got %T: %v", err, err)
	}
}

func TestPublishRejectsResolvedVersionOutsideDeclaredRange(t *testing.T) {
	leafVer, err := pkgid.ParseVersion("2.0.0")
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	m := rootProjectManifest(t, func(m *manifest.Manifest) {
		m.Info.AdditionalData.HeadersOnly = true
		m.Dependencies = []manifest.Dependency{{ID: "com.example.leaf", VersionRange: pkgid.MustParseRange("^1.0.0")}}
	})
	proj := &Project{
		Manifest: m,
		Lockfile: &lockfile.SharedPackageConfig{
			Config: *m,
			RestoredDependencies: []lockfile.ResolvedDependency{
				{Dependency: manifest.Dependency{ID: "com.example.leaf", VersionRange: pkgid.MustParseRange("^1.0.0")}, Version: leafVer},
			},
		},
	}

	err = Publish(context.Background(), proj, registry.NewClient("http://unused", time.Second, nil))
	if _, ok := err.(*PublishValidationError); !ok {
		t.Fatalf("expected *PublishValidationError for a resolved version outside the declared range, got %T: %v", err, err)
	}
}

// TestPublishPostsWhenValidationPasses confirms a fully valid project
// reaches the registry client and uploads the lockfile.
func TestPublishPostsWhenValidationPasses(t *testing.T) {
	leafVer, err := pkgid.ParseVersion("1.5.0")
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	m := rootProjectManifest(t, func(m *manifest.Manifest) {
		m.Info.AdditionalData.HeadersOnly = true
		m.Dependencies = []manifest.Dependency{{ID: "com.example.leaf", VersionRange: pkgid.MustParseRange("^1.0.0")}}
	})
	lock := &lockfile.SharedPackageConfig{
		Config: *m,
		RestoredDependencies: []lockfile.ResolvedDependency{
			{Dependency: manifest.Dependency{ID: "com.example.leaf", VersionRange: pkgid.MustParseRange("^1.0.0")}, Version: leafVer},
		},
	}
	proj := &Project{Manifest: m, Lockfile: lock}

	var posted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "expected POST", http.StatusMethodNotAllowed)
			return
		}
		posted = true
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding published body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := registry.NewClient(srv.URL, 5*time.Second, nil)
	if err := Publish(context.Background(), proj, client); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !posted {
		t.Fatalf("expected Publish to POST the lockfile to the registry")
	}
}
