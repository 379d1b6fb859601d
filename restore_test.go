package qpm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/StackDoubleFlow/qpm/cache"
	"github.com/StackDoubleFlow/qpm/fetcher"
	"github.com/StackDoubleFlow/qpm/registry"
)

// TestRestoreUsesPublishedAdditionalDataWhenEdgeHasNoOverride exercises the
// scenario every normally published package falls into: the manifest
// declares a dependency with no additionalData overrides at all, and the
// package's own published manifest is the only source of headersOnly. If
// restore only looked at the dependency edge, it would fetch a lib/ it
// doesn't need and materialize an empty directory instead of skipping it.
func TestRestoreUsesPublishedAdditionalDataWhenEdgeHasNoOverride(t *testing.T) {
	leafSrc := t.TempDir()
	leafManifest := `{"info":{"id":"com.example.leaf","name":"Leaf","version":"1.0.0"}}`
	if err := os.WriteFile(filepath.Join(leafSrc, "qpm.json"), []byte(leafManifest), 0o644); err != nil {
		t.Fatalf("writing leaf source manifest: %v", err)
	}

	published := `{
		"config": {
			"info": {
				"id": "com.example.leaf",
				"name": "Leaf",
				"version": "1.0.0",
				"additionalData": {"headersOnly": true, "localPath": ` + jsonString(leafSrc) + `}
			},
			"dependencies": [],
			"dependenciesDir": "extern",
			"sharedDir": "shared"
		},
		"restoredDependencies": []
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/com.example.leaf":
			json.NewEncoder(w).Encode([]map[string]string{{"id": "com.example.leaf", "version": "1.0.0"}})
		case "/com.example.leaf/1.0.0":
			w.Write([]byte(published))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	projRoot := t.TempDir()
	rootManifest := `{
		"info": {"id": "com.example.root", "name": "Root", "version": "1.0.0"},
		"dependencies": [{"id": "com.example.leaf", "versionRange": "^1.0.0"}],
		"dependenciesDir": "extern",
		"sharedDir": "shared"
	}`
	if err := os.WriteFile(filepath.Join(projRoot, ManifestName), []byte(rootManifest), 0o644); err != nil {
		t.Fatalf("writing root manifest: %v", err)
	}

	ctxCfg := &Context{WorkingDir: projRoot}
	proj, err := ctxCfg.LoadProject("")
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}

	client := registry.NewClient(srv.URL, 5*time.Second, nil)
	f := fetcher.New(nil, nil)
	c := cache.New(t.TempDir())

	lock, err := Restore(context.Background(), ctxCfg, proj, client, f, c)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if len(lock.RestoredDependencies) != 1 {
		t.Fatalf("expected 1 restored dependency, got %d", len(lock.RestoredDependencies))
	}
	rd := lock.RestoredDependencies[0]
	if !rd.Dependency.AdditionalData.HeadersOnly {
		t.Fatalf("expected headersOnly to be inherited from the published manifest, got %+v", rd.Dependency.AdditionalData)
	}

	libDir := c.Path(rd.Dependency.ID, rd.Version)
	if _, err := os.Stat(filepath.Join(libDir, "lib")); !os.IsNotExist(err) {
		t.Fatalf("expected no lib/ directory for a headers-only package, stat err = %v", err)
	}

	materializedLibs := filepath.Join(projRoot, "extern", "libs", "com.example.leaf")
	if _, err := os.Stat(materializedLibs); !os.IsNotExist(err) {
		t.Fatalf("expected no materialized libs/ for a headers-only direct dependency, stat err = %v", err)
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
