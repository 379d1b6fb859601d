package manifest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"

	"github.com/StackDoubleFlow/qpm/pkgid"
)

const sampleManifest = `{
  "info": {
    "id": "com.example.mod",
    "name": "ExampleMod",
    "version": "1.0.0",
    "url": "https://github.com/example/mod",
    "additionalData": {
      "branchName": "main"
    }
  },
  "dependencies": [
    {
      "id": "com.example.lib",
      "versionRange": "^1.2.0",
      "additionalData": {
        "extraFiles": ["extra/foo.hpp"]
      }
    }
  ],
  "dependenciesDir": "extern",
  "sharedDir": "shared"
}`

func TestParseRoundTrip(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if m.Info.ID != "com.example.mod" {
		t.Fatalf("got id %q", m.Info.ID)
	}
	if len(m.Dependencies) != 1 {
		t.Fatalf("expected 1 dependency, got %d", len(m.Dependencies))
	}
	dep := m.Dependencies[0]
	if dep.ID != "com.example.lib" {
		t.Fatalf("got dep id %q", dep.ID)
	}
	if !dep.VersionRange.Matches(mustVersion(t, "1.2.5")) {
		t.Fatalf("expected ^1.2.0 to match 1.2.5")
	}

	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	m2, err := Parse(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("re-parsing serialized manifest: %v", err)
	}
	if m2.Info.ID != m.Info.ID || m2.Info.Version.String() != m.Info.Version.String() {
		t.Fatalf("round trip mismatch: %+v vs %+v", m2.Info, m.Info)
	}
	if m2.Dependencies[0].AdditionalData.ExtraFiles[0] != "extra/foo.hpp" {
		t.Fatalf("extraFiles did not round trip: %+v", m2.Dependencies[0].AdditionalData)
	}
}

func TestAdditionalDataMergeRootWins(t *testing.T) {
	transitive := AdditionalData{
		BranchName: "dev",
		ExtraFiles: []string{"a.hpp"},
		IsPrivate:  false,
	}
	root := AdditionalData{
		BranchName: "main",
		ExtraFiles: []string{"b.hpp"},
		IsPrivate:  true,
	}

	merged := transitive.Merge(root)

	if merged.BranchName != "main" {
		t.Fatalf("root scalar should win, got %q", merged.BranchName)
	}
	if len(merged.ExtraFiles) != 2 {
		t.Fatalf("expected union of extraFiles, got %v", merged.ExtraFiles)
	}
	if !merged.IsPrivate {
		t.Fatalf("isPrivate should OR-combine to true")
	}
}

func TestModLinkPreferredOnWrite(t *testing.T) {
	raw := rawAdditionalData{QmodLink: "https://example.com/x.qmod"}
	a, err := raw.toDomain()
	if err != nil {
		t.Fatal(err)
	}
	if a.ModLink != "https://example.com/x.qmod" {
		t.Fatalf("expected qmodLink to populate ModLink on read, got %+v", a)
	}

	out := fromDomainAdditionalData(a)
	if out.ModLink == "" || out.QmodLink != "" {
		t.Fatalf("expected only modLink to be emitted on write, got %+v", out)
	}
}

func mustVersion(t *testing.T, s string) *semver.Version {
	t.Helper()
	v, err := pkgid.ParseVersion(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
