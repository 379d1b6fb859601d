package lockfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

const sampleLock = `{
  "config": {
    "info": {
      "id": "com.example.mod",
      "name": "ExampleMod",
      "version": "1.0.0"
    },
    "dependencies": [
      {"id": "com.example.h", "versionRange": "^1.0.0"}
    ],
    "dependenciesDir": "extern",
    "sharedDir": "shared"
  },
  "restoredDependencies": [
    {
      "dependency": {"id": "com.example.h", "versionRange": "^1.0.0"},
      "version": "1.0.3"
    }
  ]
}`

func TestParseAndInvariants(t *testing.T) {
	lock, err := Parse(strings.NewReader(sampleLock))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if err := lock.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}

	rd, ok := lock.ByID("com.example.h")
	if !ok {
		t.Fatalf("expected restored dependency com.example.h")
	}
	if rd.Version.String() != "1.0.3" {
		t.Fatalf("got version %s", rd.Version.String())
	}
}

func TestInvariantViolatedWhenDirectDepMissing(t *testing.T) {
	lock, err := Parse(strings.NewReader(sampleLock))
	if err != nil {
		t.Fatal(err)
	}
	lock.RestoredDependencies = nil

	if err := lock.CheckInvariants(); err == nil {
		t.Fatalf("expected invariant violation when direct dependency is missing")
	}
}

func TestPrivateDirectDependencyExemptFromInvariant(t *testing.T) {
	lock := &SharedPackageConfig{
		Config: manifest.Manifest{
			Dependencies: []manifest.Dependency{
				{
					ID:             pkgid.NormalizeID("com.example.priv"),
					VersionRange:   pkgid.Any(),
					AdditionalData: manifest.AdditionalData{IsPrivate: true},
				},
			},
		},
	}
	if err := lock.CheckInvariants(); err != nil {
		t.Fatalf("private dependency should be exempt: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	lock, err := Parse(strings.NewReader(sampleLock))
	if err != nil {
		t.Fatal(err)
	}

	b, err := lock.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	lock2, err := Parse(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("re-parsing: %v", err)
	}

	if lock2.Config.Info.ID != lock.Config.Info.ID {
		t.Fatalf("round trip lost config id")
	}
	rd, ok := lock2.ByID("com.example.h")
	if !ok || rd.Version.String() != "1.0.3" {
		t.Fatalf("round trip lost restored dependency")
	}
}
