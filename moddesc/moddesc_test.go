package moddesc

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
	"github.com/StackDoubleFlow/qpm/resolve"
)

func TestClassifyRules(t *testing.T) {
	modloader := pkgid.ID("com.example.modloader")

	if got := Classify("com.example.modloader", manifest.AdditionalData{}, modloader); got != Dropped {
		t.Fatalf("modloader itself should be dropped, got %v", got)
	}
	if got := Classify("com.example.headers", manifest.AdditionalData{HeadersOnly: true}, modloader); got != Dropped {
		t.Fatalf("headers-only should be dropped, got %v", got)
	}
	if got := Classify("com.example.static", manifest.AdditionalData{StaticLinking: true}, modloader); got != Dropped {
		t.Fatalf("statically linked should be dropped, got %v", got)
	}
	if got := Classify("com.example.downloadable", manifest.AdditionalData{ModLink: "https://example.com/m.qmod"}, modloader); got != DownloadableMod {
		t.Fatalf("modLink set should be downloadable, got %v", got)
	}
	if got := Classify("com.example.lib", manifest.AdditionalData{}, modloader); got != BundledLibrary {
		t.Fatalf("plain dependency should be a bundled library, got %v", got)
	}
}

func TestSynthesizeClassifiesEachKind(t *testing.T) {
	rootVer, _ := pkgid.ParseVersion("1.0.0")
	root := &manifest.Manifest{
		Info: manifest.PackageInfo{ID: "com.example.root", Name: "Root Mod", Version: rootVer},
	}

	libVer, _ := pkgid.ParseVersion("1.0.0")
	downloadVer, _ := pkgid.ParseVersion("2.0.0")
	headersVer, _ := pkgid.ParseVersion("1.0.0")

	selections := []resolve.Selection{
		{ID: "com.example.root", Version: rootVer},
		{ID: "com.example.lib", Version: libVer},
		{ID: "com.example.download", Version: downloadVer},
		{ID: "com.example.headers", Version: headersVer},
	}

	additional := map[pkgid.ID]manifest.AdditionalData{
		"com.example.lib":      {},
		"com.example.download": {ModLink: "https://example.com/d.qmod"},
		"com.example.headers":  {HeadersOnly: true},
	}

	d := Synthesize(root, selections, additional, "com.example.modloader", []string{"libroot.so"})

	want := &Descriptor{
		SchemaVersion:  SchemaVersion,
		Name:           "Root Mod",
		ID:             "com.example.root",
		Version:        "1.0.0",
		PackageID:      "com.example.root",
		PackageVersion: "1.0.0",
		ModLoader:      "com.example.modloader",
		ModFiles:       []string{"libroot.so"},
		LibraryFiles:   []string{"lib" + "com.example.lib" + "_1_0_0.so"},
		Dependencies: []ModDependency{
			{ID: "com.example.download", Version: "2.0.0", DownloadLink: "https://example.com/d.qmod"},
		},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("synthesized descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyTemplateSubstitutesAndMergesArrays(t *testing.T) {
	rootVer, _ := pkgid.ParseVersion("1.2.3")
	root := &manifest.Manifest{
		Info: manifest.PackageInfo{ID: "com.example.root", Name: "Root Mod", Version: rootVer},
	}
	d := Synthesize(root, nil, nil, "com.example.modloader", []string{"libroot.so"})

	tmpl := []byte(`{
		"author": "qpm-user",
		"version": "unused",
		"modFiles": ["extra.so"]
	}`)

	out, err := ApplyTemplate(tmpl, d)
	if err != nil {
		t.Fatalf("ApplyTemplate: %v", err)
	}

	var merged map[string]interface{}
	if err := json.Unmarshal(out, &merged); err != nil {
		t.Fatalf("unmarshal merged output: %v", err)
	}

	if merged["author"] != "qpm-user" {
		t.Fatalf("expected template-provided author to survive, got %v", merged["author"])
	}
	if merged["_QPVersion"] != SchemaVersion {
		t.Fatalf("expected synthesized schema version, got %v", merged["_QPVersion"])
	}
	files, ok := merged["modFiles"].([]interface{})
	if !ok || len(files) != 2 {
		t.Fatalf("expected modFiles merged by append, got %v", merged["modFiles"])
	}
	if files[0] != "extra.so" || files[1] != "libroot.so" {
		t.Fatalf("expected template entries first then synthesized, got %v", files)
	}
}
