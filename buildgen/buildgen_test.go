package buildgen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/StackDoubleFlow/qpm/manifest"
)

func TestGenerateDefinesContainsNDKPreamble(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateDefines(&buf, ProjectDefines{
		ModID:         "com.example.mod",
		ModName:       "Example Mod",
		ModVersion:    "1.0.0",
		CompileID:     "abc123",
		CodegenID:     "def456",
		ExternDirName: "extern",
		SharedDirName: "shared",
		NDKPlatform:   24,
		ABI:           "arm64-v8a",
		STL:           "c++_static",
	})
	if err != nil {
		t.Fatalf("GenerateDefines: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`set(MOD_ID "com.example.mod")`,
		`set(ANDROID_PLATFORM 24)`,
		`set(ANDROID_ABI "arm64-v8a")`,
		`set(ANDROID_STL "c++_static")`,
		`macro(qpm_glob`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestGenerateExternEmitsIncludesAndLinks(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateExtern(&buf, ExternData{
		Dependencies: []DependencyFragment{
			{
				ID:         "com.example.foo",
				IncludeDir: "extern/includes/com.example.foo",
				LibDir:     "extern/libs/com.example.foo",
				HasLib:     true,
				CompileOptions: manifest.CompileOptions{
					IncludePaths: []string{"shared"},
					CppFeatures:  []string{"cxx_std_20"},
				},
				ExtraFiles: []string{"*.cpp"},
			},
		},
	})
	if err != nil {
		t.Fatalf("GenerateExtern: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`target_include_directories(${MOD_ID} PRIVATE "extern/includes/com.example.foo")`,
		`target_include_directories(${MOD_ID} PRIVATE "extern/includes/com.example.foo/shared")`,
		`target_compile_features(${MOD_ID} PRIVATE cxx_std_20)`,
		`target_link_directories(${MOD_ID} PRIVATE "extern/libs/com.example.foo")`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestGenerateExternIsDeterministicByID(t *testing.T) {
	deps := []DependencyFragment{
		{ID: "com.example.zzz", IncludeDir: "a"},
		{ID: "com.example.aaa", IncludeDir: "b"},
	}

	var buf1, buf2 bytes.Buffer
	if err := GenerateExtern(&buf1, ExternData{Dependencies: deps}); err != nil {
		t.Fatal(err)
	}
	if err := GenerateExtern(&buf2, ExternData{Dependencies: deps}); err != nil {
		t.Fatal(err)
	}
	if buf1.String() != buf2.String() {
		t.Fatalf("expected deterministic output")
	}
	if strings.Index(buf1.String(), "com.example.aaa") > strings.Index(buf1.String(), "com.example.zzz") {
		t.Fatalf("expected dependencies sorted by ID")
	}
}
