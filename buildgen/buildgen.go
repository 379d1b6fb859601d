// Package buildgen implements the Build-Fragment Generator (spec §4.7):
// CMake fragments a mod's own CMakeLists.txt includes to pick up the NDK
// toolchain defaults and the resolved dependency graph, without the mod's
// own build file needing to know anything about qpm.
//
// Fragment rendering uses text/template, the same templating package
// golang-dep's `dep status -f` output formatting uses (cmd/dep/status.go),
// applied here to CMake text instead of a status report.
package buildgen

import (
	"io"
	"sort"
	"text/template"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/manifest"
)

// ProjectDefines is the data backing qpm_defines.cmake: project-level
// constants and the NDK toolchain preamble every native mod needs.
type ProjectDefines struct {
	ModID         string
	ModName       string
	ModVersion    string
	CompileID     string
	CodegenID     string
	ExternDirName string
	SharedDirName string
	NDKPlatform   int
	ABI           string
	STL           string
}

const definesTemplate = `# Generated by qpm. Do not edit by hand; re-run qpm to regenerate.
set(MOD_VERSION "{{.ModVersion}}")
set(MOD_ID "{{.ModID}}")
set(MOD_NAME "{{.ModName}}")
set(COMPILE_ID "{{.CompileID}}")
set(CODEGEN_ID "{{.CodegenID}}")
set(EXTERN_DIR_NAME "{{.ExternDirName}}")
set(SHARED_DIR_NAME "{{.SharedDirName}}")

if(NOT DEFINED ANDROID_PLATFORM)
    set(ANDROID_PLATFORM {{.NDKPlatform}})
endif()
if(NOT DEFINED ANDROID_ABI)
    set(ANDROID_ABI "{{.ABI}}")
endif()
if(NOT DEFINED ANDROID_STL)
    set(ANDROID_STL "{{.STL}}")
endif()

# qpm_glob(<out-var> <dir> <pattern>) collects matching files relative to
# the calling CMakeLists.txt, the same glob-then-assign idiom every
# generated fragment below uses for extraFiles and link libraries.
macro(qpm_glob OUT_VAR GLOB_DIR GLOB_PATTERN)
    file(GLOB_RECURSE ${OUT_VAR} "${GLOB_DIR}/${GLOB_PATTERN}")
endmacro()
`

// GenerateDefines renders qpm_defines.cmake.
func GenerateDefines(w io.Writer, d ProjectDefines) error {
	t, err := template.New("qpm_defines").Parse(definesTemplate)
	if err != nil {
		return errors.Wrap(err, "parsing qpm_defines template")
	}
	return errors.Wrap(t.Execute(w, d), "rendering qpm_defines")
}

// DependencyFragment is one resolved dependency's contribution to
// extern.cmake: where its headers and libraries live, and what compile
// directives its compileOptions ask every consumer to add.
type DependencyFragment struct {
	ID             string
	IncludeDir     string
	LibDir         string
	HasLib         bool
	CompileOptions manifest.CompileOptions
	ExtraFiles     []string
	StaticLinking  bool
}

// ExternData is the data backing extern.cmake: the full set of resolved
// dependencies to wire into the mod's build.
type ExternData struct {
	Dependencies []DependencyFragment
}

const externTemplate = `# Generated by qpm. Do not edit by hand; re-run qpm to regenerate.
{{- range $dep := .Dependencies}}

# {{$dep.ID}}
target_include_directories(${MOD_ID} PRIVATE "{{$dep.IncludeDir}}")
{{- range $dep.CompileOptions.IncludePaths}}
target_include_directories(${MOD_ID} PRIVATE "{{$dep.IncludeDir}}/{{.}}")
{{- end}}
{{- range $dep.CompileOptions.SystemIncludes}}
target_include_directories(${MOD_ID} SYSTEM PRIVATE "{{.}}")
{{- end}}
{{- range $dep.CompileOptions.CppFeatures}}
target_compile_features(${MOD_ID} PRIVATE {{.}})
{{- end}}
{{- range $dep.CompileOptions.CppFlags}}
target_compile_options(${MOD_ID} PRIVATE {{.}})
{{- end}}
{{- range $dep.CompileOptions.CFlags}}
target_compile_options(${MOD_ID} PRIVATE {{.}})
{{- end}}
{{- range $dep.ExtraFiles}}
qpm_glob(qpm_extra_{{$dep.ID | safeName}} "{{$dep.IncludeDir}}" "{{.}}")
target_sources(${MOD_ID} PRIVATE ${qpm_extra_{{$dep.ID | safeName}}})
{{- end}}
{{- if $dep.HasLib}}
qpm_glob(qpm_link_{{$dep.ID | safeName}} "{{$dep.LibDir}}" "*.so")
qpm_glob(qpm_link_static_{{$dep.ID | safeName}} "{{$dep.LibDir}}" "*.a")
target_link_directories(${MOD_ID} PRIVATE "{{$dep.LibDir}}")
target_link_libraries(${MOD_ID} PRIVATE ${qpm_link_{{$dep.ID | safeName}}} ${qpm_link_static_{{$dep.ID | safeName}}})
{{- end}}
{{- end}}
`

var externFuncs = template.FuncMap{
	"safeName": safeName,
}

// safeName turns a package identity into a legal CMake variable-name
// fragment: dots and hyphens confuse CMake's unquoted variable syntax.
func safeName(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// GenerateExtern renders extern.cmake from the resolved dependency graph.
// Dependencies are rendered in ID order so regenerating from an unchanged
// lockfile produces byte-identical output.
func GenerateExtern(w io.Writer, d ExternData) error {
	sorted := append([]DependencyFragment{}, d.Dependencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	t, err := template.New("extern").Funcs(externFuncs).Parse(externTemplate)
	if err != nil {
		return errors.Wrap(err, "parsing extern template")
	}
	return errors.Wrap(t.Execute(w, ExternData{Dependencies: sorted}), "rendering extern.cmake")
}
