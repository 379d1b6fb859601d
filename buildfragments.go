package qpm

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/buildgen"
	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
	"github.com/StackDoubleFlow/qpm/resolve"
)

// NDK values written into qpm_defines.cmake for every project (spec §4.7
// step 7); no setting changes them, and the generated file only applies
// each one if the build has not already defined it.
const (
	defaultNDKPlatform = 24
	defaultABI         = "arm64-v8a"
	defaultSTL         = "c++_static"
)

// GenerateBuildFragments regenerates qpm_defines.cmake and extern.cmake
// from the resolved graph (spec §4.7, C7). Both files are full overwrites,
// never merged, so re-running restore on an unchanged lockfile reproduces
// them byte-for-byte.
func GenerateBuildFragments(proj *Project, selections []resolve.Selection, collapsed map[pkgid.ID]manifest.AdditionalData) error {
	root := proj.Manifest
	rootID := pkgid.NormalizeID(string(root.Info.ID))

	depsDir := root.DependenciesDir
	if depsDir == "" {
		depsDir = "extern"
	}

	defines := buildgen.ProjectDefines{
		ModID:         strings.ReplaceAll(root.Info.Name, " ", ""),
		ModName:       root.Info.Name,
		ModVersion:    root.Info.Version.String(),
		CompileID:     stripLibName(root.Info.AdditionalData.SoName(rootID, root.Info.Version)),
		CodegenID:     codegenID(selections),
		ExternDirName: depsDir,
		SharedDirName: root.SharedDir,
		NDKPlatform:   defaultNDKPlatform,
		ABI:           defaultABI,
		STL:           defaultSTL,
	}

	definesPath := filepath.Join(proj.AbsRoot, "qpm_defines.cmake")
	if err := writeGeneratedFile(definesPath, func(w *os.File) error { return buildgen.GenerateDefines(w, defines) }); err != nil {
		return errors.Wrap(err, "writing qpm_defines.cmake")
	}

	var frags []buildgen.DependencyFragment
	for _, s := range selections {
		if s.ID == rootID {
			continue
		}
		ad := collapsed[s.ID]
		opts := manifest.CompileOptions{}
		if ad.CompileOptions != nil {
			opts = *ad.CompileOptions
		}
		frags = append(frags, buildgen.DependencyFragment{
			ID:             string(s.ID),
			IncludeDir:     filepath.ToSlash(filepath.Join(depsDir, "includes", string(s.ID))),
			LibDir:         filepath.ToSlash(filepath.Join(depsDir, "libs", string(s.ID))),
			HasLib:         !ad.HeadersOnly,
			CompileOptions: opts,
			ExtraFiles:     ad.ExtraFiles,
			StaticLinking:  ad.StaticLinking,
		})
	}

	externPath := filepath.Join(proj.AbsRoot, "extern.cmake")
	if err := writeGeneratedFile(externPath, func(w *os.File) error {
		return buildgen.GenerateExtern(w, buildgen.ExternData{Dependencies: frags})
	}); err != nil {
		return errors.Wrap(err, "writing extern.cmake")
	}

	return nil
}

// codegenID returns the id of any resolved dependency whose id contains
// "codegen", else the literal "codegen" (spec §4.7 step 5).
func codegenID(selections []resolve.Selection) string {
	for _, s := range selections {
		if strings.Contains(string(s.ID), "codegen") {
			return string(s.ID)
		}
	}
	return "codegen"
}

func stripLibName(name string) string {
	name = strings.TrimPrefix(name, "lib")
	return strings.TrimSuffix(name, filepath.Ext(name))
}
