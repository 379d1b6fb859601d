package qpm

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/internal/fsutil"
	"github.com/StackDoubleFlow/qpm/lockfile"
	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/moddesc"
	"github.com/StackDoubleFlow/qpm/pkgid"
	"github.com/StackDoubleFlow/qpm/resolve"
)

// QmodBuild folds the project's lockfile into the on-device module
// descriptor (spec §4.8, C8): mod.template.json is generated fresh if
// absent, or merged with variable substitution into mod.json if present.
func QmodBuild(proj *Project, modloaderID pkgid.ID, modFiles []string) error {
	if proj.Lockfile == nil {
		return errors.New("qmod build requires a restored project: qpm.shared.json not found, run restore first")
	}

	selections := selectionsFromLockfile(proj.Lockfile)
	additional := additionalDataFromLockfile(proj.Lockfile)
	desc := moddesc.Synthesize(proj.Manifest, selections, additional, modloaderID, modFiles)

	templatePath := filepath.Join(proj.AbsRoot, "mod.template.json")
	if !fsutil.Exists(templatePath) {
		b, err := desc.MarshalJSON()
		if err != nil {
			return errors.Wrap(err, "marshaling mod descriptor")
		}
		return os.WriteFile(templatePath, append(b, '\n'), 0o644)
	}

	tmplBytes, err := os.ReadFile(templatePath)
	if err != nil {
		return errors.Wrapf(err, "reading %s", templatePath)
	}

	merged, err := moddesc.ApplyTemplate(tmplBytes, desc)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(proj.AbsRoot, "mod.json"), append(merged, '\n'), 0o644)
}

// selectionsFromLockfile rebuilds the resolve.Selection view C8 needs
// straight from an already-written lockfile, so `qmod build` never has to
// re-resolve against the registry.
func selectionsFromLockfile(lock *lockfile.SharedPackageConfig) []resolve.Selection {
	rootID := pkgid.NormalizeID(string(lock.Config.Info.ID))
	out := []resolve.Selection{{ID: rootID, Version: lock.Config.Info.Version}}
	for _, rd := range lock.RestoredDependencies {
		out = append(out, resolve.Selection{
			ID:         pkgid.NormalizeID(string(rd.Dependency.ID)),
			Version:    rd.Version,
			Dependency: rd.Dependency,
		})
	}
	return out
}

// QmodEditTemplate appends value to the named array field (modFiles or
// libraryFiles) of mod.template.json, creating the template if it doesn't
// exist yet. Fields outside these two are rejected.
func QmodEditTemplate(root, field, value string) error {
	if field != "modFiles" && field != "libraryFiles" {
		return errors.Errorf("qmod edit: unsupported field %q", field)
	}

	path := filepath.Join(root, "mod.template.json")
	doc := map[string]interface{}{}
	if b, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(b, &doc); err != nil {
			return errors.Wrapf(err, "parsing %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "reading %s", path)
	}

	existing, _ := doc[field].([]interface{})
	doc[field] = append(existing, value)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(out, '\n'), 0o644)
}

func additionalDataFromLockfile(lock *lockfile.SharedPackageConfig) map[pkgid.ID]manifest.AdditionalData {
	out := make(map[pkgid.ID]manifest.AdditionalData, len(lock.RestoredDependencies))
	for _, rd := range lock.RestoredDependencies {
		out[pkgid.NormalizeID(string(rd.Dependency.ID))] = rd.Dependency.AdditionalData
	}
	return out
}
