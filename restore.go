package qpm

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/cache"
	"github.com/StackDoubleFlow/qpm/fetcher"
	"github.com/StackDoubleFlow/qpm/internal/fsutil"
	"github.com/StackDoubleFlow/qpm/lockfile"
	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/materialize"
	"github.com/StackDoubleFlow/qpm/pkgid"
	"github.com/StackDoubleFlow/qpm/registry"
	"github.com/StackDoubleFlow/qpm/resolve"

	"github.com/Masterminds/semver/v3"
)

// Restore resolves the project's dependency graph, fetches and caches every
// selected package, materializes the result into the project's dependencies
// directory, regenerates the build fragments, and writes the refreshed
// lockfile — the `restore` orchestrator (spec §4.9's control flow): C4 reads
// the manifest, C5 resolves against C1, C9 writes the lockfile via C4, C3
// (driven by C2 on a miss) fills the cache for each resolved dependency, C6
// materializes, and C7 regenerates qpm_defines.cmake/extern.cmake.
//
// The lockfile is written before materialization starts (spec §5's ordering
// guarantee: a crash mid-materialization still leaves a readable lockfile).
func Restore(ctx context.Context, ctxCfg *Context, proj *Project, client *registry.Client, f *fetcher.Fetcher, c *cache.Cache) (*lockfile.SharedPackageConfig, error) {
	provider := newRegistryProvider(ctx, client)
	resolver := resolve.New(provider)

	selections, err := resolver.Resolve(proj.Manifest)
	if err != nil {
		return nil, err
	}

	collapsed, err := resolve.Collapse(proj.Manifest, selections, provider)
	if err != nil {
		return nil, err
	}

	rootID := pkgid.NormalizeID(string(proj.Manifest.Info.ID))
	directIDs := make(map[pkgid.ID]bool, len(proj.Manifest.Dependencies))
	for _, d := range proj.Manifest.Dependencies {
		directIDs[pkgid.NormalizeID(string(d.ID))] = true
	}

	var restored []lockfile.ResolvedDependency
	for _, s := range selections {
		if s.ID == rootID {
			continue
		}
		restored = append(restored, lockfile.ResolvedDependency{
			Dependency: manifest.Dependency{
				ID:             s.ID,
				VersionRange:   s.Dependency.VersionRange,
				AdditionalData: collapsed[s.ID],
			},
			Version: s.Version,
		})
	}

	lock := &lockfile.SharedPackageConfig{Config: *proj.Manifest, RestoredDependencies: restored}
	if err := lock.CheckInvariants(); err != nil {
		return nil, err
	}

	lockPath := filepath.Join(proj.AbsRoot, LockfileName)
	if err := writeGeneratedFile(lockPath, func(w *os.File) error { return lockfile.Write(w, lock) }); err != nil {
		return nil, errors.Wrapf(err, "writing lockfile %s", lockPath)
	}
	proj.Lockfile = lock

	var targets []materialize.Target
	for _, s := range selections {
		if s.ID == rootID {
			continue
		}
		ad := collapsed[s.ID]

		entry, err := c.Ensure(s.ID, s.Version, ad.HeadersOnly, populateFunc(ctx, f, provider, s.ID, s.Version, ad))
		if err != nil {
			return nil, err
		}

		targets = append(targets, materialize.Target{
			ID:          s.ID,
			Entry:       entry,
			HeadersOnly: ad.HeadersOnly,
			Direct:      directIDs[s.ID],
			SoName:      ad.SoName(s.ID, s.Version),
			UseRelease:  ad.UseRelease,
		})
	}

	depsDir := proj.Manifest.DependenciesDir
	if depsDir == "" {
		depsDir = "extern"
	}
	useSymlink := true
	if ctxCfg != nil {
		useSymlink = ctxCfg.Settings.UseSymlink
	}
	m := materialize.New(proj.AbsRoot, depsDir, !useSymlink)
	if err := m.Materialize(targets); err != nil {
		return nil, err
	}

	if ctxCfg != nil && ctxCfg.Settings.NDKPath != "" {
		if err := os.WriteFile(filepath.Join(proj.AbsRoot, "ndkpath.txt"), []byte(ctxCfg.Settings.NDKPath), 0o644); err != nil {
			return nil, errors.Wrap(err, "writing ndkpath.txt")
		}
	}

	if err := GenerateBuildFragments(proj, selections, collapsed); err != nil {
		return nil, err
	}

	return lock, nil
}

// populateFunc builds the cache.Populate closure for one resolved package:
// classify its published source location, fetch it into srcDir, and — for
// a non-headers-only package — download its release and debug artifacts
// into libDir under their deterministic names (spec §4.3 step 3).
func populateFunc(ctx context.Context, f *fetcher.Fetcher, prov *registryProvider, id pkgid.ID, v *semver.Version, ad manifest.AdditionalData) cache.Populate {
	return func(srcDir, libDir, tmpDir string) error {
		pm, err := prov.Manifest(id, v)
		if err != nil {
			return err
		}

		switch src := fetcher.ClassifySource(pm.Info.URL, ad.LocalPath, ad.SubFolder).(type) {
		case fetcher.Git:
			if err := f.CloneGit(ctx, src.URL, ad.BranchName, srcDir); err != nil {
				return err
			}
		case fetcher.Zip:
			zipPath := filepath.Join(tmpDir, "source.zip")
			if err := f.DownloadArtifact(ctx, src.URL, zipPath); err != nil {
				return err
			}
			if err := fetcher.ExtractZip(zipPath, srcDir, src.SubFolder); err != nil {
				return err
			}
		case fetcher.Local:
			from := src.Path
			if src.SubFolder != "" {
				from = filepath.Join(from, src.SubFolder)
			}
			// CopyDir requires a destination that does not exist yet.
			if err := os.Remove(srcDir); err != nil {
				return errors.Wrapf(err, "preparing local source for %s", id)
			}
			if err := fsutil.CopyDir(from, srcDir); err != nil {
				return errors.Wrapf(err, "copying local source for %s", id)
			}
		}

		if ad.HeadersOnly {
			return nil
		}

		soName := ad.SoName(id, v)
		if ad.SoLink != "" {
			if err := f.DownloadArtifact(ctx, ad.SoLink, filepath.Join(libDir, soName)); err != nil {
				return err
			}
		}
		if ad.DebugSoLink != "" {
			if err := f.DownloadArtifact(ctx, ad.DebugSoLink, filepath.Join(libDir, "debug_"+soName)); err != nil {
				return err
			}
		}
		return nil
	}
}

// writeGeneratedFile overwrites path in full with whatever write produces —
// the "full overwrite, never merge" convention every generated or
// serialized artifact in this tool follows.
func writeGeneratedFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return write(file)
}
