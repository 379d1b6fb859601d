// Package materialize implements the Materializer (spec §4.6): projecting
// cache entries into a project's dependencies directory so a build system
// can see them as plain include paths and link targets.
//
// The symlink-by-default, copy-on-failure policy is grounded on
// internal/fsutil.SymlinkOrCopy, itself adapted from golang-dep's fs.go
// symlink helpers used when populating vendor/.
package materialize

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/cache"
	"github.com/StackDoubleFlow/qpm/internal/fsutil"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

// Error is fatal (spec §7 MaterializationError): the project's
// dependencies directory could not be brought in sync with the resolved
// graph.
type Error struct {
	ID    pkgid.ID
	Cause error
}

func (e *Error) Error() string { return "materializing " + string(e.ID) + ": " + e.Cause.Error() }
func (e *Error) Unwrap() error { return e.Cause }

// Target describes one resolved package to project into the dependencies
// directory.
type Target struct {
	ID          pkgid.ID
	Entry       cache.Entry
	HeadersOnly bool
	// Direct is true when the root manifest depends on this package
	// directly. Only direct dependencies get their libs materialized
	// (spec §4.6): transitive dependencies are assumed to already be
	// linked into whatever directly depends on them.
	Direct bool
	// SoName is the artifact's link name (manifest.AdditionalData.SoName),
	// without any debug_ prefix. It is also the name the chosen artifact
	// is projected under in libs/<id>/, regardless of which cached file
	// (release or debug) was actually selected.
	SoName string
	// UseRelease forces the release artifact even when a debug one was
	// cached alongside it (spec §4.6 step 2's useRelease rule).
	UseRelease bool
}

// Materializer projects cache entries under root/dependenciesDir.
type Materializer struct {
	ProjectRoot     string
	DependenciesDir string
	PreferCopy      bool
}

// New builds a Materializer. dependenciesDir is relative to projectRoot,
// matching manifest.Manifest.DependenciesDir.
func New(projectRoot, dependenciesDir string, preferCopy bool) *Materializer {
	return &Materializer{ProjectRoot: projectRoot, DependenciesDir: dependenciesDir, PreferCopy: preferCopy}
}

func (m *Materializer) includesDir(id pkgid.ID) string {
	return filepath.Join(m.ProjectRoot, m.DependenciesDir, "includes", string(id))
}

func (m *Materializer) libsDir(id pkgid.ID) string {
	return filepath.Join(m.ProjectRoot, m.DependenciesDir, "libs", string(id))
}

// Materialize projects every target's src (as includes/<id>) and, for
// direct targets only, lib (as libs/<id>), into the dependencies
// directory. It is idempotent: re-running with the same targets leaves
// the tree unchanged, per spec §8's idempotent-restore invariant.
func (m *Materializer) Materialize(targets []Target) error {
	includesRoot := filepath.Join(m.ProjectRoot, m.DependenciesDir, "includes")
	libsRoot := filepath.Join(m.ProjectRoot, m.DependenciesDir, "libs")
	if err := os.MkdirAll(includesRoot, 0o755); err != nil {
		return errors.Wrap(err, "creating includes directory")
	}
	if err := os.MkdirAll(libsRoot, 0o755); err != nil {
		return errors.Wrap(err, "creating libs directory")
	}

	for _, t := range targets {
		dest := m.includesDir(t.ID)
		if err := linkTree(t.Entry.Src, dest, m.PreferCopy); err != nil {
			return &Error{ID: t.ID, Cause: err}
		}

		if !t.Direct {
			continue
		}
		if t.HeadersOnly {
			continue
		}

		if err := m.materializeLib(t); err != nil {
			return &Error{ID: t.ID, Cause: err}
		}
	}

	return nil
}

// linkTree is SymlinkOrCopy but tolerant of the cache entry's source being
// absent (a headers-only entry has no lib dir to link).
func linkTree(src, dest string, preferCopy bool) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "statting %s", src)
	}
	return fsutil.SymlinkOrCopy(src, dest, preferCopy)
}

// materializeLib projects exactly one cached artifact file for t into
// libs/<id>/<soName>, per spec §4.6 step 2's useRelease rule: the debug
// artifact is preferred unless UseRelease is set or no debug artifact was
// cached, and whichever file is chosen is always projected under the
// non-debug-prefixed name so build fragments never see both a release and
// a debug copy of the same library.
func (m *Materializer) materializeLib(t Target) error {
	if t.SoName == "" {
		return linkTree(t.Entry.Lib, m.libsDir(t.ID), m.PreferCopy)
	}

	debugPath := filepath.Join(t.Entry.Lib, "debug_"+t.SoName)
	releasePath := filepath.Join(t.Entry.Lib, t.SoName)

	chosen := releasePath
	if !t.UseRelease {
		if isFile, err := fsutil.IsRegular(debugPath); err != nil {
			return errors.Wrapf(err, "statting %s", debugPath)
		} else if isFile {
			chosen = debugPath
		}
	}

	if isFile, err := fsutil.IsRegular(chosen); err != nil {
		return errors.Wrapf(err, "statting %s", chosen)
	} else if !isFile {
		// Neither artifact was cached: a headers-only entry has nothing
		// to project.
		return nil
	}

	if err := os.MkdirAll(m.libsDir(t.ID), 0o755); err != nil {
		return errors.Wrap(err, "creating lib directory")
	}
	dest := filepath.Join(m.libsDir(t.ID), t.SoName)
	return fsutil.SymlinkOrCopy(chosen, dest, m.PreferCopy)
}
