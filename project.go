// Package qpm wires together the registry client, fetcher, cache,
// resolver, materializer, and build-fragment/mod-descriptor generators
// into the command orchestrators spec §4.9 describes: restore, publish,
// collapse, and qmod build.
//
// Context/Project/LoadProject follow the same shape golang-dep's
// context.go and project.go use to find a project root by walking up from
// the working directory until a manifest file is found, adapted from
// Gopkg.toml/GOPATH semantics to qpm.json/qpm.shared.json living anywhere
// on disk.
package qpm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/internal/qlog"
	"github.com/StackDoubleFlow/qpm/lockfile"
	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/settings"
)

// ManifestName is the project manifest's fixed filename.
const ManifestName = "qpm.json"

// LockfileName is the project lockfile's fixed filename.
const LockfileName = "qpm.shared.json"

// Context carries the process-wide configuration every orchestrator needs.
// WorkingDir and Log are set by the CLI front end; they are zero values
// when a Context is built directly for a test or a library embedder, in
// which case LoadProject falls back to os.Getwd and Log is left nil
// (every qlog.Logger method is a safe no-op on a nil receiver).
type Context struct {
	Settings   settings.Settings
	WorkingDir string
	Log        *qlog.Logger
}

// NewContext loads settings from the given store, falling back to
// defaults if none are saved yet.
func NewContext(store settings.Store) (*Context, error) {
	s, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading settings")
	}
	return &Context{Settings: s}, nil
}

// Project is a loaded qpm.json (and, if present, qpm.shared.json) rooted
// at a directory on disk.
type Project struct {
	AbsRoot  string
	Manifest *manifest.Manifest
	Lockfile *lockfile.SharedPackageConfig // nil if qpm.shared.json doesn't exist yet
}

// LoadProject searches upward from path (or the working directory, if
// path is empty) for a directory containing qpm.json, then parses it and
// its sibling lockfile if present.
func (c *Context) LoadProject(path string) (*Project, error) {
	var start string
	var err error
	switch {
	case path != "":
		start, err = filepath.Abs(path)
	case c.WorkingDir != "":
		start, err = filepath.Abs(c.WorkingDir)
	default:
		start, err = os.Getwd()
	}
	if err != nil {
		return nil, errors.Wrap(err, "resolving search start directory")
	}

	root, err := findProjectRoot(start)
	if err != nil {
		return nil, err
	}

	p := &Project{AbsRoot: root}

	mf, err := os.Open(filepath.Join(root, ManifestName))
	if err != nil {
		return nil, &ManifestParseError{Path: filepath.Join(root, ManifestName), Cause: err}
	}
	defer mf.Close()

	m, err := manifest.Parse(mf)
	if err != nil {
		return nil, &ManifestParseError{Path: filepath.Join(root, ManifestName), Cause: err}
	}
	p.Manifest = m

	lf, err := os.Open(filepath.Join(root, LockfileName))
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, &ManifestParseError{Path: filepath.Join(root, LockfileName), Cause: err}
	}
	defer lf.Close()

	lock, err := lockfile.Parse(lf)
	if err != nil {
		return nil, &ManifestParseError{Path: filepath.Join(root, LockfileName), Cause: err}
	}
	p.Lockfile = lock

	return p, nil
}

var errProjectNotFound = fmt.Errorf("could not find a project (no %s found in any parent directory)", ManifestName)

func findProjectRoot(from string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(from, ManifestName)); err == nil {
			return from, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(from)
		if parent == from {
			return "", errProjectNotFound
		}
		from = parent
	}
}

// WriteManifestFile overwrites path in full with m's pretty-printed JSON,
// the same full-overwrite convention every generated or hand-edited
// manifest in this tool follows (spec §4.4).
func WriteManifestFile(path string, m *manifest.Manifest) error {
	return writeGeneratedFile(path, func(f *os.File) error { return manifest.Write(f, m) })
}
