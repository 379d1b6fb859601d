// Package cache implements the content-addressed package Cache (spec §4.3):
// each (id, version) pair owns a directory holding its extracted source
// tree, compiled libraries, and scratch space, keyed so that two restores
// of the same version never race and a third restore is a pure cache hit.
//
// The locking strategy — an advisory file lock per cache entry guarding
// population, so concurrent qpm processes don't double-fetch or observe a
// half-written tree — is grounded on golang-dep's use of
// github.com/theckman/go-flock in its SafeWriter/context locking. Listing
// entries by walking two directory levels is grounded on godirwalk's use
// in golang-dep's gps/internal/pkgtree for fast, allocation-light tree
// walks.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/StackDoubleFlow/qpm/internal/fsutil"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

// Cache is rooted at a single directory; every entry lives at
// <Root>/<id>/<version>/{src,lib,tmp}.
type Cache struct {
	Root string
}

// New returns a Cache rooted at root. root is created on first use, not here.
func New(root string) *Cache {
	return &Cache{Root: root}
}

// Entry is the on-disk layout of one cached (id, version).
type Entry struct {
	ID      pkgid.ID
	Version *semver.Version
	Src     string
	Lib     string
	Tmp     string
}

// Path returns the entry directory for (id, version), populated or not.
func (c *Cache) Path(id pkgid.ID, v *semver.Version) string {
	return filepath.Join(c.Root, string(pkgid.NormalizeID(string(id))), v.String())
}

func (c *Cache) entry(id pkgid.ID, v *semver.Version) Entry {
	dir := c.Path(id, v)
	return Entry{
		ID:      pkgid.NormalizeID(string(id)),
		Version: v,
		Src:     filepath.Join(dir, "src"),
		Lib:     filepath.Join(dir, "lib"),
		Tmp:     filepath.Join(dir, "tmp"),
	}
}

// IntegrityError reports a cache entry whose src/qpm.json does not match
// the (id, version) its path claims to hold (spec §7 CacheIntegrityError).
type IntegrityError struct {
	Path    string
	WantID  pkgid.ID
	WantVer *semver.Version
	GotID   pkgid.ID
	GotVer  string
}

func (e *IntegrityError) Error() string {
	return errors.Errorf(
		"cache entry %s: expected %s@%s, found manifest for %s@%s",
		e.Path, e.WantID, e.WantVer, e.GotID, e.GotVer,
	).Error()
}

// manifestStamp is the minimal shape read back from src/qpm.json to verify
// a cache entry's identity without importing the manifest package, keeping
// cache's dependency surface to just what it needs to check.
type manifestStamp struct {
	Info struct {
		ID      string `json:"id"`
		Version string `json:"version"`
	} `json:"info"`
}

// Populate is supplied by the caller to fill a fresh cache entry: it
// receives the three empty directories and writes the extracted source
// tree into srcDir and, unless headersOnly, the built/fetched libraries
// into libDir. tmpDir is scratch space the populate func may use and which
// the cache discards on failure.
type Populate func(srcDir, libDir, tmpDir string) error

// Ensure returns the cache entry for (id, version), populating it via
// populate if absent. Concurrent callers for the same (id, version) are
// serialized by an advisory file lock; callers for different entries never
// block each other. A populated entry whose src/qpm.json doesn't match
// (id, version) is reported as an IntegrityError rather than silently
// reused or clobbered.
func (c *Cache) Ensure(id pkgid.ID, v *semver.Version, headersOnly bool, populate Populate) (Entry, error) {
	e := c.entry(id, v)

	if err := os.MkdirAll(filepath.Dir(e.Src), 0o755); err != nil {
		return Entry{}, errors.Wrapf(err, "creating cache directory for %s@%s", id, v)
	}

	lockPath := filepath.Join(filepath.Dir(e.Src), ".lock")
	fl := flock.NewFlock(lockPath)
	if err := fl.Lock(); err != nil {
		return Entry{}, errors.Wrapf(err, "locking cache entry for %s@%s", id, v)
	}
	defer fl.Unlock()

	if isSrc, err := fsutil.IsDir(e.Src); err != nil {
		return Entry{}, errors.Wrapf(err, "statting cache entry for %s@%s", id, v)
	} else if isSrc {
		if err := c.verify(e); err != nil {
			return Entry{}, err
		}
		return e, nil
	}

	if err := os.RemoveAll(e.Tmp); err != nil {
		return Entry{}, errors.Wrapf(err, "clearing stale tmp for %s@%s", id, v)
	}
	tmpSrc := filepath.Join(e.Tmp, "src")
	tmpLib := filepath.Join(e.Tmp, "lib")
	tmpScratch := filepath.Join(e.Tmp, "scratch")
	for _, d := range []string{tmpSrc, tmpLib, tmpScratch} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Entry{}, errors.Wrapf(err, "preparing cache staging for %s@%s", id, v)
		}
	}

	if err := populate(tmpSrc, tmpLib, tmpScratch); err != nil {
		os.RemoveAll(e.Tmp)
		return Entry{}, errors.Wrapf(err, "populating cache entry for %s@%s", id, v)
	}

	if err := fsutil.RenameWithFallback(tmpSrc, e.Src); err != nil {
		os.RemoveAll(e.Tmp)
		return Entry{}, errors.Wrapf(err, "finalizing src for %s@%s", id, v)
	}
	if !headersOnly {
		if err := fsutil.RenameWithFallback(tmpLib, e.Lib); err != nil {
			os.RemoveAll(e.Src)
			os.RemoveAll(e.Tmp)
			return Entry{}, errors.Wrapf(err, "finalizing lib for %s@%s", id, v)
		}
	}
	os.RemoveAll(e.Tmp)

	if err := c.verify(e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (c *Cache) verify(e Entry) error {
	manifestPath := filepath.Join(e.Src, "qpm.json")
	b, err := os.ReadFile(manifestPath)
	if err != nil {
		return errors.Wrapf(err, "reading %s", manifestPath)
	}

	var stamp manifestStamp
	if err := json.Unmarshal(b, &stamp); err != nil {
		return errors.Wrapf(err, "parsing %s", manifestPath)
	}

	gotID := pkgid.NormalizeID(stamp.Info.ID)
	if gotID != e.ID || stamp.Info.Version != e.Version.String() {
		return &IntegrityError{
			Path:    e.Src,
			WantID:  e.ID,
			WantVer: e.Version,
			GotID:   gotID,
			GotVer:  stamp.Info.Version,
		}
	}
	return nil
}

// Clear removes every entry from the cache.
func (c *Cache) Clear() error {
	if !fsutil.Exists(c.Root) {
		return nil
	}

	lockPath := filepath.Join(c.Root, ".lock")
	fl := flock.NewFlock(lockPath)
	if err := fl.Lock(); err != nil {
		return errors.Wrap(err, "locking cache root for clear")
	}
	defer os.Remove(lockPath)
	defer fl.Unlock()

	entries, err := os.ReadDir(c.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "reading cache root")
	}
	for _, ent := range entries {
		if ent.Name() == ".lock" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.Root, ent.Name())); err != nil {
			return errors.Wrapf(err, "removing cache entry %s", ent.Name())
		}
	}
	return nil
}

// List walks the cache root to depth 2 (<id>/<version>) and returns every
// populated entry identity found.
func (c *Cache) List() ([]pkgid.Identity, error) {
	var out []pkgid.Identity

	rootInfo, err := os.Stat(c.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "statting cache root")
	}
	if !rootInfo.IsDir() {
		return nil, errors.Errorf("cache root %s is not a directory", c.Root)
	}

	err = godirwalk.Walk(c.Root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			rel, rerr := filepath.Rel(c.Root, path)
			if rerr != nil {
				return rerr
			}
			if rel == "." {
				return nil
			}
			if !de.IsDir() {
				return nil
			}

			parts := strings.Split(filepath.ToSlash(rel), "/")
			if len(parts) > 2 {
				return filepath.SkipDir
			}
			if len(parts) == 2 {
				v, verr := pkgid.ParseVersion(parts[1])
				if verr != nil {
					return filepath.SkipDir
				}
				out = append(out, pkgid.Identity{ID: pkgid.NormalizeID(parts[0]), Version: v})
				return filepath.SkipDir
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking cache root")
	}
	return out, nil
}
