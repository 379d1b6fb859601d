// Package fsutil collects the filesystem primitives qpm's cache and
// materializer need: existence checks, an atomic-rename-with-copy-fallback
// used to populate the cache without leaving partial state visible, and a
// symlink-with-copy-fallback used to project cache entries into a project.
//
// The rename/copy logic is adapted from golang-dep's internal fs helpers
// (fs.go's renameWithFallback/CopyDir/CopyFile), generalized from "vendor
// tree" semantics to qpm's "cache entry" and "materialized dependency"
// semantics.
package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/pkg/errors"
	"github.com/termie/go-shutil"
)

// IsRegular reports whether name exists and is a regular file.
func IsRegular(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if fi.IsDir() {
		return false, errors.Errorf("%q is a directory, expected a file", name)
	}
	return true, nil
}

// IsDir reports whether name exists and is a directory.
func IsDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

// Exists reports whether name exists at all (file, dir, or symlink).
func Exists(name string) bool {
	_, err := os.Lstat(name)
	return err == nil
}

// RenameWithFallback attempts to rename src to dest, falling back to a
// recursive copy (then removing src) when the rename fails because src and
// dest live on different devices. This is how cache population moves a
// completed tmp/ fetch into its final src/ or lib/ location atomically
// within one filesystem, without failing outright across filesystems.
func RenameWithFallback(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return errors.Wrapf(err, "lstat %s", src)
	}

	if runtime.GOOS == "windows" && fi.IsDir() {
		if err := CopyDir(src, dest); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}

	err = os.Rename(src, dest)
	if err == nil {
		return nil
	}

	lerr, ok := err.(*os.LinkError)
	if !ok {
		return errors.Wrapf(err, "rename %s -> %s", src, dest)
	}

	if lerr.Err != syscall.EXDEV {
		return errors.Wrapf(lerr, "rename %s -> %s", src, dest)
	}

	var cerr error
	if fi.IsDir() {
		cerr = CopyDir(src, dest)
	} else {
		cerr = CopyFile(src, dest)
	}
	if cerr != nil {
		return errors.Wrapf(cerr, "fallback copy %s -> %s", src, dest)
	}

	return os.RemoveAll(src)
}

// CopyDir recursively copies src into dest, preserving file modes. Symlinks
// in src are not followed, matching golang-dep's CopyDir: the cache is
// expected to hold plain trees, never symlinks into itself. dest must not
// already exist, the same precondition shutil.CopyTree itself enforces;
// SymlinkOrCopy removes a stale dest first, RenameWithFallback does not.
func CopyDir(src, dest string) error {
	return errors.Wrapf(shutil.CopyTree(src, dest, nil), "copying tree %s -> %s", src, dest)
}

// CopyFile copies a single file, preserving its mode bits. Symlinks are
// followed rather than recreated, matching the cache's plain-tree assumption.
func CopyFile(src, dest string) error {
	return errors.Wrapf(shutil.CopyFile(src, dest, false), "copying file %s -> %s", src, dest)
}

// SymlinkOrCopy creates dest as a symlink to src, after removing anything
// already at dest. If the symlink cannot be created (permissions, a
// filesystem that forbids unprivileged links) or preferCopy is set, it
// makes a recursive copy instead. This is the single choke point the
// materializer uses for the "symlink default, copy fallback" projection
// rule in spec §4.6.
func SymlinkOrCopy(src, dest string, preferCopy bool) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent dir for %s", dest)
	}

	// An existing entry at dest must be removed first: re-running
	// materialization on an unchanged lockfile must be idempotent, but a
	// stale symlink or copy from a previous run (pointing at a different
	// cache entry) must not linger.
	if Exists(dest) {
		if err := os.RemoveAll(dest); err != nil {
			return errors.Wrapf(err, "removing stale entry at %s", dest)
		}
	}

	if !preferCopy {
		if err := trySymlink(src, dest); err == nil {
			return nil
		}
	}

	return copyAny(src, dest)
}

func trySymlink(src, dest string) error {
	return os.Symlink(src, dest)
}

func copyAny(src, dest string) error {
	isDir, err := IsDir(src)
	if err != nil {
		return err
	}
	if isDir {
		return CopyDir(src, dest)
	}
	return CopyFile(src, dest)
}
