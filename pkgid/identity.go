// Package pkgid defines the identity and versioning primitives shared by
// every other qpm package: the (id, version) pair that keys the cache, the
// manifest, and the lockfile, and the version-range language used to
// express dependency constraints.
//
// Version handling is grounded on golang-dep's constraints.go, which also
// builds on Masterminds/semver. Versions are plain *semver.Version values,
// and ParseVersion rejects any input that is not strict semver.
package pkgid

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// ID is a package identifier: a lowercased, dot-separated reverse-DNS-style
// string. Equality and map keys are case-insensitive by construction —
// callers must always go through NormalizeID before comparing or storing.
type ID string

// NormalizeID lowercases an identifier so that comparisons and map lookups
// are case-insensitive, per spec §3's "treated case-insensitively for
// equality".
func NormalizeID(s string) ID {
	return ID(strings.ToLower(s))
}

// Identity pairs a package ID with a concrete version.
type Identity struct {
	ID      ID
	Version *semver.Version
}

func (i Identity) String() string {
	if i.Version == nil {
		return string(i.ID)
	}
	return string(i.ID) + "@" + i.Version.String()
}

// Equal reports whether two identities name the same package at the same
// version.
func (i Identity) Equal(o Identity) bool {
	if i.ID != o.ID {
		return false
	}
	if i.Version == nil || o.Version == nil {
		return i.Version == o.Version
	}
	return i.Version.Equal(o.Version)
}

// ParseVersion parses a strict semver triple (major.minor.patch[-pre]), as
// required for every version field in the manifest and lockfile (spec
// §4.4: "Version fields parse strictly as semver").
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing version %q", s)
	}
	return v, nil
}

// DefaultArtifactName computes the deterministic prebuilt-artifact filename
// for a package, per spec §3: lib{id}_{major}_{minor}_{patch}.{so|a},
// unless overridden.
func DefaultArtifactName(id ID, v *semver.Version, staticLinking bool) string {
	ext := "so"
	if staticLinking {
		ext = "a"
	}
	return "lib" + string(id) + "_" + versionUnderscored(v) + "." + ext
}

func versionUnderscored(v *semver.Version) string {
	return strings.Join([]string{
		strconv.FormatInt(int64(v.Major()), 10),
		strconv.FormatInt(int64(v.Minor()), 10),
		strconv.FormatInt(int64(v.Patch()), 10),
	}, "_")
}
