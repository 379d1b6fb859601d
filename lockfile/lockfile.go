// Package lockfile implements the resolved-graph lockfile
// (qpm.shared.json): SharedPackageConfig, its JSON I/O, and the invariant
// checks spec §3 and §8 require of it.
//
// Structurally this mirrors golang-dep's lock.go (a public Lock type plus
// a rawLock JSON shape, hex/string conversions kept out of the domain
// type), generalized from "a VCS revision per project" to "a semver
// version per resolved dependency".
package lockfile

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

// ResolvedDependency pairs a Dependency with the concrete version the
// resolver picked for it (spec §3).
type ResolvedDependency struct {
	Dependency manifest.Dependency
	Version    *semver.Version
}

// SharedPackageConfig is the lockfile: the project's manifest plus the
// full resolved set, per spec §3.
type SharedPackageConfig struct {
	Config               manifest.Manifest
	RestoredDependencies []ResolvedDependency
}

// ByID looks up a resolved dependency by package id.
func (s *SharedPackageConfig) ByID(id pkgid.ID) (ResolvedDependency, bool) {
	for _, rd := range s.RestoredDependencies {
		if rd.Dependency.ID == id {
			return rd, true
		}
	}
	return ResolvedDependency{}, false
}

// CheckInvariants validates that every direct, non-private dependency of
// Config appears in RestoredDependencies. It does not check whether
// entries that arrived transitively through a private dependency were
// excluded: the lockfile does not record how an entry was reached.
func (s *SharedPackageConfig) CheckInvariants() error {
	for _, d := range s.Config.Dependencies {
		if d.AdditionalData.IsPrivate {
			continue
		}
		if _, ok := s.ByID(d.ID); !ok {
			return errors.Errorf("lockfile invariant violated: direct dependency %s missing from restoredDependencies", d.ID)
		}
	}
	return nil
}

// --- JSON wire format -------------------------------------------------

type rawResolvedDependency struct {
	Dependency struct {
		ID             string                       `json:"id"`
		VersionRange   string                       `json:"versionRange"`
		AdditionalData json.RawMessage              `json:"additionalData,omitempty"`
	} `json:"dependency"`
	Version string `json:"version"`
}

type rawSharedPackageConfig struct {
	Config               json.RawMessage          `json:"config"`
	RestoredDependencies []rawResolvedDependency  `json:"restoredDependencies"`
}

// Parse reads a lockfile from JSON.
func Parse(r io.Reader) (*SharedPackageConfig, error) {
	var raw rawSharedPackageConfig
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parsing lockfile")
	}

	cfg, err := manifest.Parse(bytes.NewReader(raw.Config))
	if err != nil {
		return nil, errors.Wrap(err, "parsing lockfile's embedded manifest")
	}

	s := &SharedPackageConfig{Config: *cfg}
	for _, rrd := range raw.RestoredDependencies {
		var ad manifest.AdditionalData
		if len(rrd.Dependency.AdditionalData) > 0 {
			if err := json.Unmarshal(rrd.Dependency.AdditionalData, &ad); err != nil {
				return nil, errors.Wrapf(err, "parsing additionalData for %s", rrd.Dependency.ID)
			}
		}

		versionRange, err := pkgid.ParseRange(rrd.Dependency.VersionRange)
		if err != nil {
			return nil, errors.Wrapf(err, "restored dependency %s", rrd.Dependency.ID)
		}
		version, err := pkgid.ParseVersion(rrd.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "restored dependency %s version", rrd.Dependency.ID)
		}

		s.RestoredDependencies = append(s.RestoredDependencies, ResolvedDependency{
			Dependency: manifest.Dependency{
				ID:             pkgid.NormalizeID(rrd.Dependency.ID),
				VersionRange:   versionRange,
				AdditionalData: ad,
			},
			Version: version,
		})
	}

	return s, nil
}

// MarshalJSON pretty-prints the lockfile.
func (s *SharedPackageConfig) MarshalJSON() ([]byte, error) {
	cfgBytes, err := s.Config.MarshalJSON()
	if err != nil {
		return nil, err
	}

	raw := struct {
		Config               json.RawMessage `json:"config"`
		RestoredDependencies []struct {
			Dependency json.RawMessage `json:"dependency"`
			Version    string          `json:"version"`
		} `json:"restoredDependencies"`
	}{Config: cfgBytes}

	for _, rd := range s.RestoredDependencies {
		depJSON, err := json.Marshal(struct {
			ID             string                  `json:"id"`
			VersionRange   string                  `json:"versionRange"`
			AdditionalData manifest.AdditionalData `json:"additionalData,omitempty"`
		}{
			ID:             string(rd.Dependency.ID),
			VersionRange:   rd.Dependency.VersionRange.String(),
			AdditionalData: rd.Dependency.AdditionalData,
		})
		if err != nil {
			return nil, err
		}
		raw.RestoredDependencies = append(raw.RestoredDependencies, struct {
			Dependency json.RawMessage `json:"dependency"`
			Version    string          `json:"version"`
		}{Dependency: depJSON, Version: rd.Version.String()})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(raw); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Write performs a full overwrite with the lockfile's JSON.
func Write(w io.Writer, s *SharedPackageConfig) error {
	b, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
