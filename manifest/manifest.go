// Package manifest implements the project manifest (qpm.json) and the
// published per-version manifest: parsing, serialization, and the
// AdditionalData merge rule from spec §9.
//
// The read/write split (a public struct plus a private raw* struct used
// only at the JSON boundary) follows golang-dep's types/manifest.go and
// manifest.go: the public type holds validated, typed data
// (pkgid.Range, *semver.Version); the raw type is the literal camelCase
// JSON shape.
package manifest

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/pkgid"
)

// CompileOptions carries extra compiler wiring a package wants its
// consumers to apply, per spec §3.
type CompileOptions struct {
	IncludePaths   []string
	SystemIncludes []string
	CppFeatures    []string
	CppFlags       []string
	CFlags         []string
}

// AdditionalData is the optional-everything bag shared by packages and
// dependencies (spec §3).
type AdditionalData struct {
	BranchName     string
	HeadersOnly    bool
	StaticLinking  bool
	SoLink         string
	DebugSoLink    string
	OverrideSoName string
	ModLink        string
	ExtraFiles     []string
	SubFolder      string
	LocalPath      string
	UseRelease     bool
	IsPrivate      bool
	CompileOptions *CompileOptions
}

// Merge implements the root-wins-on-scalars, union-on-lists,
// OR-on-isPrivate rule of spec §9 for when the same dependency appears at
// root and transitively. Receiver is the transitively-discovered data;
// root is the root manifest's locally-declared override, which takes
// priority on every scalar field it sets.
func (a AdditionalData) Merge(root AdditionalData) AdditionalData {
	out := a

	if root.BranchName != "" {
		out.BranchName = root.BranchName
	}
	if root.HeadersOnly {
		out.HeadersOnly = root.HeadersOnly
	}
	if root.StaticLinking {
		out.StaticLinking = root.StaticLinking
	}
	if root.SoLink != "" {
		out.SoLink = root.SoLink
	}
	if root.DebugSoLink != "" {
		out.DebugSoLink = root.DebugSoLink
	}
	if root.OverrideSoName != "" {
		out.OverrideSoName = root.OverrideSoName
	}
	if root.ModLink != "" {
		out.ModLink = root.ModLink
	}
	if root.SubFolder != "" {
		out.SubFolder = root.SubFolder
	}
	if root.LocalPath != "" {
		out.LocalPath = root.LocalPath
	}
	if root.UseRelease {
		out.UseRelease = root.UseRelease
	}
	out.IsPrivate = a.IsPrivate || root.IsPrivate
	out.ExtraFiles = unionStrings(a.ExtraFiles, root.ExtraFiles)
	if root.CompileOptions != nil {
		out.CompileOptions = root.CompileOptions
	}

	return out
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// MarshalJSON serializes AdditionalData using the camelCase wire schema.
func (a AdditionalData) MarshalJSON() ([]byte, error) {
	return json.Marshal(fromDomainAdditionalData(a))
}

// UnmarshalJSON parses AdditionalData from the camelCase wire schema.
func (a *AdditionalData) UnmarshalJSON(data []byte) error {
	var raw rawAdditionalData
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	domain, err := raw.toDomain()
	if err != nil {
		return err
	}
	*a = domain
	return nil
}

// SoName returns the artifact filename this AdditionalData implies for the
// given identity, honoring OverrideSoName when set (spec §3).
func (a AdditionalData) SoName(id pkgid.ID, v *semver.Version) string {
	if a.OverrideSoName != "" {
		return a.OverrideSoName
	}
	return pkgid.DefaultArtifactName(id, v, a.StaticLinking)
}

// PackageInfo is the `info` block of a manifest.
type PackageInfo struct {
	ID             pkgid.ID
	Name           string
	Version        *semver.Version
	URL            string
	AdditionalData AdditionalData
}

// Dependency is one entry in a manifest's `dependencies` list. Equality
// and hashing (used by the resolver's dedup logic) are structural over all
// three fields, per spec §3.
type Dependency struct {
	ID             pkgid.ID
	VersionRange   pkgid.Range
	AdditionalData AdditionalData
}

// Manifest is the project/package manifest (qpm.json).
type Manifest struct {
	Info            PackageInfo
	Dependencies    []Dependency
	DependenciesDir string
	SharedDir       string
	AdditionalData  AdditionalData
}

// DependencyByID returns the dependency with the given id, if present.
func (m *Manifest) DependencyByID(id pkgid.ID) (Dependency, bool) {
	for _, d := range m.Dependencies {
		if d.ID == id {
			return d, true
		}
	}
	return Dependency{}, false
}

// --- JSON wire format -------------------------------------------------

type rawCompileOptions struct {
	IncludePaths   []string `json:"includePaths,omitempty"`
	SystemIncludes []string `json:"systemIncludes,omitempty"`
	CppFeatures    []string `json:"cppFeatures,omitempty"`
	CppFlags       []string `json:"cppFlags,omitempty"`
	CFlags         []string `json:"cFlags,omitempty"`
}

type rawAdditionalData struct {
	BranchName     string             `json:"branchName,omitempty"`
	HeadersOnly    bool               `json:"headersOnly,omitempty"`
	StaticLinking  bool               `json:"staticLinking,omitempty"`
	SoLink         string             `json:"soLink,omitempty"`
	DebugSoLink    string             `json:"debugSoLink,omitempty"`
	OverrideSoName string             `json:"overrideSoName,omitempty"`
	ModLink        string             `json:"modLink,omitempty"`
	QmodLink       string             `json:"qmodLink,omitempty"`
	ExtraFiles     []string           `json:"extraFiles,omitempty"`
	SubFolder      string             `json:"subFolder,omitempty"`
	LocalPath      string             `json:"localPath,omitempty"`
	UseRelease     bool               `json:"useRelease,omitempty"`
	IsPrivate      bool               `json:"isPrivate,omitempty"`
	CompileOptions *rawCompileOptions `json:"compileOptions,omitempty"`
}

func (r rawAdditionalData) toDomain() (AdditionalData, error) {
	a := AdditionalData{
		BranchName:     r.BranchName,
		HeadersOnly:    r.HeadersOnly,
		StaticLinking:  r.StaticLinking,
		SoLink:         r.SoLink,
		DebugSoLink:    r.DebugSoLink,
		OverrideSoName: r.OverrideSoName,
		// Accept both link field spellings on read; ModLink wins if both
		// happen to be set, per spec §9's open question.
		ModLink:    firstNonEmpty(r.ModLink, r.QmodLink),
		ExtraFiles: r.ExtraFiles,
		SubFolder:  r.SubFolder,
		LocalPath:  r.LocalPath,
		UseRelease: r.UseRelease,
		IsPrivate:  r.IsPrivate,
	}
	if r.CompileOptions != nil {
		a.CompileOptions = &CompileOptions{
			IncludePaths:   r.CompileOptions.IncludePaths,
			SystemIncludes: r.CompileOptions.SystemIncludes,
			CppFeatures:    r.CompileOptions.CppFeatures,
			CppFlags:       r.CompileOptions.CppFlags,
			CFlags:         r.CompileOptions.CFlags,
		}
	}
	return a, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fromDomainAdditionalData(a AdditionalData) rawAdditionalData {
	r := rawAdditionalData{
		BranchName:     a.BranchName,
		HeadersOnly:    a.HeadersOnly,
		StaticLinking:  a.StaticLinking,
		SoLink:         a.SoLink,
		DebugSoLink:    a.DebugSoLink,
		OverrideSoName: a.OverrideSoName,
		// Never emit both modLink and qmodLink, per spec §9.
		ModLink:    a.ModLink,
		ExtraFiles: a.ExtraFiles,
		SubFolder:  a.SubFolder,
		LocalPath:  a.LocalPath,
		UseRelease: a.UseRelease,
		IsPrivate:  a.IsPrivate,
	}
	if a.CompileOptions != nil {
		r.CompileOptions = &rawCompileOptions{
			IncludePaths:   a.CompileOptions.IncludePaths,
			SystemIncludes: a.CompileOptions.SystemIncludes,
			CppFeatures:    a.CompileOptions.CppFeatures,
			CppFlags:       a.CompileOptions.CppFlags,
			CFlags:         a.CompileOptions.CFlags,
		}
	}
	return r
}

type rawPackageInfo struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Version        string            `json:"version"`
	URL            string            `json:"url,omitempty"`
	AdditionalData rawAdditionalData `json:"additionalData,omitempty"`
}

type rawDependency struct {
	ID             string            `json:"id"`
	VersionRange   string            `json:"versionRange"`
	AdditionalData rawAdditionalData `json:"additionalData,omitempty"`
}

type rawManifest struct {
	Info            rawPackageInfo  `json:"info"`
	Dependencies    []rawDependency `json:"dependencies,omitempty"`
	DependenciesDir string          `json:"dependenciesDir,omitempty"`
	SharedDir       string          `json:"sharedDir,omitempty"`
	AdditionalData  rawAdditionalData `json:"additionalData,omitempty"`
}

// Parse reads a manifest from JSON. Unknown fields are ignored (the
// encoding/json default); absent optional fields round-trip as zero
// values, matching spec §4.4.
func Parse(r io.Reader) (*Manifest, error) {
	var raw rawManifest
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	return raw.toDomain()
}

func (raw rawManifest) toDomain() (*Manifest, error) {
	m := &Manifest{
		DependenciesDir: raw.DependenciesDir,
		SharedDir:       raw.SharedDir,
	}

	var err error
	m.Info.ID = pkgid.NormalizeID(raw.Info.ID)
	m.Info.Name = raw.Info.Name
	m.Info.URL = raw.Info.URL
	m.Info.Version, err = pkgid.ParseVersion(raw.Info.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "package %s", raw.Info.ID)
	}
	m.Info.AdditionalData, err = raw.Info.AdditionalData.toDomain()
	if err != nil {
		return nil, err
	}

	m.AdditionalData, err = raw.AdditionalData.toDomain()
	if err != nil {
		return nil, err
	}

	for _, rd := range raw.Dependencies {
		d := Dependency{ID: pkgid.NormalizeID(rd.ID)}
		d.VersionRange, err = pkgid.ParseRange(rd.VersionRange)
		if err != nil {
			return nil, errors.Wrapf(err, "dependency %s", rd.ID)
		}
		d.AdditionalData, err = rd.AdditionalData.toDomain()
		if err != nil {
			return nil, err
		}
		m.Dependencies = append(m.Dependencies, d)
	}

	return m, nil
}

func (m *Manifest) toRaw() rawManifest {
	raw := rawManifest{
		Info: rawPackageInfo{
			ID:             string(m.Info.ID),
			Name:           m.Info.Name,
			URL:            m.Info.URL,
			AdditionalData: fromDomainAdditionalData(m.Info.AdditionalData),
		},
		DependenciesDir: m.DependenciesDir,
		SharedDir:       m.SharedDir,
		AdditionalData:  fromDomainAdditionalData(m.AdditionalData),
	}
	if m.Info.Version != nil {
		raw.Info.Version = m.Info.Version.String()
	}

	for _, d := range m.Dependencies {
		raw.Dependencies = append(raw.Dependencies, rawDependency{
			ID:             string(d.ID),
			VersionRange:   d.VersionRange.String(),
			AdditionalData: fromDomainAdditionalData(d.AdditionalData),
		})
	}

	return raw
}

// MarshalJSON pretty-prints the manifest, matching spec §4.4: "Writes are
// pretty-printed."
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m.toRaw()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Write writes the manifest's full JSON to w. It is never a merge, per
// spec §4.4.
func Write(w io.Writer, m *Manifest) error {
	b, err := m.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
