// Package moddesc implements the Deployable-Module Synthesizer (spec
// §4.8): folding a resolved dependency graph into the mod.json descriptor
// a mod loader reads to install a mod and whatever it needs alongside it.
//
// The JSON shape follows the same raw/domain split manifest.Manifest
// uses, and the optional mod.template.<ext> substitution step is grounded
// on golang-dep's cmd/dep/root.go template-style placeholder replacement
// used when scaffolding a new Gopkg.toml from a user-supplied skeleton.
package moddesc

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
	"github.com/StackDoubleFlow/qpm/resolve"
)

// SchemaVersion is written to every descriptor's _QPVersion field.
const SchemaVersion = "0.1.2"

// Classification is how a resolved dependency is folded into mod.json.
type Classification int

const (
	// Dropped dependencies contribute nothing to the descriptor: they are
	// headers-only, statically linked into the mod binary already, or are
	// the modloader itself.
	Dropped Classification = iota
	// DownloadableMod dependencies are themselves installable mods the
	// target mod loader must fetch and install (ModLink/QmodLink set).
	DownloadableMod
	// BundledLibrary dependencies are shared libraries copied alongside
	// the mod binary for the mod loader to load at runtime.
	BundledLibrary
)

// Classify decides how a resolved dependency should be represented in the
// synthesized descriptor, per spec §4.8.
func Classify(id pkgid.ID, ad manifest.AdditionalData, modloaderID pkgid.ID) Classification {
	if id == modloaderID {
		return Dropped
	}
	if ad.HeadersOnly {
		return Dropped
	}
	if ad.StaticLinking {
		return Dropped
	}
	if ad.ModLink != "" {
		return DownloadableMod
	}
	return BundledLibrary
}

// ModDependency is one downloadable-mod entry in mod.json.
type ModDependency struct {
	ID           string `json:"id"`
	Version      string `json:"version"`
	DownloadLink string `json:"downloadIfMissing,omitempty"`
}

// Descriptor is the domain shape of mod.json.
type Descriptor struct {
	SchemaVersion  string          `json:"_QPVersion"`
	Name           string          `json:"name"`
	ID             string          `json:"id"`
	Author         string          `json:"author,omitempty"`
	Description    string          `json:"description,omitempty"`
	CoverImage     string          `json:"coverImage,omitempty"`
	Version        string          `json:"version"`
	PackageID      string          `json:"packageId"`
	PackageVersion string          `json:"packageVersion"`
	ModLoader      string          `json:"modloader"`
	ModFiles       []string        `json:"modFiles,omitempty"`
	LibraryFiles   []string        `json:"libraryFiles,omitempty"`
	Dependencies   []ModDependency `json:"dependencies,omitempty"`
}

// Synthesize folds root plus the resolved selections into a Descriptor.
// additionalData supplies each selection's collapsed AdditionalData, the
// shape resolve.Collapse produces.
func Synthesize(
	root *manifest.Manifest,
	selections []resolve.Selection,
	additionalData map[pkgid.ID]manifest.AdditionalData,
	modloaderID pkgid.ID,
	modFiles []string,
) *Descriptor {
	d := &Descriptor{
		SchemaVersion:  SchemaVersion,
		Name:           root.Info.Name,
		ID:             string(root.Info.ID),
		Version:        root.Info.Version.String(),
		PackageID:      string(root.Info.ID),
		PackageVersion: root.Info.Version.String(),
		ModLoader:      string(modloaderID),
		ModFiles:       modFiles,
	}

	for _, s := range selections {
		if s.ID == pkgid.NormalizeID(string(root.Info.ID)) {
			continue
		}
		ad := additionalData[s.ID]

		switch Classify(s.ID, ad, modloaderID) {
		case DownloadableMod:
			link := ad.ModLink
			d.Dependencies = append(d.Dependencies, ModDependency{
				ID:           string(s.ID),
				Version:      s.Version.String(),
				DownloadLink: link,
			})
		case BundledLibrary:
			name := ad.OverrideSoName
			if name == "" {
				name = ad.SoName(s.ID, s.Version)
			}
			d.LibraryFiles = append(d.LibraryFiles, name)
		case Dropped:
			// contributes nothing
		}
	}

	return d
}

// MarshalJSON renders d pretty-printed, matching manifest's formatting.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	type alias Descriptor
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode((*alias)(d)); err != nil {
		return nil, errors.Wrap(err, "marshaling mod descriptor")
	}
	return []byte(strings.TrimSuffix(buf.String(), "\n")), nil
}

// substitutions maps the template placeholders spec §4.8 names to the
// values pulled from the synthesized descriptor.
func substitutions(d *Descriptor) *strings.Replacer {
	return strings.NewReplacer(
		"${version}", d.Version,
		"${mod_id}", d.ID,
		"${mod_name}", d.Name,
	)
}

// ApplyTemplate substitutes placeholders into templateJSON, then merges
// the synthesized descriptor into it: scalar fields the template sets
// explicitly are preserved (author-provided metadata like description or
// coverImage), every other scalar field is taken from the synthesis, and
// array fields are merged by appending the synthesized entries after
// whatever the template already listed (spec §4.8).
func ApplyTemplate(templateJSON []byte, d *Descriptor) ([]byte, error) {
	substituted := substitutions(d).Replace(string(templateJSON))

	var base map[string]json.RawMessage
	if err := json.Unmarshal([]byte(substituted), &base); err != nil {
		return nil, errors.Wrap(err, "parsing mod.template")
	}

	synthBytes, err := json.Marshal((*descriptorAlias)(d))
	if err != nil {
		return nil, errors.Wrap(err, "marshaling synthesized descriptor")
	}
	var synth map[string]json.RawMessage
	if err := json.Unmarshal(synthBytes, &synth); err != nil {
		return nil, errors.Wrap(err, "re-parsing synthesized descriptor")
	}

	merged := map[string]json.RawMessage{}
	for k, v := range base {
		merged[k] = v
	}

	for k, sv := range synth {
		bv, present := base[k]
		if !present {
			merged[k] = sv
			continue
		}

		var sArr, bArr []json.RawMessage
		isSArr := json.Unmarshal(sv, &sArr) == nil
		isBArr := json.Unmarshal(bv, &bArr) == nil
		if isSArr && isBArr {
			combined := append(append([]json.RawMessage{}, bArr...), sArr...)
			out, err := json.Marshal(combined)
			if err != nil {
				return nil, errors.Wrapf(err, "merging array field %q", k)
			}
			merged[k] = out
			continue
		}

		// Scalar: the template's author-provided value wins.
		merged[k] = bv
	}

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(merged); err != nil {
		return nil, errors.Wrap(err, "marshaling merged mod descriptor")
	}
	return []byte(strings.TrimSuffix(buf.String(), "\n")), nil
}

type descriptorAlias Descriptor
