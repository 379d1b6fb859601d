// Package settings implements the user-configurable knobs qpm reads at
// startup (spec §5): cache location, symlink-vs-copy preference, network
// timeout, and the NDK toolchain path.
//
// The JSON-file-backed store follows the same camelCase, pretty-printed,
// full-overwrite convention as manifest.Manifest, and the load/save shape
// is grounded on golang-dep's cache lock/config file handling in
// context.go, adapted from a project-scoped Gopkg config to a single
// user-scoped settings file.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Settings is qpm's full set of user-configurable knobs.
type Settings struct {
	CacheDir      string `json:"cacheDir"`
	UseSymlink    bool   `json:"useSymlink"`
	TimeoutMillis int    `json:"timeoutMillis"`
	NDKPath       string `json:"ndkPath,omitempty"`
	RegistryURL   string `json:"registryUrl,omitempty"`
}

// Default returns the baseline settings a fresh install starts from:
// cache under the user's home directory, symlinking preferred, a generous
// 30s network timeout, and no NDK path (the caller must supply one before
// running a build).
func Default() Settings {
	home, _ := os.UserHomeDir()
	return Settings{
		CacheDir:      filepath.Join(home, ".qpm", "cache"),
		UseSymlink:    true,
		TimeoutMillis: 30_000,
	}
}

// Store reads and writes a Settings value to a fixed path.
type Store interface {
	Load() (Settings, error)
	Save(Settings) error
}

// JSONSettingsStore is the default Store: a single pretty-printed JSON
// file. Missing fields on read fall back to Default(), and Load on a
// missing file returns Default() rather than erroring, so a first run
// never needs a setup step.
type JSONSettingsStore struct {
	Path string
}

// NewJSONSettingsStore builds a store rooted at path.
func NewJSONSettingsStore(path string) *JSONSettingsStore {
	return &JSONSettingsStore{Path: path}
}

// Load reads settings from disk, or returns Default() if the file doesn't
// exist yet.
func (s *JSONSettingsStore) Load() (Settings, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Settings{}, errors.Wrapf(err, "reading settings file %s", s.Path)
	}

	out := Default()
	if err := json.Unmarshal(b, &out); err != nil {
		return Settings{}, errors.Wrapf(err, "parsing settings file %s", s.Path)
	}
	return out, nil
}

// Save writes settings to disk, pretty-printed, fully overwriting any
// prior contents (the same full-overwrite convention manifest.Write uses).
func (s *JSONSettingsStore) Save(settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return errors.Wrapf(err, "creating settings directory for %s", s.Path)
	}

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(settings); err != nil {
		return errors.Wrap(err, "marshaling settings")
	}

	return os.WriteFile(s.Path, []byte(strings.TrimSuffix(buf.String(), "\n")+"\n"), 0o644)
}
