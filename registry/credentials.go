package registry

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// FileCredentialStore is an optional convenience CredentialStore that
// reads a single registry token from a TOML file, the same shape
// golang-dep's registry_config.go used for its `Gopkg.reg`:
//
//	[registry]
//	url = "https://pkgs.example.com"
//	token = "..."
//
// It is not wired into any core command — the Credential Store is an
// external collaborator per spec §6 — but it saves every embedder from
// reinventing a file-backed store, and it is the one the corpus's own
// pattern for this exact problem already solved.
type FileCredentialStore struct {
	token string
}

type rawCredFile struct {
	Registry struct {
		URL   string `toml:"url"`
		Token string `toml:"token"`
	} `toml:"registry"`
}

// LoadFileCredentialStore reads and parses path.
func LoadFileCredentialStore(path string) (*FileCredentialStore, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading credential file %s", path)
	}

	var raw rawCredFile
	if err := toml.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing credential file %s as TOML", path)
	}

	return &FileCredentialStore{token: raw.Registry.Token}, nil
}

// Token implements CredentialStore.
func (f *FileCredentialStore) Token() (string, bool) {
	return f.token, f.token != ""
}
