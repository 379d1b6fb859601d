// Package fetcher implements the Fetcher (spec §4.2): git clone and zip
// download/extract for package sources, and artifact download (including
// GitHub release asset resolution) for prebuilt binaries.
//
// The git-clone mechanics (shelling out with os/exec, classifying the
// failure via github.com/Masterminds/vcs's error helpers) are adapted from
// golang-dep's vcs_repo.go gitRepo.Get/Update, trimmed to what spec §4.2
// actually asks for: a single shallow, single-branch, submodule-recursive,
// quiet clone, not the full fetch/pull/submodule-defense lifecycle a
// long-lived vendor checkout needs.
package fetcher

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/internal/redact"
)

// CredentialStore supplies an optional token used for git and HTTP
// credential injection. Reusing the same shape the registry client
// consumes keeps there being exactly one "what's my token" question asked
// across the whole tool.
type CredentialStore interface {
	Token() (token string, ok bool)
}

// Fetcher performs the network I/O component C2 owns.
type Fetcher struct {
	HTTP        *http.Client
	Credentials CredentialStore
}

// New builds a Fetcher. A nil http.Client gets http.DefaultClient.
func New(httpClient *http.Client, creds CredentialStore) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{HTTP: httpClient, Credentials: creds}
}

// FetchError wraps a git or HTTP failure obtaining a source tree or
// artifact, with the URL redacted per spec §7.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause) }
func (e *FetchError) Unwrap() error { return e.Cause }

func (f *Fetcher) newFetchError(rawURL string, cause error) *FetchError {
	return &FetchError{URL: redact.URL(rawURL, f.token()), Cause: cause}
}

func (f *Fetcher) token() string {
	if f.Credentials == nil {
		return ""
	}
	t, _ := f.Credentials.Token()
	return t
}

// CloneGit performs a shallow (depth=1), single-branch, submodule-recursive,
// quiet clone of url into the empty directory dir. If branch is empty, the
// remote's default branch is used. If a credential is configured, it is
// injected into the URL as `https://<token>@...` and never appears in any
// returned error (spec §4.2).
func (f *Fetcher) CloneGit(ctx context.Context, url, branch, dir string) error {
	cloneURL := url
	if tok, ok := f.credToken(); ok {
		var err error
		cloneURL, err = injectToken(url, tok)
		if err != nil {
			return f.newFetchError(url, err)
		}
	}

	args := []string{"clone", "--depth", "1", "--single-branch", "--recurse-submodules", "-q"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, cloneURL, dir)

	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		redactedOut := redact.Token(string(out), f.token())
		return f.newFetchError(url, vcs.NewRemoteError("unable to clone repository", err, redactedOut))
	}
	return nil
}

func (f *Fetcher) credToken() (string, bool) {
	if f.Credentials == nil {
		return "", false
	}
	return f.Credentials.Token()
}

// injectToken rewrites url to carry tok as basic-auth-style userinfo, the
// standard way to authenticate an HTTPS git remote.
func injectToken(rawURL, tok string) (string, error) {
	if !strings.HasPrefix(rawURL, "https://") {
		return rawURL, nil
	}
	return "https://" + tok + "@" + strings.TrimPrefix(rawURL, "https://"), nil
}

// DownloadArtifact GETs url into outFile. If url is a GitHub release
// download link and a credential is configured, the link is first
// rewritten through the GitHub API to the matching release asset and
// fetched with an octet-stream Accept header and the credential injected
// (spec §4.2); otherwise the raw URL is fetched directly.
func (f *Fetcher) DownloadArtifact(ctx context.Context, url, outFile string) error {
	downloadURL := url
	headers := map[string]string{}

	if tok, ok := f.credToken(); ok {
		if m := githubReleaseDownload.FindStringSubmatch(url); m != nil {
			assetURL, err := f.resolveGitHubAsset(ctx, m, tok)
			if err != nil {
				return f.newFetchError(url, err)
			}
			downloadURL = assetURL
			headers["Accept"] = "application/octet-stream"
			headers["Authorization"] = "token " + tok
		}
	}

	return f.download(ctx, downloadURL, outFile, headers)
}

// githubReleaseDownload matches
// https://github.com/<owner>/<repo>/releases/download/<tag>/<asset>
var githubReleaseDownload = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)/releases/download/([^/]+)/([^/]+)$`)

type githubAsset struct {
	Name               string `json:"name"`
	URL                string `json:"url"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

type githubRelease struct {
	Assets []githubAsset `json:"assets"`
}

func (f *Fetcher) resolveGitHubAsset(ctx context.Context, m []string, tok string) (string, error) {
	owner, repo, tag, assetName := m[1], m[2], m[3], m[4]
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/tags/%s", owner, repo, tag)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "token "+tok)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("github api %s: status %d", apiURL, resp.StatusCode)
	}

	var rel githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", errors.Wrap(err, "decoding github release")
	}

	for _, a := range rel.Assets {
		if a.Name == assetName {
			return a.URL, nil
		}
	}
	return "", errors.Errorf("no asset named %q in release %s/%s@%s", assetName, owner, repo, tag)
}

func (f *Fetcher) download(ctx context.Context, url, outFile string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return f.newFetchError(url, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return f.newFetchError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return f.newFetchError(url, errors.Errorf("status %d", resp.StatusCode))
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		return f.newFetchError(url, err)
	}

	out, err := os.Create(outFile)
	if err != nil {
		return f.newFetchError(url, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return f.newFetchError(url, err)
	}
	return nil
}

// ExtractZip extracts the zip archive at zipPath into destDir, preserving
// relative paths. When subFolder is non-empty, only entries beneath it are
// extracted, re-rooted at destDir, matching spec §4.2's subFolder rule.
func ExtractZip(zipPath, destDir, subFolder string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return errors.Wrapf(err, "opening zip %s", zipPath)
	}
	defer r.Close()

	prefix := ""
	if subFolder != "" {
		prefix = strings.TrimSuffix(subFolder, "/") + "/"
	}

	for _, zf := range r.File {
		name := zf.Name
		if prefix != "" {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			name = strings.TrimPrefix(name, prefix)
			if name == "" {
				continue
			}
		}

		target := filepath.Join(destDir, filepath.FromSlash(name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(filepath.Separator)) {
			return errors.Errorf("zip entry %q escapes destination", zf.Name)
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		if err := extractZipFile(zf, target); err != nil {
			return errors.Wrapf(err, "extracting %s", zf.Name)
		}
	}

	return nil
}

func extractZipFile(zf *zip.File, target string) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, zf.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
