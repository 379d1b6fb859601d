// Package registry implements the Registry Client (spec §4.1): versioned
// lookup and publish against a remote package registry, with in-process
// memoization of the two GET endpoints.
//
// The shape — a Client holding a base URL and an http.Client, methods that
// build a request, set headers, and decode a JSON response — is grounded
// on golang-dep's cmd/dep/publish.go execUploadFile: url.Parse + path.Join
// to build the endpoint, an Authorization header, github.com/pkg/errors
// for failure wrapping, and http.StatusText for a human status line.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/internal/redact"
	"github.com/StackDoubleFlow/qpm/lockfile"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

// CredentialStore is the external collaborator (spec §6) that supplies an
// opaque registry token. qpm only ever reads from it through this
// interface; how the token is stored (OS keychain, file, env var) is out
// of scope.
type CredentialStore interface {
	// Token returns the configured registry credential, if any.
	Token() (token string, ok bool)
}

// NoCredentials is a CredentialStore that never has a token.
type NoCredentials struct{}

func (NoCredentials) Token() (string, bool) { return "", false }

// UserAgent is sent on every request, per spec §6.
const UserAgent = "questpackagemanager-rust/0.1.0"

// Client talks to the registry HTTP API described in spec §4.1 and §6.
type Client struct {
	BaseURL     string
	HTTP        *http.Client
	Credentials CredentialStore

	memo sync.Map // request URL -> cached decoded response; errors are not cached
}

// NewClient builds a Client with the given base URL and request timeout,
// matching the single user-configured timeout from spec §5.
func NewClient(baseURL string, timeout time.Duration, creds CredentialStore) *Client {
	if creds == nil {
		creds = NoCredentials{}
	}
	return &Client{
		BaseURL:     baseURL,
		HTTP:        &http.Client{Timeout: timeout},
		Credentials: creds,
	}
}

// versionEntry is one element of the `listVersions` response.
type versionEntry struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// ListVersions fetches every published version of id, newest first as
// surfaced by the registry, per spec §4.1.
func (c *Client) ListVersions(ctx context.Context, id pkgid.ID) ([]pkgid.Identity, error) {
	u := c.endpoint(string(id)) + "?limit=0"

	if cached, ok := c.memo.Load(u); ok {
		return cloneIdentities(cached.([]pkgid.Identity)), nil
	}

	var entries []versionEntry
	if err := c.getJSON(ctx, u, &entries); err != nil {
		return nil, err
	}

	out := make([]pkgid.Identity, 0, len(entries))
	for _, e := range entries {
		v, err := pkgid.ParseVersion(e.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "registry returned invalid version for %s", id)
		}
		out = append(out, pkgid.Identity{ID: pkgid.NormalizeID(e.ID), Version: v})
	}

	c.memo.Store(u, out)
	return cloneIdentities(out), nil
}

func cloneIdentities(in []pkgid.Identity) []pkgid.Identity {
	out := make([]pkgid.Identity, len(in))
	copy(out, in)
	return out
}

// GetPublishedManifest fetches the lockfile published for (id, version),
// per spec §4.1.
func (c *Client) GetPublishedManifest(ctx context.Context, id pkgid.ID, v fmt.Stringer) (*lockfile.SharedPackageConfig, error) {
	u := c.endpoint(string(id)) + "/" + v.String()

	if cached, ok := c.memo.Load(u); ok {
		return cached.(*lockfile.SharedPackageConfig), nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(u, resp); err != nil {
		return nil, err
	}

	lock, err := lockfile.Parse(resp.Body)
	if err != nil {
		return nil, NewRegistryError(u, 0, errors.Wrap(err, "decoding published manifest"), c.token())
	}

	c.memo.Store(u, lock)
	return lock, nil
}

// Publish uploads a lockfile to the registry, per spec §4.1.
func (c *Client) Publish(ctx context.Context, id pkgid.ID, v fmt.Stringer, lock *lockfile.SharedPackageConfig) error {
	u := c.endpoint(string(id)) + "/" + v.String()

	body, err := lock.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "marshaling lockfile for publish")
	}

	req, err := c.newRequest(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}

	token, _ := c.Credentials.Token()
	req.Header.Set("Authorization", token)

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus(u, resp)
}

func (c *Client) endpoint(id string) string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		// BaseURL is not validated when the Client is built; a value
		// url.Parse rejects falls back to plain concatenation.
		return c.BaseURL + "/" + id
	}
	u.Path = path.Join(u.Path, id)
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrapf(err, "building request to %s", redact.URL(u, c.token()))
	}
	req.Header.Set("User-Agent", UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, NewRegistryError(req.URL.String(), 0, err, c.token())
	}
	return resp, nil
}

func (c *Client) checkStatus(u string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return NewRegistryError(u, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)), c.token())
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(u, resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewRegistryError(u, resp.StatusCode, errors.Wrap(err, "decoding JSON response"), c.token())
	}
	return nil
}

func (c *Client) token() string {
	t, _ := c.Credentials.Token()
	return t
}

// RegistryError is fatal to the enclosing command (spec §7): any non-2xx
// or JSON-parse failure, surfacing the redacted URL and response status.
type RegistryError struct {
	URL        string
	StatusCode int
	Cause      error
}

// NewRegistryError redacts secret out of url before storing it, so the
// error can be logged or printed without ever leaking the token (spec §7's
// "Token redaction" testable property).
func NewRegistryError(rawURL string, statusCode int, cause error, secret string) *RegistryError {
	return &RegistryError{
		URL:        redact.URL(rawURL, secret),
		StatusCode: statusCode,
		Cause:      cause,
	}
}

func (e *RegistryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("registry error: %s (status %d): %v", e.URL, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("registry error: %s: %v", e.URL, e.Cause)
}

func (e *RegistryError) Unwrap() error { return e.Cause }
