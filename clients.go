package qpm

import (
	"time"

	"github.com/StackDoubleFlow/qpm/cache"
	"github.com/StackDoubleFlow/qpm/fetcher"
	"github.com/StackDoubleFlow/qpm/registry"
)

// envCredentials is the simplest possible registry.CredentialStore /
// fetcher.CredentialStore: a single token handed to NewEnvCredentials at
// startup, read from whatever environment variable or keychain lookup the
// embedder prefers. Both registry and fetcher accept the narrower
// interface, so one value satisfies both.
type envCredentials struct {
	token string
}

// NewEnvCredentials wraps a single pre-resolved token, or no credentials
// at all if token is empty.
func NewEnvCredentials(token string) *envCredentials {
	return &envCredentials{token: token}
}

func (e *envCredentials) Token() (string, bool) {
	return e.token, e.token != ""
}

// RegistryClient builds the registry.Client this Context's settings
// describe.
func (c *Context) RegistryClient(creds registry.CredentialStore) *registry.Client {
	timeout := time.Duration(c.Settings.TimeoutMillis) * time.Millisecond
	return registry.NewClient(c.Settings.RegistryURL, timeout, creds)
}

// Fetcher builds a fetcher.Fetcher with the default HTTP client and the
// given credentials; no Context setting (including the timeout) applies.
func (c *Context) Fetcher(creds fetcher.CredentialStore) *fetcher.Fetcher {
	return fetcher.New(nil, creds)
}

// Cache builds the cache.Cache rooted at this Context's configured cache directory.
func (c *Context) Cache() *cache.Cache {
	return cache.New(c.Settings.CacheDir)
}
