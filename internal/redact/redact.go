// Package redact is the single choke point for scrubbing credentials out of
// diagnostic strings before they reach an error message, a log line, or a
// generated file.
//
// golang-dep never had to do this (its VCS URLs rarely embedded tokens in
// the diagnostics it surfaced), but the pattern it uses for wrapping
// remote-command output into an error (see the now-folded vcs_repo.go,
// `vcs.NewRemoteError(msg, err, out)`) is the shape redact.Error follows:
// wrap the underlying cause, but launder the string first.
package redact

import "strings"

// Token scrubs all occurrences of secret from s, replacing them with "***".
// Empty secrets are a no-op (there's nothing to redact, and replacing ""
// would corrupt s).
func Token(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}

// URL redacts the userinfo component of a URL-shaped string, and also
// scrubs a known secret token if one is supplied. This covers both
// `https://<token>@host/...` injected credentials and any other place a
// token might have been interpolated into the string.
func URL(rawURL, secret string) string {
	out := rawURL
	if idx := strings.Index(out, "://"); idx >= 0 {
		rest := out[idx+3:]
		if at := strings.Index(rest, "@"); at >= 0 {
			rest = "***@" + rest[at+1:]
			out = out[:idx+3] + rest
		}
	}
	return Token(out, secret)
}
