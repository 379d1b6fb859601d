package fetcher

import "strings"

// SourceKind is the tagged union spec §9 prescribes so that dispatch on
// "where do this package's sources come from" lives in one place instead
// of scattered host-name checks.
type SourceKind interface {
	isSourceKind()
}

// Git sources are cloned from a git remote, optionally pinned to a branch.
type Git struct {
	URL    string
	Branch string // empty means "remote default branch"
}

// Zip sources are downloaded as an archive and extracted, optionally
// rooted at a subfolder inside the archive.
type Zip struct {
	URL       string
	SubFolder string
}

// Local sources are used as-is from an on-disk path, bypassing the
// network entirely.
type Local struct {
	Path      string
	SubFolder string
}

func (Git) isSourceKind()   {}
func (Zip) isSourceKind()   {}
func (Local) isSourceKind() {}

// ClassifySource infers the SourceKind of a published manifest's source
// location, per spec §9: explicit localPath wins, then a github.com host
// test for git; every other URL is treated as a zip archive, whatever its
// suffix.
func ClassifySource(url, localPath, subFolder string) SourceKind {
	if localPath != "" {
		return Local{Path: localPath, SubFolder: subFolder}
	}

	trimmed := strings.TrimSuffix(url, "/")
	if isGitHubURL(trimmed) {
		return Git{URL: trimmed}
	}

	return Zip{URL: trimmed, SubFolder: subFolder}
}

func isGitHubURL(rawURL string) bool {
	u := strings.TrimPrefix(rawURL, "https://")
	u = strings.TrimPrefix(u, "http://")
	return strings.HasPrefix(u, "github.com/")
}
