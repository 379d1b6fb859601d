package qpm

import "fmt"

// ManifestParseError is fatal (spec §7): qpm.json or qpm.shared.json could
// not be parsed into the expected shape.
type ManifestParseError struct {
	Path  string
	Cause error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("parsing manifest %s: %v", e.Path, e.Cause)
}
func (e *ManifestParseError) Unwrap() error { return e.Cause }

// PublishValidationError is fatal (spec §7): a manifest fails the
// validation gate publish requires before it will upload a lockfile (for
// example, a non-headers-only package missing a soLink).
type PublishValidationError struct {
	Reason string
}

func (e *PublishValidationError) Error() string {
	return "publish validation failed: " + e.Reason
}
