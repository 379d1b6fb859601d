package qpm

import (
	"context"

	"github.com/StackDoubleFlow/qpm/pkgid"
	"github.com/StackDoubleFlow/qpm/registry"
)

// Publish validates the project's manifest and its current lockfile against
// the publish gate (spec §7 PublishValidationError, scenario S6), then
// uploads the lockfile. No POST is issued if validation fails.
func Publish(ctx context.Context, proj *Project, client *registry.Client) error {
	root := proj.Manifest

	if root.Info.URL == "" {
		return &PublishValidationError{Reason: "package url is not set"}
	}
	if !root.Info.AdditionalData.HeadersOnly && root.Info.AdditionalData.SoLink == "" {
		return &PublishValidationError{Reason: "soLink is required unless headersOnly is set"}
	}
	if proj.Lockfile == nil {
		return &PublishValidationError{Reason: "no lockfile present; run restore before publish"}
	}

	for _, d := range root.Dependencies {
		rd, ok := proj.Lockfile.ByID(pkgid.NormalizeID(string(d.ID)))
		if !ok {
			return &PublishValidationError{Reason: "declared dependency " + string(d.ID) + " is not resolvable against the registry"}
		}
		if !d.VersionRange.Matches(rd.Version) {
			return &PublishValidationError{Reason: "resolved version of " + string(d.ID) + " does not satisfy its declared range"}
		}
	}

	return client.Publish(ctx, pkgid.NormalizeID(string(root.Info.ID)), root.Info.Version, proj.Lockfile)
}
