package qpm

import (
	"context"

	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
	"github.com/StackDoubleFlow/qpm/registry"
	"github.com/StackDoubleFlow/qpm/resolve"
)

// Collapse re-resolves the project's graph and returns the collapsed
// per-package AdditionalData view (spec §4.9's `collapse`/`collect`
// subcommand): resolve.Collapse is the whole operation, so the orchestrator
// only has to wire it to a live registry Provider.
func Collapse(ctx context.Context, proj *Project, client *registry.Client) (map[pkgid.ID]manifest.AdditionalData, error) {
	provider := newRegistryProvider(ctx, client)
	resolver := resolve.New(provider)

	selections, err := resolver.Resolve(proj.Manifest)
	if err != nil {
		return nil, err
	}

	return resolve.Collapse(proj.Manifest, selections, provider)
}
