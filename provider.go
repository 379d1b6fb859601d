package qpm

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm/lockfile"
	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
	"github.com/StackDoubleFlow/qpm/registry"
)

// registryProvider adapts a registry.Client to resolve.Provider, and adds
// the one extra lookup (the full published manifest) the orchestrators
// need beyond what the solver itself requires. Because registry.Client
// memoizes both of its GET endpoints, calling Manifest after the solver
// already walked a version's dependencies costs no extra network request.
type registryProvider struct {
	ctx    context.Context
	client *registry.Client
}

func newRegistryProvider(ctx context.Context, client *registry.Client) *registryProvider {
	return &registryProvider{ctx: ctx, client: client}
}

func (p *registryProvider) ListVersions(id pkgid.ID) ([]*semver.Version, error) {
	idents, err := p.client.ListVersions(p.ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]*semver.Version, len(idents))
	for i, e := range idents {
		out[i] = e.Version
	}
	return out, nil
}

func (p *registryProvider) Dependencies(id pkgid.ID, v *semver.Version) ([]manifest.Dependency, error) {
	m, err := p.Manifest(id, v)
	if err != nil {
		return nil, err
	}
	return m.Dependencies, nil
}

func (p *registryProvider) Manifest(id pkgid.ID, v *semver.Version) (*manifest.Manifest, error) {
	lock, err := p.client.GetPublishedManifest(p.ctx, id, v)
	if err != nil {
		return nil, err
	}
	return &lock.Config, nil
}

func (p *registryProvider) published(id pkgid.ID, v *semver.Version) (*lockfile.SharedPackageConfig, error) {
	lock, err := p.client.GetPublishedManifest(p.ctx, id, v)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching published manifest for %s@%s", id, v)
	}
	return lock, nil
}
