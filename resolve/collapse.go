package resolve

import (
	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

// Collapse folds a selected package's own published AdditionalData
// (lowest priority) with every dependency edge that targets it, applying
// manifest.AdditionalData's root-wins-scalars/union-lists/OR-isPrivate
// merge rule (spec §9): the published manifest's own info.additionalData
// is the base (spec §4.3 step 3, §4.6 steps 1-3, §4.7 step 3 all source
// headersOnly/soLink/debugSoLink/compileOptions from there when no
// consumer overrides them); when the root manifest itself depends on a
// package directly, its edge always wins over every other layer; among
// edges contributed by other selected packages, last-folded wins, since
// nothing in spec §9 orders siblings relative to each other. This mirrors
// original_source/src/data/shared_dependency.rs's split between a
// package's own additional_data and the edge-level dependency.additional_data
// consumers attach to it.
//
// Two historical names exist for this operation (it used to be called
// "collect" before "collapse" stuck); Collect is kept as an alias so
// either spelling works.
func Collapse(root *manifest.Manifest, selections []Selection, provider Provider) (map[pkgid.ID]manifest.AdditionalData, error) {
	rootID := pkgid.NormalizeID(string(root.Info.ID))

	type edge struct {
		dep      manifest.Dependency
		fromRoot bool
	}

	edgesByTarget := map[pkgid.ID][]edge{}
	addEdges := func(deps []manifest.Dependency, fromRoot bool) {
		for _, d := range deps {
			target := pkgid.NormalizeID(string(d.ID))
			edgesByTarget[target] = append(edgesByTarget[target], edge{dep: d, fromRoot: fromRoot})
		}
	}

	addEdges(root.Dependencies, true)
	for _, s := range selections {
		if s.ID == rootID {
			continue
		}
		deps, err := provider.Dependencies(s.ID, s.Version)
		if err != nil {
			return nil, err
		}
		addEdges(deps, false)
	}

	out := make(map[pkgid.ID]manifest.AdditionalData, len(selections))
	for _, s := range selections {
		var published manifest.AdditionalData
		if s.ID != rootID {
			pm, err := provider.Manifest(s.ID, s.Version)
			if err != nil {
				return nil, err
			}
			published = pm.Info.AdditionalData
		}

		edges := edgesByTarget[s.ID]
		if len(edges) == 0 {
			out[s.ID] = published.Merge(s.Dependency.AdditionalData)
			continue
		}

		var rootAD *manifest.AdditionalData
		acc := published

		for _, e := range edges {
			if e.fromRoot {
				ad := e.dep.AdditionalData
				rootAD = &ad
				continue
			}
			acc = acc.Merge(e.dep.AdditionalData)
		}

		if rootAD != nil {
			acc = acc.Merge(*rootAD)
		}

		out[s.ID] = acc
	}

	return out, nil
}

// Collect is an alias for Collapse.
var Collect = Collapse
