// Package resolve implements the dependency Resolver (spec §4.5): a
// conflict-driven backtracking search over a space of candidate package
// versions, in the manner of golang-dep's gps solver (solver.go,
// version_queue.go) — a decision is a (package, version) pair, failures
// unwind the decision stack, and the package with the fewest live
// candidates is decided next so dead ends are found early.
//
// Unlike gps, which resolves Go import graphs against a single VCS
// abstraction, this solver resolves a flat identifier+semver space against
// a Provider, and treats a dependency's isPrivate flag as a hard stop: a
// privately-linked package is selected and satisfied, but its own
// dependencies are never walked, so they can't leak into or conflict with
// the rest of the graph.
package resolve

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

// Provider is the solver's only window onto the outside world: given a
// package identity, what versions exist, what does a given version
// depend on, and the full manifest it was published with. It is
// deliberately narrower than the registry client so the solver can be
// exercised without any network or cache (golang-dep's sourceBridge plays
// the same decoupling role for the gps solver). Manifest exists so
// Collapse can read a package's own published AdditionalData (spec §4.3
// step 3, §4.6 steps 1-3, §4.7 step 3 all source headersOnly/soLink/
// debugSoLink/compileOptions from there), not just the dependency edges
// pointing at it.
type Provider interface {
	ListVersions(id pkgid.ID) ([]*semver.Version, error)
	Dependencies(id pkgid.ID, v *semver.Version) ([]manifest.Dependency, error)
	Manifest(id pkgid.ID, v *semver.Version) (*manifest.Manifest, error)
}

// Selection is one resolved (package, version) pair, plus whether it was
// reached only through private edges (in which case its own dependencies
// were not walked).
type Selection struct {
	ID                 pkgid.ID
	Version            *semver.Version
	Dependency         manifest.Dependency
	ReachedOnlyPrivate bool
}

// Resolver runs the backtracking search described above against a Provider.
type Resolver struct {
	Provider Provider
}

// New builds a Resolver over p.
func New(p Provider) *Resolver {
	return &Resolver{Provider: p}
}

type frame struct {
	id                 pkgid.ID
	dependency         manifest.Dependency
	rng                pkgid.Range
	suppressTransitive bool
}

// Resolve computes the minimal set S described in spec §4.5: root is
// always present; every non-private dependency of every selected
// package's manifest is satisfied by exactly one entry in S.
func (r *Resolver) Resolve(root *manifest.Manifest) ([]Selection, error) {
	rootID := pkgid.NormalizeID(string(root.Info.ID))

	selected := map[pkgid.ID]*semver.Version{rootID: root.Info.Version}
	ranges := map[pkgid.ID]pkgid.Range{rootID: pkgid.MustParseRange(root.Info.Version.String())}
	reachedOnlyPrivate := map[pkgid.ID]bool{rootID: false}
	depEdge := map[pkgid.ID]manifest.Dependency{}
	depsCache := map[depKey][]manifest.Dependency{}

	queue := buildQueue(root.Dependencies, false)

	final, finalEdges, finalPriv, err := r.step(queue, selected, ranges, reachedOnlyPrivate, depEdge, depsCache, nil)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(final))
	for id := range final {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	out := make([]Selection, 0, len(final))
	for _, s := range ids {
		id := pkgid.ID(s)
		out = append(out, Selection{
			ID:                 id,
			Version:            final[id],
			Dependency:         finalEdges[id],
			ReachedOnlyPrivate: finalPriv[id],
		})
	}
	return out, nil
}

type depKey struct {
	id pkgid.ID
	v  string
}

func buildQueue(deps []manifest.Dependency, parentSuppressed bool) []frame {
	out := make([]frame, 0, len(deps))
	for _, d := range deps {
		out = append(out, frame{
			id:                 pkgid.NormalizeID(string(d.ID)),
			dependency:         d,
			rng:                d.VersionRange,
			suppressTransitive: parentSuppressed || d.AdditionalData.IsPrivate,
		})
	}
	return out
}

func cloneVersions(m map[pkgid.ID]*semver.Version) map[pkgid.ID]*semver.Version {
	out := make(map[pkgid.ID]*semver.Version, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneRanges(m map[pkgid.ID]pkgid.Range) map[pkgid.ID]pkgid.Range {
	out := make(map[pkgid.ID]pkgid.Range, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBools(m map[pkgid.ID]bool) map[pkgid.ID]bool {
	out := make(map[pkgid.ID]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneEdges(m map[pkgid.ID]manifest.Dependency) map[pkgid.ID]manifest.Dependency {
	out := make(map[pkgid.ID]manifest.Dependency, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// step picks the pending edge with the fewest candidate versions (or, for
// an id already selected, one that costs nothing to check) and recurses,
// backtracking through candidate versions on conflict.
func (r *Resolver) step(
	queue []frame,
	selected map[pkgid.ID]*semver.Version,
	ranges map[pkgid.ID]pkgid.Range,
	reachedOnlyPrivate map[pkgid.ID]bool,
	depEdge map[pkgid.ID]manifest.Dependency,
	depsCache map[depKey][]manifest.Dependency,
	trail []string,
) (map[pkgid.ID]*semver.Version, map[pkgid.ID]manifest.Dependency, map[pkgid.ID]bool, error) {
	if len(queue) == 0 {
		return selected, depEdge, reachedOnlyPrivate, nil
	}

	idx, mergedRange, candidates, err := r.pickNext(queue, selected, ranges)
	if err != nil {
		return nil, nil, nil, err
	}
	f := queue[idx]
	rest := append(append([]frame{}, queue[:idx]...), queue[idx+1:]...)

	if v, ok := selected[f.id]; ok {
		if !mergedRange.Matches(v) {
			return nil, nil, nil, &NoSolutionError{
				Package: f.id,
				Range:   mergedRange,
				Trail:   append(append([]string{}, trail...), trailEntry(f.id, mergedRange)),
				Reason:  "already selected version does not satisfy this additional constraint, and re-selection is not supported across a package reached two different ways",
			}
		}

		newRanges := cloneRanges(ranges)
		newRanges[f.id] = mergedRange
		newPriv := cloneBools(reachedOnlyPrivate)
		wasPrivateOnly := reachedOnlyPrivate[f.id]
		newPriv[f.id] = wasPrivateOnly && f.suppressTransitive

		var extra []frame
		if wasPrivateOnly && !f.suppressTransitive {
			deps, derr := r.depsOf(f.id, v, depsCache)
			if derr != nil {
				return nil, nil, nil, derr
			}
			extra = buildQueue(deps, false)
		}

		newEdges := cloneEdges(depEdge)
		newEdges[f.id] = f.dependency

		return r.step(append(extra, rest...), selected, newRanges, newPriv, newEdges, depsCache, trail)
	}

	if len(candidates) == 0 {
		return nil, nil, nil, &NoSolutionError{
			Package: f.id,
			Range:   mergedRange,
			Trail:   append(append([]string{}, trail...), trailEntry(f.id, mergedRange)),
			Reason:  "no published version satisfies the combined version range",
		}
	}

	var lastErr error
	for _, cand := range candidates {
		newSelected := cloneVersions(selected)
		newSelected[f.id] = cand
		newRanges := cloneRanges(ranges)
		newRanges[f.id] = mergedRange
		newPriv := cloneBools(reachedOnlyPrivate)
		newPriv[f.id] = f.suppressTransitive
		newEdges := cloneEdges(depEdge)
		newEdges[f.id] = f.dependency

		var branchQueue []frame
		if !f.suppressTransitive {
			deps, derr := r.depsOf(f.id, cand, depsCache)
			if derr != nil {
				lastErr = derr
				continue
			}
			branchQueue = buildQueue(deps, false)
		}
		branchQueue = append(branchQueue, rest...)

		result, edges, priv, err := r.step(branchQueue, newSelected, newRanges, newPriv, newEdges, depsCache, append(trail, trailEntry(f.id, mergedRange)+" tried "+cand.String()))
		if err == nil {
			return result, edges, priv, nil
		}
		lastErr = err
	}
	return nil, nil, nil, lastErr
}

// pickNext chooses which pending frame to resolve next: an already-decided
// package is free to check, so it always wins; among undecided packages,
// the one with fewest remaining candidates is chosen, so dead ends surface
// as early in the search as possible (spec §4.5's "fewest candidates
// first" heuristic).
func (r *Resolver) pickNext(
	queue []frame,
	selected map[pkgid.ID]*semver.Version,
	ranges map[pkgid.ID]pkgid.Range,
) (int, pkgid.Range, []*semver.Version, error) {
	bestIdx := -1
	var bestRange pkgid.Range
	var bestCandidates []*semver.Version
	bestCount := -1

	for i, f := range queue {
		merged := f.rng
		if existing, ok := ranges[f.id]; ok {
			m, err := existing.Intersect(f.rng)
			if err != nil {
				return 0, pkgid.Range{}, nil, &NoSolutionError{
					Package: f.id,
					Range:   f.rng,
					Reason:  "version range cannot be combined with an existing constraint: " + err.Error(),
				}
			}
			merged = m
		}

		if _, ok := selected[f.id]; ok {
			return i, merged, nil, nil
		}

		candidates, err := r.candidatesFor(f.id, merged)
		if err != nil {
			return 0, pkgid.Range{}, nil, err
		}
		if bestCount == -1 || len(candidates) < bestCount {
			bestIdx, bestRange, bestCandidates, bestCount = i, merged, candidates, len(candidates)
		}
		if bestCount == 0 {
			break
		}
	}

	return bestIdx, bestRange, bestCandidates, nil
}

func (r *Resolver) candidatesFor(id pkgid.ID, rng pkgid.Range) ([]*semver.Version, error) {
	versions, err := r.Provider.ListVersions(id)
	if err != nil {
		return nil, err
	}

	var matched []*semver.Version
	for _, v := range versions {
		if rng.Matches(v) {
			matched = append(matched, v)
		}
	}
	sort.Sort(sort.Reverse(bySemver(matched)))
	return matched, nil
}

func (r *Resolver) depsOf(id pkgid.ID, v *semver.Version, cache map[depKey][]manifest.Dependency) ([]manifest.Dependency, error) {
	key := depKey{id: id, v: v.String()}
	if d, ok := cache[key]; ok {
		return d, nil
	}
	d, err := r.Provider.Dependencies(id, v)
	if err != nil {
		return nil, err
	}
	cache[key] = d
	return d, nil
}

type bySemver []*semver.Version

func (s bySemver) Len() int           { return len(s) }
func (s bySemver) Less(i, j int) bool { return s[i].LessThan(s[j]) }
func (s bySemver) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func trailEntry(id pkgid.ID, rng pkgid.Range) string {
	return string(id) + " " + rng.String()
}
