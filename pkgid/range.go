package pkgid

import (
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// Range is a version-range expression: a conjunction of comparators that a
// candidate version must satisfy. It wraps Masterminds/semver.Constraints,
// the same library golang-dep's constraints.go builds its Constraint type
// on top of, and normalizes the "adjoining comparator" quirk spec §9
// documents (`>=1.0.0<2.0.0` with no separating comma) before handing the
// string to the underlying parser, since Masterminds/semver requires a
// comma to AND two comparators together.
type Range struct {
	raw    string
	constr *semver.Constraints
}

// adjoiningComparator finds a digit immediately followed by a comparator
// operator with no separating comma/space/comma, e.g. the `0<` in
// ">=1.0.0<2.0.0". It does not fire inside a prerelease/build tag because
// those never contain a bare `<`, `>`, `=`, `^`, or `~` immediately after a
// digit in valid semver.
var adjoiningComparator = regexp.MustCompile(`(\d)([<>=^~])`)

func normalizeRange(s string) string {
	return adjoiningComparator.ReplaceAllString(s, "$1,$2")
}

// ParseRange parses a version-range expression with the extended syntax of
// spec §3: `=`, `>`, `>=`, `<`, `<=`, `^`, `~`, `*`, wildcard segments, and
// comma-separated conjunction, plus the comma-less adjoining form.
func ParseRange(s string) (Range, error) {
	norm := normalizeRange(s)
	c, err := semver.NewConstraint(norm)
	if err != nil {
		return Range{}, errors.Wrapf(err, "parsing version range %q", s)
	}
	return Range{raw: s, constr: c}, nil
}

// MustParseRange is ParseRange, panicking on error. Reserved for literals
// known to be valid at compile time (e.g. in tests and the `*` default).
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Any is the range that matches every version, including pre-1.0 versions,
// per spec §8's boundary behavior for `*`.
func Any() Range {
	return MustParseRange("*")
}

// String returns the original, unnormalized range expression.
func (r Range) String() string {
	if r.raw == "" {
		return "*"
	}
	return r.raw
}

// Matches reports whether v satisfies the range.
func (r Range) Matches(v *semver.Version) bool {
	if r.constr == nil {
		return true
	}
	return r.constr.Check(v)
}

// Intersect computes the conjunction of two ranges: a version satisfies the
// result iff it satisfies both inputs. Per spec §8, intersection must be
// associative and commutative; because it is implemented as plain string
// concatenation of two already-valid comparator lists joined by a comma,
// both properties fall out of comma-conjunction being associative and
// commutative over the underlying set semantics.
func (r Range) Intersect(o Range) (Range, error) {
	combined := r.String() + "," + o.String()
	return ParseRange(combined)
}

// IsAny reports whether the range is the unconstrained wildcard.
func (r Range) IsAny() bool {
	return r.raw == "" || r.raw == "*"
}
