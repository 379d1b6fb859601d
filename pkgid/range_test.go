package pkgid

import "testing"

func TestAnyMatchesZeroZeroOne(t *testing.T) {
	v, err := ParseVersion("0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if !Any().Matches(v) {
		t.Fatalf("wildcard range should match 0.0.1")
	}
}

func TestAdjoiningComparatorNormalizes(t *testing.T) {
	r, err := ParseRange(">=1.0.0<2.0.0")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}

	inRange, err := ParseVersion("1.5.0")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Matches(inRange) {
		t.Fatalf("expected 1.5.0 to satisfy >=1.0.0<2.0.0")
	}

	outOfRange, err := ParseVersion("2.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if r.Matches(outOfRange) {
		t.Fatalf("expected 2.0.0 to be excluded by >=1.0.0<2.0.0")
	}
}

func TestIntersectAssociativeAndCommutative(t *testing.T) {
	a := MustParseRange(">=1.0.0")
	b := MustParseRange("<3.0.0")
	c := MustParseRange("^1.5.0")

	versions := []string{"1.0.0", "1.4.0", "1.5.0", "1.9.9", "2.0.0", "2.9.9"}

	ab, err := a.Intersect(b)
	if err != nil {
		t.Fatal(err)
	}
	abc1, err := ab.Intersect(c)
	if err != nil {
		t.Fatal(err)
	}

	bc, err := b.Intersect(c)
	if err != nil {
		t.Fatal(err)
	}
	abc2, err := a.Intersect(bc)
	if err != nil {
		t.Fatal(err)
	}

	ba, err := b.Intersect(a)
	if err != nil {
		t.Fatal(err)
	}

	for _, vs := range versions {
		v, err := ParseVersion(vs)
		if err != nil {
			t.Fatal(err)
		}
		if abc1.Matches(v) != abc2.Matches(v) {
			t.Fatalf("associativity violated at %s", vs)
		}
		if ab.Matches(v) != ba.Matches(v) {
			t.Fatalf("commutativity violated at %s", vs)
		}
	}
}

func TestIsAny(t *testing.T) {
	if !Any().IsAny() {
		t.Fatalf("Any() should report IsAny")
	}
	if MustParseRange("^1.0.0").IsAny() {
		t.Fatalf("^1.0.0 should not report IsAny")
	}
}
