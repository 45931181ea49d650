package mathx

import "testing"

func TestMix_Stable(t *testing.T) {
	a := Mix(42, TagOreReveal, 1, 2, 3)
	b := Mix(42, TagOreReveal, 1, 2, 3)
	if a != b {
		t.Fatalf("mix not stable: %d vs %d", a, b)
	}
}

func TestMix_SensitiveToInputs(t *testing.T) {
	base := Mix(42, TagOreReveal, 1, 2)
	cases := []struct {
		name string
		got  uint64
	}{
		{"seed", Mix(43, TagOreReveal, 1, 2)},
		{"tag", Mix(42, TagOreRenew, 1, 2)},
		{"order", Mix(42, TagOreReveal, 2, 1)},
		{"arity", Mix(42, TagOreReveal, 1, 2, 0)},
	}
	for _, tc := range cases {
		if tc.got == base {
			t.Fatalf("%s: expected different hash", tc.name)
		}
	}
}

func TestDistances(t *testing.T) {
	if got := Manhattan(0, 0, 3, -4); got != 7 {
		t.Fatalf("manhattan = %d", got)
	}
	if got := Chebyshev(0, 0, 3, -4); got != 4 {
		t.Fatalf("chebyshev = %d", got)
	}
	if got := CeilDiv(7, 3); got != 3 {
		t.Fatalf("ceildiv = %d", got)
	}
	if got := CeilDiv(0, 3); got != 0 {
		t.Fatalf("ceildiv zero = %d", got)
	}
}

func TestModAndCeilDiv(t *testing.T) {
	if got := Mod(-3, 8); got != 5 {
		t.Fatalf("Mod(-3,8) = %d", got)
	}
	if got := Mod(17, 8); got != 1 {
		t.Fatalf("Mod(17,8) = %d", got)
	}
	if got := CeilDiv(5, 3); got != 2 {
		t.Fatalf("CeilDiv(5,3) = %d", got)
	}
	if got := CeilDiv(0, 3); got != 0 {
		t.Fatalf("CeilDiv(0,3) = %d", got)
	}
}
