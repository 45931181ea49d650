package mathx

func Abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Manhattan distance between two grid cells.
func Manhattan(ax, ay, bx, by int) int {
	return Abs(ax-bx) + Abs(ay-by)
}

// Chebyshev distance between two grid cells: max(|dx|, |dy|).
func Chebyshev(ax, ay, bx, by int) int {
	dx := Abs(ax - bx)
	dy := Abs(ay - by)
	if dy > dx {
		return dy
	}
	return dx
}

// CeilDiv divides rounding up. b must be positive.
func CeilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Mod is the Euclidean remainder: always in [0, m) for positive m.
func Mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
