package math

import (
	m "math"

	"golang.org/x/exp/constraints"
)

// Clamp limits f to [low, high].
func Clamp[T constraints.Ordered](f, low, high T) T {
	return max(low, min(f, high))
}

// WrapAngle maps an angle in radians onto [0, 2π).
func WrapAngle[T constraints.Float](a T) T {
	const tau = 2 * m.Pi
	w := T(m.Mod(float64(a), tau))
	if w < 0 {
		w += tau
	}
	return w
}
