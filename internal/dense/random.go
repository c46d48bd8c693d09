package dense

import "math/rand/v2"

// Uniform fills an array of the given shape with values drawn uniformly
// from [lo, hi).
func Uniform(rng *rand.Rand, lo, hi float64, shape ...int) *Array {
	a := Zeros(shape...)
	a.FillUniform(rng, lo, hi)
	return a
}

// FillUniform overwrites every element with a value drawn uniformly from
// [lo, hi). Elements are drawn in row-major order.
func (a *Array) FillUniform(rng *rand.Rand, lo, hi float64) {
	a.walk(func(_, off int) {
		a.data[off] = lo + (hi-lo)*rng.Float64()
	})
}
