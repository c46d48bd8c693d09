package unitensor

import (
	"fmt"
	"math/rand/v2"
)

// FillRandom overwrites every stored element with a value drawn uniformly
// from [lo, hi). Blocks are filled in storage order, so a seeded source
// reproduces the same tensor.
func (t *UniTensor) FillRandom(rng *rand.Rand, lo, hi float64) {
	switch t.kind {
	case Dense:
		t.dense.arr.FillUniform(rng, lo, hi)
	case Block:
		for _, blk := range t.block.blocks {
			blk.FillUniform(rng, lo, hi)
		}
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
}
