package unitensor

import (
	"fmt"
	"strings"
)

// Describe returns a multi-line summary: header, one line per leg and, for
// block tensors, one line per block.
func (t *UniTensor) Describe() string {
	var sb strings.Builder
	name := t.name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&sb, "tensor %s\n", name)
	fmt.Fprintf(&sb, "  kind=%s rank=%d rowrank=%d diag=%t tagged=%t contiguous=%t\n",
		t.kind, t.Rank(), t.rowrank, t.isDiag, t.IsTagged(), t.IsContiguous())
	fmt.Fprintf(&sb, "  norm=%.6g\n", t.Norm())

	sb.WriteString("legs:\n")
	for i, b := range t.bonds {
		side := "col"
		if i < t.rowrank {
			side = "row"
		}
		fmt.Fprintf(&sb, "  [%d] %-8s %s %s\n", i, t.labels[i], side, b)
	}

	if t.kind != Block {
		return sb.String()
	}
	fmt.Fprintf(&sb, "blocks: %d\n", len(t.block.blocks))
	for i, q := range t.block.itoi {
		charge, _ := t.BlockCharge(i)
		blk := t.block.blocks[i]
		fmt.Fprintf(&sb, "  #%-3d qidx=%v charge=%s shape=%v norm=%.6g\n",
			i, q, charge, []int(blk.Shape()), blk.Norm())
	}
	return sb.String()
}
