// Package bond implements tensor legs: dimension, direction and, for
// symmetric legs, the ordered table of (quantum number, degeneracy) slots.
//
// Bonds are values. Every method that changes a bond returns a new Bond;
// the receiver is never modified. The slot index of a quantum number is its
// position in the table and is what block index tuples refer to.
package bond

import (
	"fmt"
	"strings"

	"github.com/born-ml/symten/internal/symmetry"
	"github.com/born-ml/symten/internal/tenerr"
)

// Direction is the orientation of a bond.
type Direction int

// Bond directions.
const (
	Regular Direction = iota // untagged leg, no orientation
	In                       // incoming (ket) leg
	Out                      // outgoing (bra) leg
)

// String returns a human-readable name for the direction.
func (d Direction) String() string {
	switch d {
	case Regular:
		return "REG"
	case In:
		return "IN"
	case Out:
		return "OUT"
	default:
		return "unknown"
	}
}

// Reverse flips In and Out. Regular stays Regular.
func (d Direction) Reverse() Direction {
	switch d {
	case In:
		return Out
	case Out:
		return In
	default:
		return d
	}
}

// Bond is one tensor leg.
type Bond struct {
	dim   int
	dir   Direction
	syms  []symmetry.Symmetry
	qnums []symmetry.Qnum
	degs  []int
}

// New creates a non-symmetric bond of the given dimension.
func New(dim int, dir Direction) (Bond, error) {
	if dim <= 0 {
		return Bond{}, fmt.Errorf("bond: dimension must be > 0, got %d", dim)
	}
	return Bond{dim: dim, dir: dir}, nil
}

// NewSymmetric creates a symmetric bond from its (qnum, degeneracy) table.
// Symmetric bonds must be oriented (In or Out). Duplicate quantum numbers
// are allowed; they occupy distinct slots.
func NewSymmetric(dir Direction, qnums []symmetry.Qnum, degs []int, syms []symmetry.Symmetry) (Bond, error) {
	if dir == Regular {
		return Bond{}, fmt.Errorf("bond: %w: symmetric bond must be In or Out", tenerr.ErrStructuralMismatch)
	}
	if len(syms) == 0 {
		return Bond{}, fmt.Errorf("bond: symmetric bond needs at least one symmetry")
	}
	if len(qnums) == 0 || len(qnums) != len(degs) {
		return Bond{}, fmt.Errorf("bond: got %d quantum numbers and %d degeneracies", len(qnums), len(degs))
	}

	b := Bond{
		dir:   dir,
		syms:  symmetry.CloneList(syms),
		qnums: make([]symmetry.Qnum, len(qnums)),
		degs:  make([]int, len(degs)),
	}
	for i, q := range qnums {
		if err := symmetry.Validate(syms, q); err != nil {
			return Bond{}, fmt.Errorf("bond: slot %d: %w", i, err)
		}
		if degs[i] <= 0 {
			return Bond{}, fmt.Errorf("bond: slot %d: degeneracy must be > 0, got %d", i, degs[i])
		}
		b.qnums[i] = q.Clone()
		b.degs[i] = degs[i]
		b.dim += degs[i]
	}
	return b, nil
}

// MustSymmetric is NewSymmetric that panics on error. Intended for tests
// and static tables.
func MustSymmetric(dir Direction, qnums []symmetry.Qnum, degs []int, syms []symmetry.Symmetry) Bond {
	b, err := NewSymmetric(dir, qnums, degs, syms)
	if err != nil {
		panic(err)
	}
	return b
}

// Dim returns the total dimension.
func (b Bond) Dim() int { return b.dim }

// Direction returns the bond orientation.
func (b Bond) Direction() Direction { return b.dir }

// IsSymmetric reports whether the bond carries quantum numbers.
func (b Bond) IsSymmetric() bool { return len(b.qnums) > 0 }

// NumSlots returns the number of quantum-number slots (0 for non-symmetric bonds).
func (b Bond) NumSlots() int { return len(b.qnums) }

// Syms returns a copy of the symmetry list.
func (b Bond) Syms() []symmetry.Symmetry { return symmetry.CloneList(b.syms) }

// Qnum returns a copy of the quantum number in slot i.
func (b Bond) Qnum(i int) symmetry.Qnum { return b.qnums[i].Clone() }

// Deg returns the degeneracy of slot i.
func (b Bond) Deg(i int) int { return b.degs[i] }

// Qnums returns a copy of the quantum-number table.
func (b Bond) Qnums() []symmetry.Qnum {
	out := make([]symmetry.Qnum, len(b.qnums))
	for i, q := range b.qnums {
		out[i] = q.Clone()
	}
	return out
}

// Degs returns a copy of the degeneracy table.
func (b Bond) Degs() []int {
	out := make([]int, len(b.degs))
	copy(out, b.degs)
	return out
}

// Offsets returns the starting position of every slot inside the bond.
func (b Bond) Offsets() []int {
	out := make([]int, len(b.degs))
	acc := 0
	for i, d := range b.degs {
		out[i] = acc
		acc += d
	}
	return out
}

// Locate maps a position in [0, Dim) to its slot and the offset inside it.
func (b Bond) Locate(pos int) (slot, offset int) {
	for i, d := range b.degs {
		if pos < d {
			return i, pos
		}
		pos -= d
	}
	return -1, -1
}

// Charge returns the quantum number of slot i as seen by an incoming leg:
// Out bonds contribute the reversed charge.
func (b Bond) Charge(i int) symmetry.Qnum {
	if b.dir == Out {
		return symmetry.Reverse(b.syms, b.qnums[i])
	}
	return b.qnums[i].Clone()
}

// SlotOf returns the first slot holding q, or -1.
func (b Bond) SlotOf(q symmetry.Qnum) int {
	for i, qq := range b.qnums {
		if qq.Equal(q) {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (b Bond) Clone() Bond {
	out := Bond{dim: b.dim, dir: b.dir, syms: symmetry.CloneList(b.syms)}
	if b.qnums != nil {
		out.qnums = b.Qnums()
		out.degs = b.Degs()
	}
	return out
}

// Redirect returns a copy with In and Out swapped.
func (b Bond) Redirect() Bond {
	out := b.Clone()
	out.dir = b.dir.Reverse()
	return out
}

// WithDirection returns a copy with the given direction. Symmetric bonds
// cannot become Regular.
func (b Bond) WithDirection(dir Direction) (Bond, error) {
	if b.IsSymmetric() && dir == Regular {
		return Bond{}, fmt.Errorf("bond: %w: symmetric bond must be In or Out", tenerr.ErrStructuralMismatch)
	}
	out := b.Clone()
	out.dir = dir
	return out, nil
}

// SameSpace reports whether two bonds describe the same vector space,
// ignoring direction.
func (b Bond) SameSpace(other Bond) bool {
	if b.dim != other.dim || len(b.qnums) != len(other.qnums) {
		return false
	}
	if !symmetry.EqualLists(b.syms, other.syms) {
		return false
	}
	for i := range b.qnums {
		if b.degs[i] != other.degs[i] || !b.qnums[i].Equal(other.qnums[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether two bonds are identical, direction included.
func (b Bond) Equal(other Bond) bool {
	return b.dir == other.dir && b.SameSpace(other)
}

// CheckContractible verifies that a and b can be contracted with each other:
// same space and, for oriented bonds, opposite directions.
func CheckContractible(a, b Bond) error {
	if !a.SameSpace(b) {
		return fmt.Errorf("bond: %w: contracted bonds differ (%s vs %s)", tenerr.ErrStructuralMismatch, a, b)
	}
	if a.dir == Regular || b.dir == Regular {
		if a.dir != b.dir {
			return fmt.Errorf("bond: %w: cannot contract tagged with untagged bond", tenerr.ErrStructuralMismatch)
		}
		return nil
	}
	if a.dir == b.dir {
		return fmt.Errorf("bond: %w: contracted bonds must have opposite directions, both %s",
			tenerr.ErrStructuralMismatch, a.dir)
	}
	return nil
}

// Resize returns a copy whose slot degeneracies are replaced by degs.
// Slots with degeneracy 0 are removed. remap[old] is the new slot index or
// -1 for removed slots. At least one slot must survive.
func (b Bond) Resize(degs []int) (out Bond, remap []int, err error) {
	if !b.IsSymmetric() {
		return Bond{}, nil, fmt.Errorf("bond: %w: resize needs a symmetric bond", tenerr.ErrUnsupportedOnVariant)
	}
	if len(degs) != len(b.degs) {
		return Bond{}, nil, fmt.Errorf("bond: resize got %d degeneracies for %d slots", len(degs), len(b.degs))
	}

	out = Bond{dir: b.dir, syms: symmetry.CloneList(b.syms)}
	remap = make([]int, len(degs))
	for i, d := range degs {
		if d < 0 || d > b.degs[i] {
			return Bond{}, nil, fmt.Errorf("bond: resize slot %d to %d out of range [0, %d]", i, d, b.degs[i])
		}
		if d == 0 {
			remap[i] = -1
			continue
		}
		remap[i] = len(out.qnums)
		out.qnums = append(out.qnums, b.qnums[i].Clone())
		out.degs = append(out.degs, d)
		out.dim += d
	}
	if len(out.qnums) == 0 {
		return Bond{}, nil, fmt.Errorf("bond: resize would remove every slot")
	}
	return out, remap, nil
}

// String formats the bond, e.g. "IN dim=5 U1 [(0)x2 (1)x3]".
func (b Bond) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s dim=%d", b.dir, b.dim)
	if !b.IsSymmetric() {
		return sb.String()
	}
	for _, s := range b.syms {
		sb.WriteByte(' ')
		sb.WriteString(s.String())
	}
	sb.WriteString(" [")
	for i, q := range b.qnums {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%sx%d", q, b.degs[i])
	}
	sb.WriteByte(']')
	return sb.String()
}
