// Package symmetry provides the fusion rules of abelian symmetry groups.
//
// A Symmetry is a pure value: it combines and reverses integer charges.
// A tensor carries an ordered list of independent symmetries, and its
// quantum numbers are vectors with one component per symmetry.
package symmetry

import (
	"fmt"
	"strings"
)

// Kind identifies a symmetry group.
type Kind int

// Supported symmetry groups.
const (
	U1 Kind = iota // U(1): charges are integers, fusion is addition.
	Zn             // Z_n: charges are integers mod n.
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case U1:
		return "U1"
	case Zn:
		return "Zn"
	default:
		return "unknown"
	}
}

// Symmetry is one abelian symmetry group.
// N is the group order for Zn and ignored for U1.
type Symmetry struct {
	Kind Kind
	N    int
}

// NewU1 returns a U(1) symmetry.
func NewU1() Symmetry {
	return Symmetry{Kind: U1}
}

// NewZn returns a Z_n symmetry. n must be at least 2.
func NewZn(n int) (Symmetry, error) {
	if n < 2 {
		return Symmetry{}, fmt.Errorf("symmetry: Zn order must be >= 2, got %d", n)
	}
	return Symmetry{Kind: Zn, N: n}, nil
}

// Combine applies the fusion rule to two charges.
func (s Symmetry) Combine(a, b int) int {
	switch s.Kind {
	case U1:
		return a + b
	case Zn:
		return mod(a+b, s.N)
	default:
		panic(fmt.Sprintf("symmetry: unknown kind %d", s.Kind))
	}
}

// Reverse returns the charge that fuses with q to the neutral charge.
func (s Symmetry) Reverse(q int) int {
	switch s.Kind {
	case U1:
		return -q
	case Zn:
		return mod(-q, s.N)
	default:
		panic(fmt.Sprintf("symmetry: unknown kind %d", s.Kind))
	}
}

// Check reports whether q is a valid charge of the group.
func (s Symmetry) Check(q int) bool {
	switch s.Kind {
	case U1:
		return true
	case Zn:
		return q >= 0 && q < s.N
	default:
		return false
	}
}

// String returns "U1" or "Z<n>".
func (s Symmetry) String() string {
	if s.Kind == Zn {
		return fmt.Sprintf("Z%d", s.N)
	}
	return s.Kind.String()
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

// Qnum is a quantum number: one charge per attached symmetry.
type Qnum []int

// Clone returns a copy of the quantum number.
func (q Qnum) Clone() Qnum {
	out := make(Qnum, len(q))
	copy(out, q)
	return out
}

// Equal reports whether two quantum numbers are identical.
func (q Qnum) Equal(other Qnum) bool {
	if len(q) != len(other) {
		return false
	}
	for i := range q {
		if q[i] != other[i] {
			return false
		}
	}
	return true
}

// Less orders quantum numbers lexicographically.
func (q Qnum) Less(other Qnum) bool {
	for i := 0; i < len(q) && i < len(other); i++ {
		if q[i] != other[i] {
			return q[i] < other[i]
		}
	}
	return len(q) < len(other)
}

// Key returns a string usable as a map key.
func (q Qnum) Key() string {
	var sb strings.Builder
	for i, v := range q {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", v)
	}
	return sb.String()
}

// String formats the quantum number as "(q0,q1,...)".
func (q Qnum) String() string {
	return "(" + q.Key() + ")"
}
