package symmetry

import "fmt"

// Combine fuses two quantum numbers component-wise.
func Combine(syms []Symmetry, a, b Qnum) Qnum {
	out := make(Qnum, len(syms))
	for i, s := range syms {
		out[i] = s.Combine(a[i], b[i])
	}
	return out
}

// Reverse reverses a quantum number component-wise.
func Reverse(syms []Symmetry, q Qnum) Qnum {
	out := make(Qnum, len(syms))
	for i, s := range syms {
		out[i] = s.Reverse(q[i])
	}
	return out
}

// Neutral returns the neutral (zero) quantum number for the symmetry list.
func Neutral(syms []Symmetry) Qnum {
	return make(Qnum, len(syms))
}

// Validate checks that q has one valid charge per symmetry.
func Validate(syms []Symmetry, q Qnum) error {
	if len(q) != len(syms) {
		return fmt.Errorf("symmetry: quantum number %v has %d components, want %d", q, len(q), len(syms))
	}
	for i, s := range syms {
		if !s.Check(q[i]) {
			return fmt.Errorf("symmetry: charge %d invalid for %s", q[i], s)
		}
	}
	return nil
}

// EqualLists reports whether two symmetry lists are identical.
func EqualLists(a, b []Symmetry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CloneList returns a copy of a symmetry list.
func CloneList(syms []Symmetry) []Symmetry {
	if syms == nil {
		return nil
	}
	out := make([]Symmetry, len(syms))
	copy(out, syms)
	return out
}
