// Package unitensor implements UniTensor, a labelled multi-leg tensor that is
// either a plain dense array or a block-sparse array whose blocks are
// indexed by quantum-number slots of its bonds.
//
// The two variants are a tagged sum: every UniTensor carries a Kind and
// exactly one body. All operations switch on the kind.
//
// Block storage keeps two parallel slices: blocks[i] is a dense array and
// itoi[i] its index tuple, one slot per leg. Every operation that reshapes
// the block set builds both slices anew and swaps them in together.
package unitensor

import (
	"fmt"
	"strconv"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/symmetry"
	"github.com/born-ml/symten/internal/tenerr"
)

// Kind selects the storage variant.
type Kind int

// Storage variants.
const (
	Dense Kind = iota + 1 // one dense array over the full index space
	Block                 // block-sparse, one array per legal slot tuple
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Dense:
		return "dense"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// UniTensor is a labelled tensor. The zero value is not usable; create
// tensors with New, FromArray or FromBlocks.
//
// A UniTensor is not safe for concurrent mutation.
type UniTensor struct {
	kind    Kind
	name    string
	bonds   []bond.Bond
	labels  []string
	rowrank int
	isDiag  bool
	view    bool // storage aliases another tensor

	dense *denseBody
	block *blockBody
}

type denseBody struct {
	arr *dense.Array
}

type blockBody struct {
	blocks []*dense.Array
	itoi   [][]int
}

type options struct {
	labels  []string
	rowrank int
	name    string
	diag    bool
}

// Option configures a new tensor.
type Option func(*options)

// WithLabels sets the leg labels. Labels must be unique.
func WithLabels(labels ...string) Option {
	return func(o *options) { o.labels = append([]string(nil), labels...) }
}

// WithRowRank sets the number of leading legs that form the row space.
func WithRowRank(rowrank int) Option {
	return func(o *options) { o.rowrank = rowrank }
}

// WithName sets the tensor name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDiag stores a rank-2 tensor in diagonal form: only the diagonal
// elements are kept.
func WithDiag() Option {
	return func(o *options) { o.diag = true }
}

func buildOptions(opts []Option) options {
	o := options{rowrank: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates a zero tensor over the given bonds. If every bond is
// symmetric the tensor is block-sparse and holds one zero block per legal
// slot tuple; if none is, it is dense. Mixing is an error.
//
// Without WithRowRank the row space is the In bonds for block tensors and
// the first half of the legs for dense tensors.
func New(bonds []bond.Bond, opts ...Option) (*UniTensor, error) {
	if len(bonds) == 0 {
		return nil, fmt.Errorf("unitensor: new: %w: no bonds", tenerr.ErrStructuralMismatch)
	}
	kind, err := kindOf(bonds)
	if err != nil {
		return nil, fmt.Errorf("unitensor: new: %w", err)
	}

	o := buildOptions(opts)
	t := &UniTensor{kind: kind, name: o.name, isDiag: o.diag, bonds: cloneBonds(bonds)}
	if err := t.initMeta(o); err != nil {
		return nil, fmt.Errorf("unitensor: new: %w", err)
	}

	switch kind {
	case Dense:
		if t.isDiag {
			t.dense = &denseBody{arr: dense.Zeros(bonds[0].Dim())}
		} else {
			t.dense = &denseBody{arr: dense.Zeros(t.Shape()...)}
		}
	case Block:
		t.block = newBlockBody(t.bonds, t.isDiag)
	}
	return t, nil
}

// FromArray wraps arr in a dense tensor with Regular bonds. The array is
// not copied. With WithDiag, arr must be 1D and holds the diagonal.
func FromArray(arr *dense.Array, opts ...Option) (*UniTensor, error) {
	o := buildOptions(opts)
	shape := arr.Shape()
	if o.diag {
		if len(shape) != 1 {
			return nil, fmt.Errorf("unitensor: from array: %w: diagonal form needs a 1D array, got %v",
				tenerr.ErrDimensionMismatch, shape)
		}
		shape = dense.Shape{shape[0], shape[0]}
	}

	bonds := make([]bond.Bond, len(shape))
	for i, d := range shape {
		b, err := bond.New(d, bond.Regular)
		if err != nil {
			return nil, fmt.Errorf("unitensor: from array: %w", err)
		}
		bonds[i] = b
	}
	return fromArray(arr, bonds, o)
}

// FromArrayBonds is FromArray over explicit non-symmetric bonds, so legs
// keep their directions. Bond dimensions must match the array shape.
func FromArrayBonds(arr *dense.Array, bonds []bond.Bond, opts ...Option) (*UniTensor, error) {
	o := buildOptions(opts)
	shape := arr.Shape()
	if o.diag {
		shape = append(shape, shape...)
	}
	if len(shape) != len(bonds) {
		return nil, fmt.Errorf("unitensor: from array: %w: %d bonds for shape %v",
			tenerr.ErrDimensionMismatch, len(bonds), arr.Shape())
	}
	for i, b := range bonds {
		if b.IsSymmetric() {
			return nil, fmt.Errorf("unitensor: from array: %w: bond %d is symmetric", tenerr.ErrUnsupportedOnVariant, i)
		}
		if b.Dim() != shape[i] {
			return nil, fmt.Errorf("unitensor: from array: %w: bond %d has dim %d, want %d",
				tenerr.ErrDimensionMismatch, i, b.Dim(), shape[i])
		}
	}
	return fromArray(arr, cloneBonds(bonds), o)
}

func fromArray(arr *dense.Array, bonds []bond.Bond, o options) (*UniTensor, error) {
	t := &UniTensor{kind: Dense, name: o.name, isDiag: o.diag, bonds: bonds}
	if err := t.initMeta(o); err != nil {
		return nil, fmt.Errorf("unitensor: from array: %w", err)
	}
	t.dense = &denseBody{arr: arr}
	return t, nil
}

// FromBlocks assembles a block tensor from explicit blocks and their index
// tuples. Every tuple must be legal and unique and every block must have the
// shape of its tuple. Blocks are stored as given, not copied.
func FromBlocks(bonds []bond.Bond, blocks []*dense.Array, itoi [][]int, opts ...Option) (*UniTensor, error) {
	kind, err := kindOf(bonds)
	if err != nil {
		return nil, fmt.Errorf("unitensor: from blocks: %w", err)
	}
	if kind != Block {
		return nil, fmt.Errorf("unitensor: from blocks: %w: bonds are not symmetric", tenerr.ErrUnsupportedOnVariant)
	}
	if len(blocks) != len(itoi) {
		return nil, fmt.Errorf("unitensor: from blocks: %d blocks for %d index tuples", len(blocks), len(itoi))
	}

	o := buildOptions(opts)
	t := &UniTensor{kind: Block, name: o.name, isDiag: o.diag, bonds: cloneBonds(bonds)}
	if err := t.initMeta(o); err != nil {
		return nil, fmt.Errorf("unitensor: from blocks: %w", err)
	}

	seen := make(map[string]bool, len(itoi))
	body := &blockBody{blocks: make([]*dense.Array, len(blocks)), itoi: make([][]int, len(itoi))}
	for i, q := range itoi {
		if err := t.checkTuple(q); err != nil {
			return nil, fmt.Errorf("unitensor: from blocks: block %d: %w", i, err)
		}
		key := tupleKey(q)
		if seen[key] {
			return nil, fmt.Errorf("unitensor: from blocks: %w: duplicate index tuple %v", tenerr.ErrStructuralMismatch, q)
		}
		seen[key] = true
		if want := t.blockShape(q); !blocks[i].Shape().Equal(want) {
			return nil, fmt.Errorf("unitensor: from blocks: block %d: %w: shape %v, want %v",
				i, tenerr.ErrDimensionMismatch, blocks[i].Shape(), want)
		}
		body.blocks[i] = blocks[i]
		body.itoi[i] = append([]int(nil), q...)
	}
	t.block = body
	return t, nil
}

func kindOf(bonds []bond.Bond) (Kind, error) {
	nsym := 0
	for _, b := range bonds {
		if b.IsSymmetric() {
			nsym++
		}
	}
	switch {
	case nsym == 0:
		return Dense, nil
	case nsym == len(bonds):
		syms := bonds[0].Syms()
		for i, b := range bonds[1:] {
			if !symmetry.EqualLists(syms, b.Syms()) {
				return 0, fmt.Errorf("%w: bond %d has different symmetries", tenerr.ErrStructuralMismatch, i+1)
			}
		}
		return Block, nil
	default:
		return 0, fmt.Errorf("%w: %d of %d bonds are symmetric", tenerr.ErrStructuralMismatch, nsym, len(bonds))
	}
}

func (t *UniTensor) initMeta(o options) error {
	rank := len(t.bonds)
	if o.labels == nil {
		t.labels = defaultLabels(rank)
	} else {
		if err := checkLabels(o.labels, rank); err != nil {
			return err
		}
		t.labels = append([]string(nil), o.labels...)
	}

	if t.isDiag {
		if rank != 2 {
			return fmt.Errorf("%w: diagonal form needs rank 2, got %d", tenerr.ErrStructuralMismatch, rank)
		}
		if !t.bonds[0].SameSpace(t.bonds[1]) {
			return fmt.Errorf("%w: diagonal form needs matching bonds", tenerr.ErrStructuralMismatch)
		}
		if o.rowrank >= 0 && o.rowrank != 1 {
			return fmt.Errorf("%w: diagonal form needs rowrank 1, got %d", tenerr.ErrInvalidRowRank, o.rowrank)
		}
		t.rowrank = 1
		return nil
	}

	switch {
	case o.rowrank > rank:
		return fmt.Errorf("%w: %d for rank %d", tenerr.ErrInvalidRowRank, o.rowrank, rank)
	case o.rowrank >= 0:
		t.rowrank = o.rowrank
	case t.kind == Block:
		for _, b := range t.bonds {
			if b.Direction() == bond.In {
				t.rowrank++
			}
		}
	default:
		t.rowrank = rank / 2
	}
	return nil
}

func defaultLabels(rank int) []string {
	out := make([]string, rank)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func checkLabels(labels []string, rank int) error {
	if len(labels) != rank {
		return fmt.Errorf("%w: %d labels for rank %d", tenerr.ErrStructuralMismatch, len(labels), rank)
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			return fmt.Errorf("%w: duplicate label %q", tenerr.ErrStructuralMismatch, l)
		}
		seen[l] = true
	}
	return nil
}

func cloneBonds(bonds []bond.Bond) []bond.Bond {
	out := make([]bond.Bond, len(bonds))
	for i, b := range bonds {
		out[i] = b.Clone()
	}
	return out
}

// Clone returns a deep copy: bonds, labels and storage.
func (t *UniTensor) Clone() *UniTensor {
	out := t.withMeta()
	switch t.kind {
	case Dense:
		out.dense = &denseBody{arr: t.dense.arr.Clone()}
	case Block:
		out.block = t.block.clone()
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
	return out
}

// withMeta copies everything except storage.
func (t *UniTensor) withMeta() *UniTensor {
	return &UniTensor{
		kind:    t.kind,
		name:    t.name,
		bonds:   cloneBonds(t.bonds),
		labels:  append([]string(nil), t.labels...),
		rowrank: t.rowrank,
		isDiag:  t.isDiag,
	}
}

func (b *blockBody) clone() *blockBody {
	out := &blockBody{
		blocks: make([]*dense.Array, len(b.blocks)),
		itoi:   make([][]int, len(b.itoi)),
	}
	for i, blk := range b.blocks {
		out.blocks[i] = blk.Clone()
		out.itoi[i] = append([]int(nil), b.itoi[i]...)
	}
	return out
}

// Kind returns the storage variant.
func (t *UniTensor) Kind() Kind { return t.kind }

// Name returns the tensor name.
func (t *UniTensor) Name() string { return t.name }

// Rank returns the number of legs.
func (t *UniTensor) Rank() int { return len(t.bonds) }

// RowRank returns the number of legs in the row space.
func (t *UniTensor) RowRank() int { return t.rowrank }

// IsDiag reports whether the tensor is stored in diagonal form.
func (t *UniTensor) IsDiag() bool { return t.isDiag }

// IsTagged reports whether every bond has a direction.
func (t *UniTensor) IsTagged() bool {
	for _, b := range t.bonds {
		if b.Direction() == bond.Regular {
			return false
		}
	}
	return true
}

// Shape returns the dimension of every leg.
func (t *UniTensor) Shape() []int {
	out := make([]int, len(t.bonds))
	for i, b := range t.bonds {
		out[i] = b.Dim()
	}
	return out
}

// Bonds returns copies of the bonds.
func (t *UniTensor) Bonds() []bond.Bond { return cloneBonds(t.bonds) }

// Bond returns a copy of the bond carrying label.
func (t *UniTensor) Bond(label string) (bond.Bond, error) {
	i, err := t.labelIndex(label)
	if err != nil {
		return bond.Bond{}, err
	}
	return t.bonds[i].Clone(), nil
}

// Labels returns a copy of the leg labels.
func (t *UniTensor) Labels() []string { return append([]string(nil), t.labels...) }

// Syms returns the symmetry list of a block tensor and nil for a dense one.
func (t *UniTensor) Syms() []symmetry.Symmetry {
	if t.kind != Block {
		return nil
	}
	return t.bonds[0].Syms()
}

// NumBlocks returns the number of stored blocks. A dense tensor has one.
func (t *UniTensor) NumBlocks() int {
	switch t.kind {
	case Dense:
		return 1
	case Block:
		return len(t.block.blocks)
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
}

func (t *UniTensor) labelIndex(label string) (int, error) {
	for i, l := range t.labels {
		if l == label {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", tenerr.ErrLabelNotFound, label)
}

func (t *UniTensor) labelIndices(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	seen := make(map[string]bool, len(labels))
	for i, l := range labels {
		if seen[l] {
			return nil, fmt.Errorf("%w: label %q given twice", tenerr.ErrStructuralMismatch, l)
		}
		seen[l] = true
		idx, err := t.labelIndex(l)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// SetName sets the tensor name.
func (t *UniTensor) SetName(name string) { t.name = name }

// SetLabel renames leg idx.
func (t *UniTensor) SetLabel(idx int, label string) error {
	if idx < 0 || idx >= len(t.labels) {
		return fmt.Errorf("unitensor: set label: leg %d out of range for rank %d", idx, len(t.labels))
	}
	for i, l := range t.labels {
		if i != idx && l == label {
			return fmt.Errorf("unitensor: set label: %w: duplicate label %q", tenerr.ErrStructuralMismatch, label)
		}
	}
	t.labels[idx] = label
	return nil
}

// Relabel renames the leg labelled old.
func (t *UniTensor) Relabel(old, label string) error {
	idx, err := t.labelIndex(old)
	if err != nil {
		return fmt.Errorf("unitensor: relabel: %w", err)
	}
	return t.SetLabel(idx, label)
}

// SetLabels replaces every label.
func (t *UniTensor) SetLabels(labels []string) error {
	if err := checkLabels(labels, len(t.bonds)); err != nil {
		return fmt.Errorf("unitensor: set labels: %w", err)
	}
	t.labels = append([]string(nil), labels...)
	return nil
}

// SetRowRank changes the row/column split.
func (t *UniTensor) SetRowRank(rowrank int) error {
	if rowrank < 0 || rowrank > len(t.bonds) {
		return fmt.Errorf("unitensor: set rowrank: %w: %d for rank %d", tenerr.ErrInvalidRowRank, rowrank, len(t.bonds))
	}
	if t.isDiag && rowrank != 1 {
		return fmt.Errorf("unitensor: set rowrank: %w: diagonal form needs rowrank 1", tenerr.ErrInvalidRowRank)
	}
	t.rowrank = rowrank
	return nil
}

// uniqueLabel returns base, or base with a numeric suffix if base is taken.
func uniqueLabel(base string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, l := range taken {
		used[l] = true
	}
	if !used[base] {
		return base
	}
	for i := 1; ; i++ {
		c := base + "_" + strconv.Itoa(i)
		if !used[c] {
			return c
		}
	}
}

// UniqueLabel returns base if no leg of t uses it and otherwise base with
// the smallest free numeric suffix.
func (t *UniTensor) UniqueLabel(base string) string {
	return uniqueLabel(base, t.labels)
}
