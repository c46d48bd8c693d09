package serialization

import (
	"fmt"

	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/symmetry"
	"github.com/born-ml/symten/internal/unitensor"
)

// migrateLegacy turns a v1 file, which stores one dense matrix per row
// charge sector, into a block tensor.
func migrateLegacy(m *TensorMeta, data []byte) (*unitensor.UniTensor, error) {
	bonds, err := metaBonds(m)
	if err != nil {
		return nil, err
	}
	charges := make([]symmetry.Qnum, len(m.Sectors))
	mats := make([]*dense.Array, len(m.Sectors))
	for i, s := range m.Sectors {
		arr, err := readArray(data, s.Offset, s.Size, s.Shape)
		if err != nil {
			return nil, fmt.Errorf("sector %d: %w", i, err)
		}
		charges[i] = symmetry.Qnum(s.Charge).Clone()
		mats[i] = arr
	}
	t, err := unitensor.FromSectors(bonds, m.RowRank, charges, mats,
		unitensor.WithLabels(m.Labels...), unitensor.WithName(m.Name))
	if err != nil {
		return nil, fmt.Errorf("legacy migration: %w", err)
	}
	return t, nil
}
