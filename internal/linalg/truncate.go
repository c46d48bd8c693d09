package linalg

import (
	"fmt"
	"sort"
)

// singular is one singular value tagged with where it came from.
type singular struct {
	value  float64
	sector int
	pos    int
}

// selectKept applies the global truncation rule to the per-sector singular
// values (each slice descending) and returns how many leading values every
// sector keeps plus the largest value dropped.
//
// All values are ordered descending; equal values go to the lower sector
// first, then to the lower position. The first keepdim survive, then any of
// them below cutoff are dropped, except the overall largest which is always
// kept.
func selectKept(vals [][]float64, keepdim int, cutoff float64) (keep []int, discarded float64) {
	var all []singular
	for k, v := range vals {
		for i, s := range v {
			all = append(all, singular{value: s, sector: k, pos: i})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.value != b.value {
			return a.value > b.value
		}
		if a.sector != b.sector {
			return a.sector < b.sector
		}
		return a.pos < b.pos
	})

	keep = make([]int, len(vals))
	for i, s := range all {
		if i == 0 || (i < keepdim && s.value >= cutoff) {
			keep[s.sector]++
			continue
		}
		discarded = max(discarded, s.value)
	}
	return keep, discarded
}

func checkTruncation(keepdim int, cutoff float64) error {
	if keepdim < 1 {
		return fmt.Errorf("keepdim must be positive, got %d", keepdim)
	}
	if cutoff < 0 {
		return fmt.Errorf("err must not be negative, got %g", cutoff)
	}
	return nil
}
