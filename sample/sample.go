// Package sample plans the excerpts practiced in a dictation exercise: every measure
// alone, consecutive pairs, groups of four and the whole piece.
package sample

import (
	"fmt"

	"github.com/jsphweid/meigen/model"
	"github.com/jsphweid/meigen/util"
)

var groupSizes = []int{1, 2, 4}

func name(start, end int) string {
	if start == end {
		return fmt.Sprintf("measure%d", start)
	}
	return fmt.Sprintf("measures%dto%d", start, end)
}

// Ranges lists excerpts for measures first..last. Groups are aligned to first and the
// trailing group is shortened to fit.
func Ranges(first, last int) []model.RangeInfo {
	res := []model.RangeInfo{}
	if first <= 0 || last < first {
		return res
	}

	seen := make(map[string]bool)
	add := func(start, end int) {
		n := name(start, end)
		if seen[n] {
			return
		}
		seen[n] = true
		res = append(res, model.RangeInfo{Name: n, Start: start, End: end})
	}

	for _, size := range groupSizes {
		for start := first; start <= last; start += size {
			add(start, util.Min(start+size-1, last))
		}
	}
	add(first, last)
	return res
}

func Find(ranges []model.RangeInfo, name string) (model.RangeInfo, bool) {
	for _, r := range ranges {
		if r.Name == name {
			return r, true
		}
	}
	return model.RangeInfo{}, false
}
