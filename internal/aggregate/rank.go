package aggregate

import (
	"cmp"
	"slices"
)

// RankDescFunc returns a copy of items ordered by compare descending. The sort is
// stable: items comparing equal keep their arrival order. A positive topN keeps only
// the first topN items.
func RankDescFunc[T any](items []T, compare func(a, b T) int, topN int) []T {
	ranked := slices.Clone(items)
	slices.SortStableFunc(ranked, func(a, b T) int {
		return compare(b, a)
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// RankDesc orders items by an ordered numeric field, descending.
func RankDesc[T any, V cmp.Ordered](items []T, value func(T) V, topN int) []T {
	return RankDescFunc(items, func(a, b T) int {
		return cmp.Compare(value(a), value(b))
	}, topN)
}
