package aggregate

import (
	"math"

	"github.com/puntomas/panel/internal/commission"
)

// FirstSeen lists the present keys in the order they first appear in records.
func FirstSeen[T any, K comparable](records []T, key func(T) (K, bool)) []K {
	seen := make(map[K]struct{})
	order := make([]K, 0)
	for _, rec := range records {
		k, ok := key(rec)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		order = append(order, k)
	}
	return order
}

// Heatmap counts records per province and scales each count against the largest
// one. Records without a province are left out.
func Heatmap[T any](records []T, province func(T) string) []commission.ProvinceCount {
	key := StringKey(province)
	groups := GroupBy(records, key, Count[T]())
	counts := make([]commission.ProvinceCount, 0, len(groups))
	for _, p := range FirstSeen(records, key) {
		counts = append(counts, commission.ProvinceCount{Province: p, Count: groups[p].Count})
	}
	return HeatmapFromCounts(counts)
}

// HeatmapFromCounts ranks precomputed counts descending and fills PercentOfMax.
func HeatmapFromCounts(counts []commission.ProvinceCount) []commission.ProvinceCount {
	ranked := RankDesc(counts, func(c commission.ProvinceCount) int { return c.Count }, 0)
	if len(ranked) == 0 {
		return ranked
	}
	max := ranked[0].Count
	for i := range ranked {
		ranked[i].PercentOfMax = percentOf(ranked[i].Count, max)
	}
	return ranked
}

func percentOf(count, max int) float64 {
	if max <= 0 {
		return 0
	}
	return math.Round(float64(count)*10000/float64(max)) / 100
}
