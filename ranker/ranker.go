package ranker

import (
	"sort"
	"strings"
)

// Ranked is anything that can be ordered by traded volume.
type Ranked interface {
	RankSymbol() string
	RankVolume() float64
}

type entry[T Ranked] struct {
	record T
	volume float64
}

// Top keeps the records whose symbol ends with suffix, orders them by descending
// volume and truncates to limit. Equal volumes keep their input order. An empty
// suffix keeps every record; limit <= 0 disables truncation. The input is not
// modified.
func Top[T Ranked](records []T, suffix string, limit int) []T {
	filtered := make([]entry[T], 0, len(records))
	for _, r := range records {
		if suffix != "" && !strings.HasSuffix(r.RankSymbol(), suffix) {
			continue
		}
		filtered = append(filtered, entry[T]{record: r, volume: r.RankVolume()})
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].volume > filtered[j].volume
	})

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	out := make([]T, len(filtered))
	for i, e := range filtered {
		out[i] = e.record
	}
	return out
}
