package memory

import (
	"sort"
	"time"

	"github.com/billing/backend/internal/domain/billing"
)

// inWindow reports whether ts falls in the half-open window [from, to)
func inWindow(ts, from, to time.Time) bool {
	return !ts.Before(from) && ts.Before(to)
}

// paginate applies page/pageSize slicing; zero values mean no pagination
func paginate[T any](items []T, page, pageSize int) []T {
	if page <= 0 || pageSize <= 0 {
		return items
	}
	offset := (page - 1) * pageSize
	if offset >= len(items) {
		return []T{}
	}
	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// statusCounts converts a status tally map into a deterministic slice
func statusCounts(byStatus map[string]int64) []billing.StatusCount {
	counts := make([]billing.StatusCount, 0, len(byStatus))
	for status, count := range byStatus {
		counts = append(counts, billing.StatusCount{Status: status, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Status < counts[j].Status })
	return counts
}
