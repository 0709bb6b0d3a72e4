// Package ranking holds the pure post-search stages of the recommendation
// pipeline: truncation to a working set and category balancing.
package ranking

// Truncate returns the first min(topK, len(items)) items in their original order.
// A non-positive topK or empty input yields an empty result. The returned slice
// never shares a backing array with items.
func Truncate[T any](items []T, topK int) []T {
	if len(items) == 0 || topK <= 0 {
		return []T{}
	}
	n := min(topK, len(items))
	out := make([]T, n)
	copy(out, items[:n])
	return out
}
