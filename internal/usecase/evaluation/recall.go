package evaluation

import "strings"

// NormalizeURL canonicalises catalog URLs so that labels scraped at different
// times compare equal: lowercase, https, no trailing slash, no catalog prefix.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(strings.ToLower(u))
	u = strings.ReplaceAll(u, "http://", "https://")
	u = strings.TrimRight(u, "/")
	u = strings.ReplaceAll(u, "/solutions/products/product-catalog", "")
	u = strings.ReplaceAll(u, "/products/product-catalog", "")
	u = strings.ReplaceAll(u, "/products/assessments", "")
	return u
}

// RecallAtK is |top-k retrieved ∩ relevant| / |relevant|, over distinct URLs.
// An empty relevant set scores 0.
func RecallAtK(retrieved, relevant []string, k int) float64 {
	relevantSet := make(map[string]struct{}, len(relevant))
	for _, u := range relevant {
		relevantSet[u] = struct{}{}
	}
	if len(relevantSet) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, k)
	for _, u := range retrieved[:min(k, len(retrieved))] {
		if _, ok := relevantSet[u]; ok {
			seen[u] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(len(relevantSet))
}
