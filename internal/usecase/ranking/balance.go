package ranking

import "github.com/kailas-cloud/recommender/internal/domain"

// technicalShareTenths is the technical share of the final list, in tenths.
// The quota is floor(finalK * 0.6), computed in integers to avoid float rounding.
const technicalShareTenths = 6

// Quotas returns the technical and behavioral quotas for a final list of size finalK.
func Quotas(finalK int) (technical, behavioral int) {
	if finalK <= 0 {
		return 0, 0
	}
	technical = finalK * technicalShareTenths / 10
	return technical, finalK - technical
}

// Partition splits records into buckets, preserving relative order within each.
func Partition(records []domain.Assessment) map[domain.Bucket][]domain.Assessment {
	parts := map[domain.Bucket][]domain.Assessment{
		domain.Technical:  nil,
		domain.Behavioral: nil,
		domain.Other:      nil,
	}
	for i := range records {
		b := domain.Classify(&records[i])
		parts[b] = append(parts[b], records[i])
	}
	return parts
}

// Balance reassembles records into at most finalK items: up to the technical
// quota of technical records, then up to the behavioral quota of behavioral
// records, then fill from leftover technical, leftover behavioral and other,
// in that order. Records matching no rule are only ever used as fill.
func Balance(records []domain.Assessment, finalK int) []domain.Assessment {
	if finalK <= 0 || len(records) == 0 {
		return []domain.Assessment{}
	}

	parts := Partition(records)
	technical, behavioral, other := parts[domain.Technical], parts[domain.Behavioral], parts[domain.Other]
	techQuota, behQuota := Quotas(finalK)

	techTaken := min(techQuota, len(technical))
	behTaken := min(behQuota, len(behavioral))

	out := make([]domain.Assessment, 0, min(finalK, len(records)))
	out = append(out, technical[:techTaken]...)
	out = append(out, behavioral[:behTaken]...)

	for _, rest := range [][]domain.Assessment{technical[techTaken:], behavioral[behTaken:], other} {
		if len(out) >= finalK {
			break
		}
		out = append(out, rest[:min(finalK-len(out), len(rest))]...)
	}

	return out
}

// Composition counts records per bucket.
func Composition(records []domain.Assessment) map[domain.Bucket]int {
	counts := make(map[domain.Bucket]int, 3)
	for i := range records {
		counts[domain.Classify(&records[i])]++
	}
	return counts
}
