package index

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// Neighbor is a search result: the row position in the matrix and its distance.
type Neighbor struct {
	Position int
	Distance float32
}

// Flat is an exact index over a row-major float32 matrix. It is immutable
// after construction and safe for concurrent searches.
type Flat struct {
	dim      int
	count    int
	metric   Metric
	distance func(q, v []float32) float32
	vectors  []float32
}

// NewFlat builds an index from count*dim values. For cosine the rows are
// normalized once here so that queries only need a dot product.
func NewFlat(dim int, metric Metric, vectors []float32) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if len(vectors)%dim != 0 {
		return nil, fmt.Errorf("vector data length %d is not a multiple of dimension %d", len(vectors), dim)
	}

	dist, err := scorer(metric)
	if err != nil {
		return nil, err
	}

	f := &Flat{dim: dim, count: len(vectors) / dim, metric: metric, distance: dist, vectors: vectors}
	if metric == MetricCosine {
		normalized := make([]float32, 0, len(vectors))
		for i := range f.count {
			normalized = append(normalized, normalize(f.row(i))...)
		}
		f.vectors = normalized
	}
	return f, nil
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return f.count }

// Metric returns the configured distance metric.
func (f *Flat) Metric() Metric { return f.metric }

func (f *Flat) row(i int) []float32 {
	return f.vectors[i*f.dim : (i+1)*f.dim]
}

// Search returns up to k neighbours of query ordered by ascending distance.
// Equal distances are ordered by ascending position, so results are deterministic.
func (f *Flat) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dim {
		return nil, domain.NewDimMismatch(f.dim, len(query))
	}
	if k <= 0 || f.count == 0 {
		return []Neighbor{}, nil
	}

	q := query
	if f.metric == MetricCosine {
		q = normalize(query)
	}

	all := make([]Neighbor, f.count)
	for i := range f.count {
		all[i] = Neighbor{Position: i, Distance: f.distance(q, f.row(i))}
	}

	slices.SortFunc(all, func(a, b Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})

	return all[:min(k, len(all))], nil
}
