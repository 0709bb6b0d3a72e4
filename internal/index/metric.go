// Package index implements exact (brute-force) nearest neighbour search over
// a dense float32 matrix loaded from the index artifact. Distance kernels come
// from vecgo's SIMD distance package.
package index

import (
	"fmt"
	"strings"

	"github.com/hupe1980/vecgo/distance"
)

// Metric is the distance used to compare vectors. Lower distance means closer.
type Metric int

const (
	// MetricL2 is squared Euclidean distance.
	MetricL2 Metric = iota
	// MetricCosine is 1 - cosine similarity.
	MetricCosine
	// MetricInnerProduct is the negated dot product.
	MetricInnerProduct
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "l2"
	case MetricCosine:
		return "cosine"
	case MetricInnerProduct:
		return "inner_product"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMetric parses a metric name. Empty string means L2.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "l2", "euclidean":
		return MetricL2, nil
	case "cosine":
		return MetricCosine, nil
	case "ip", "dot", "inner_product":
		return MetricInnerProduct, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

func (m Metric) vecgo() (distance.Metric, error) {
	switch m {
	case MetricL2:
		return distance.MetricL2, nil
	case MetricCosine:
		return distance.MetricCosine, nil
	case MetricInnerProduct:
		return distance.MetricDot, nil
	default:
		return 0, fmt.Errorf("unsupported metric %s", m)
	}
}

// scorer turns the vecgo kernel for m into a lower-is-closer distance.
// Cosine and dot share the dot kernel; cosine inputs are normalized first.
func scorer(m Metric) (func(q, v []float32) float32, error) {
	vm, err := m.vecgo()
	if err != nil {
		return nil, err
	}
	kernel, err := distance.Provider(vm)
	if err != nil {
		return nil, fmt.Errorf("distance kernel: %w", err)
	}

	switch m {
	case MetricCosine:
		return func(q, v []float32) float32 { return 1 - kernel(q, v) }, nil
	case MetricInnerProduct:
		return func(q, v []float32) float32 { return -kernel(q, v) }, nil
	default:
		return kernel, nil
	}
}

// normalize returns an L2-normalized copy of v, or a plain copy when its norm is zero.
func normalize(v []float32) []float32 {
	if out, ok := distance.NormalizeL2Copy(v); ok {
		return out
	}
	return append([]float32(nil), v...)
}
