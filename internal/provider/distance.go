package provider

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Metric names a distance function between embeddings.
type Metric string

const (
	MetricCosine      Metric = "cosine"
	MetricEuclidean   Metric = "euclidean"
	MetricEuclideanL2 Metric = "euclidean_l2"
)

var (
	ErrEmptyEmbedding    = errors.New("embedding is empty")
	ErrDimensionMismatch = errors.New("embedding dimensions differ")
	ErrZeroEmbedding     = errors.New("embedding has zero norm")
	ErrUnknownMetric     = errors.New("unknown distance metric")
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricCosine, MetricEuclidean, MetricEuclideanL2:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

// Distance computes the distance between a and b under metric m.
// Lower is more similar for every metric.
func Distance(m Metric, a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyEmbedding
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	switch m {
	case MetricCosine:
		na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
		if na == 0 || nb == 0 {
			return 0, ErrZeroEmbedding
		}
		return 1 - floats.Dot(a, b)/(na*nb), nil
	case MetricEuclidean:
		return floats.Distance(a, b, 2), nil
	case MetricEuclideanL2:
		la, err := L2Normalize(a)
		if err != nil {
			return 0, err
		}
		lb, err := L2Normalize(b)
		if err != nil {
			return 0, err
		}
		return floats.Distance(la, lb, 2), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
	}
}

// L2Normalize returns a unit-length copy of v.
func L2Normalize(v []float64) ([]float64, error) {
	n := floats.Norm(v, 2)
	if n == 0 {
		return nil, ErrZeroEmbedding
	}
	out := make([]float64, len(v))
	floats.ScaleTo(out, 1/n, v)
	return out, nil
}

// Compare builds a Comparison; a distance equal to the threshold matches.
func Compare(m Metric, threshold float64, known, candidate []float64) (Comparison, error) {
	d, err := Distance(m, known, candidate)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{
		Distance:  d,
		Threshold: threshold,
		Metric:    m,
		Match:     d <= threshold,
	}, nil
}
