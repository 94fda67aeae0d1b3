package kernel

import (
	"fmt"
	"math"
	"strings"

	"github.com/viterin/vek/vek32"
)

// Metric selects the similarity function computed by a Scorer.
type Metric int

const (
	// Cosine is dot(a,b) / (|a| * |b|), clamped to [-1, 1]. A zero vector
	// scores 0.
	Cosine Metric = iota
	// Dot is the raw inner product.
	Dot
	// Euclidean is 1 / (1 + |a-b|), in (0, 1].
	Euclidean
)

// String returns the configuration name of the metric.
func (m Metric) String() string {
	switch m {
	case Cosine:
		return "cosine"
	case Dot:
		return "dot"
	case Euclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// ParseMetric converts a configuration name into a Metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine", "cos":
		return Cosine, nil
	case "dot", "inner_product", "ip":
		return Dot, nil
	case "euclidean", "l2":
		return Euclidean, nil
	default:
		return 0, fmt.Errorf("unknown metric %q (must be 'cosine', 'dot' or 'euclidean')", s)
	}
}

// reducer computes inner products. An exact reducer accumulates in float64
// throughout. Results from the others are only used while every reduction
// stays inside the range float32 represents at full precision.
type reducer struct {
	dot   func(a, b []float32) float64
	exact bool
}

var (
	scalarReducer = reducer{dot: dotScalar, exact: true}
	vekReducer    = reducer{dot: dotVek}
)

// reduce is fixed at initialisation from the CPU probe.
var reduce = selectReducer(features)

func selectReducer(f CPUFeatures) reducer {
	if f.Accelerated {
		return vekReducer
	}
	return scalarReducer
}

// Float32 products below minFloat32Reduction are subnormal or flushed to
// zero; sums above maxFloat32Reduction are close to overflow.
const (
	minFloat32Reduction = 1e-30
	maxFloat32Reduction = 1e36
)

func inFloat32Range(x float64) bool {
	x = math.Abs(x)
	return x >= minFloat32Reduction && x <= maxFloat32Reduction
}

func dotScalar(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// dotBlock bounds how many products vek32 accumulates in float32 before the
// partial sum moves to float64.
const dotBlock = 128

// dotVek sums float32 FMA dot products of dotBlock-sized runs in float64.
func dotVek(a, b []float32) float64 {
	var sum float64
	for len(a) > dotBlock {
		sum += float64(vek32.Dot(a[:dotBlock], b[:dotBlock]))
		a, b = a[dotBlock:], b[dotBlock:]
	}
	if len(a) > 0 {
		sum += float64(vek32.Dot(a, b))
	}
	return sum
}

func distanceScalar(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Scorer computes one Metric. It holds no mutable state.
type Scorer struct {
	metric Metric
}

// NewScorer returns a Scorer for m.
func NewScorer(m Metric) (*Scorer, error) {
	switch m {
	case Cosine, Dot, Euclidean:
		return &Scorer{metric: m}, nil
	default:
		return nil, fmt.Errorf("unknown metric %d", m)
	}
}

var cosineScorer = &Scorer{metric: Cosine}

// Metric returns the metric computed by s.
func (s *Scorer) Metric() Metric {
	return s.metric
}

// Similarity returns the cosine similarity of two equal-length vectors.
// It returns InvalidArgument when either vector is nil or empty, when the
// lengths differ, or when a non-finite element or an overflowing norm leaves
// the score undefined.
func Similarity(a, b []float32) (float32, Status) {
	return cosineScorer.Score(a, b)
}

// SimilarityN is Similarity over the first n elements of a and b.
// It returns InvalidArgument when n <= 0 or either vector holds fewer than n
// elements.
func SimilarityN(a, b []float32, n int) (float32, Status) {
	return cosineScorer.ScoreN(a, b, n)
}

// Score applies the scorer's metric to two equal-length vectors.
func (s *Scorer) Score(a, b []float32) (float32, Status) {
	if len(a) != len(b) {
		return 0, InvalidArgument
	}
	return s.ScoreN(a, b, len(a))
}

// ScoreN applies the scorer's metric to the first n elements of a and b.
func (s *Scorer) ScoreN(a, b []float32, n int) (float32, Status) {
	if n <= 0 || a == nil || b == nil || len(a) < n || len(b) < n {
		return 0, InvalidArgument
	}
	a, b = a[:n:n], b[:n:n]

	var score float64
	switch s.metric {
	case Dot:
		score = dotProduct(reduce, a, b)
	case Euclidean:
		score = 1 / (1 + distanceScalar(a, b))
	default:
		score = cosine(reduce, a, b)
	}
	f := float32(score)
	if math.IsNaN(score) || math.IsInf(float64(f), 0) {
		return 0, InvalidArgument
	}
	return f, Ok
}

func dotProduct(r reducer, a, b []float32) float64 {
	ab := r.dot(a, b)
	if !r.exact && !inFloat32Range(ab) {
		ab = dotScalar(a, b)
	}
	return ab
}

// cosine takes a·b, a·a and b·b from the same reducer so cosine(a, a) is 1
// up to the final division.
func cosine(r reducer, a, b []float32) float64 {
	aa, bb, ab := r.dot(a, a), r.dot(b, b), r.dot(a, b)
	if !r.exact && (!inFloat32Range(aa) || !inFloat32Range(bb)) {
		aa, bb, ab = dotScalar(a, a), dotScalar(b, b), dotScalar(a, b)
	}
	if math.IsInf(aa+bb, 0) || math.IsNaN(aa+bb) {
		return math.NaN()
	}
	if aa == 0 || bb == 0 {
		return 0
	}
	c := ab / (math.Sqrt(aa) * math.Sqrt(bb))
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}
