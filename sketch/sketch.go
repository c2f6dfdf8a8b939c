// Package sketch provides bounded-memory streaming percentile estimation.
//
// The default backend is a DDSketch-style logarithmic-bucket sketch with a
// guaranteed relative error bound (https://arxiv.org/abs/1908.10693). A
// centroid backend with better tail fidelity is available behind the same
// interface; callers must only rely on the Add/Percentile/Merge contract,
// never on backend identity.
package sketch

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Estimator is the contract every quantile backend satisfies. Merge accepts
// only an estimator of the same backend and parameters.
type Estimator interface {
	Add(value float64)
	// Percentile returns the estimated value at rank p in [0, 1].
	Percentile(p float64) float64
	Merge(other Estimator) error
	Count() uint64
	Min() float64
	Max() float64
}

// Backend selects the estimator implementation at construction time.
type Backend int

const (
	BackendDD Backend = iota
	BackendCentroid
)

// New returns an estimator for the given backend with default parameters.
func New(b Backend) Estimator {
	if b == BackendCentroid {
		return NewCentroid(defaultCompression)
	}
	return NewDD(DefaultAlpha)
}

// DefaultAlpha bounds relative error to 1%.
const DefaultAlpha = 0.01

// DD is the log-bucket sketch. Values map to buckets by ceil(log_gamma(v));
// each bucket reports the geometric mean of its range, which minimizes the
// worst-case relative error. Positive and negative values get separate
// bucket maps, zero gets an exact counter.
type DD struct {
	alpha    float64
	gamma    float64
	logGamma float64

	positive map[int]uint64
	negative map[int]uint64
	zero     uint64

	count uint64
	min   float64
	max   float64
}

func NewDD(alpha float64) *DD {
	if alpha <= 0 || alpha >= 1 {
		panic(fmt.Sprintf("sketch: alpha must be in (0, 1), got %v", alpha))
	}
	gamma := (1 + alpha) / (1 - alpha)
	return &DD{
		alpha:    alpha,
		gamma:    gamma,
		logGamma: math.Log(gamma),
		positive: make(map[int]uint64),
		negative: make(map[int]uint64),
		min:      math.Inf(1),
		max:      math.Inf(-1),
	}
}

func (s *DD) bucketIndex(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(math.Ceil(math.Log(v) / s.logGamma))
}

func (s *DD) bucketValue(idx int) float64 {
	if idx <= 0 {
		return 0
	}
	lower := math.Pow(s.gamma, float64(idx-1))
	upper := math.Pow(s.gamma, float64(idx))
	return math.Sqrt(lower * upper)
}

func (s *DD) Add(v float64) {
	s.count++
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
	switch {
	case v > 0:
		s.positive[s.bucketIndex(v)]++
	case v < 0:
		s.negative[s.bucketIndex(-v)]++
	default:
		s.zero++
	}
}

// Percentile walks buckets in rank order: negative magnitudes descending,
// then zero, then positive ascending.
func (s *DD) Percentile(p float64) float64 {
	if s.count == 0 {
		return 0
	}
	p = math.Max(0, math.Min(1, p))
	if p == 0 {
		return s.min
	}
	if p == 1 {
		return s.max
	}

	targetRank := p * float64(s.count)
	var cumulative float64

	for _, idx := range sortedKeys(s.negative, true) {
		cumulative += float64(s.negative[idx])
		if cumulative >= targetRank {
			return -s.bucketValue(idx)
		}
	}

	cumulative += float64(s.zero)
	if cumulative >= targetRank {
		return 0
	}

	for _, idx := range sortedKeys(s.positive, false) {
		cumulative += float64(s.positive[idx])
		if cumulative >= targetRank {
			return s.bucketValue(idx)
		}
	}
	return s.max
}

var errBackendMismatch = errors.New("sketch: cannot merge different backends")

// Merge folds other into s bucket-wise. The result is identical to having
// ingested both streams into one sketch, so merge order never matters.
func (s *DD) Merge(other Estimator) error {
	o, ok := other.(*DD)
	if !ok {
		return errBackendMismatch
	}
	if math.Abs(s.alpha-o.alpha) > 1e-9 {
		return fmt.Errorf("sketch: alpha mismatch: %v vs %v", s.alpha, o.alpha)
	}
	for idx, c := range o.positive {
		s.positive[idx] += c
	}
	for idx, c := range o.negative {
		s.negative[idx] += c
	}
	s.zero += o.zero
	s.count += o.count
	if o.min < s.min {
		s.min = o.min
	}
	if o.max > s.max {
		s.max = o.max
	}
	return nil
}

func (s *DD) Count() uint64 { return s.count }

func (s *DD) Min() float64 {
	if s.count == 0 {
		return 0
	}
	return s.min
}

func (s *DD) Max() float64 {
	if s.count == 0 {
		return 0
	}
	return s.max
}

func sortedKeys(m map[int]uint64, reverse bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	if reverse {
		sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	} else {
		sort.Ints(keys)
	}
	return keys
}
