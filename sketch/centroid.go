package sketch

import (
	"math"
	"sort"
)

const (
	defaultCompression = 100.0
	centroidBufferSize = 512
)

type centroid struct {
	mean  float64
	count uint64
}

// Centroid is a t-digest style estimator. It clusters samples into weighted
// centroids, keeping clusters small near the distribution tails, which gives
// better fidelity than the log-bucket sketch at p99.9 and beyond.
type Centroid struct {
	compression float64

	centroids []centroid
	buffer    []float64

	count uint64
	min   float64
	max   float64
}

func NewCentroid(compression float64) *Centroid {
	if compression < 20 {
		compression = 20
	}
	return &Centroid{
		compression: compression,
		buffer:      make([]float64, 0, centroidBufferSize),
		min:         math.Inf(1),
		max:         math.Inf(-1),
	}
}

func (c *Centroid) Add(v float64) {
	c.count++
	if v < c.min {
		c.min = v
	}
	if v > c.max {
		c.max = v
	}
	c.buffer = append(c.buffer, v)
	if len(c.buffer) >= centroidBufferSize {
		c.compress()
	}
}

// compress folds the buffer into the centroid list, then re-clusters so the
// cluster weight near rank q stays below 4*n*q*(1-q)/compression.
func (c *Centroid) compress() {
	if len(c.buffer) == 0 && len(c.centroids) == 0 {
		return
	}
	merged := make([]centroid, 0, len(c.centroids)+len(c.buffer))
	merged = append(merged, c.centroids...)
	for _, v := range c.buffer {
		merged = append(merged, centroid{mean: v, count: 1})
	}
	c.buffer = c.buffer[:0]

	sort.Slice(merged, func(i, j int) bool { return merged[i].mean < merged[j].mean })

	total := float64(c.count)
	out := merged[:0]
	var soFar float64
	cur := merged[0]
	for _, next := range merged[1:] {
		q := (soFar + float64(cur.count)/2) / total
		limit := 4 * total * q * (1 - q) / c.compression
		if float64(cur.count+next.count) <= limit {
			w := float64(cur.count) + float64(next.count)
			cur.mean = (cur.mean*float64(cur.count) + next.mean*float64(next.count)) / w
			cur.count += next.count
		} else {
			soFar += float64(cur.count)
			out = append(out, cur)
			cur = next
		}
	}
	out = append(out, cur)
	c.centroids = out
}

func (c *Centroid) Percentile(p float64) float64 {
	if c.count == 0 {
		return 0
	}
	p = math.Max(0, math.Min(1, p))
	if p == 0 {
		return c.min
	}
	if p == 1 {
		return c.max
	}
	c.compress()

	targetRank := p * float64(c.count)
	var cumulative float64
	for _, ct := range c.centroids {
		if cumulative+float64(ct.count) >= targetRank {
			return ct.mean
		}
		cumulative += float64(ct.count)
	}
	return c.max
}

func (c *Centroid) Merge(other Estimator) error {
	o, ok := other.(*Centroid)
	if !ok {
		return errBackendMismatch
	}
	o.compress()
	c.count += o.count
	c.centroids = append(c.centroids, o.centroids...)
	if o.min < c.min {
		c.min = o.min
	}
	if o.max > c.max {
		c.max = o.max
	}
	c.compress()
	return nil
}

func (c *Centroid) Count() uint64 { return c.count }

func (c *Centroid) Min() float64 {
	if c.count == 0 {
		return 0
	}
	return c.min
}

func (c *Centroid) Max() float64 {
	if c.count == 0 {
		return 0
	}
	return c.max
}
