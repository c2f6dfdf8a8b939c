package sketch

import (
	"math"
	"testing"
)

func relErr(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}

func TestDDPercentileAccuracy(t *testing.T) {
	s := NewDD(DefaultAlpha)
	for i := 0; i <= 10000; i++ {
		s.Add(float64(i))
	}
	if got := s.Percentile(0.99); relErr(got, 9900) > 0.05 {
		t.Errorf("p99 = %v, want within 5%% of 9900", got)
	}
	if got := s.Percentile(0.50); relErr(got, 5000) > 0.05 {
		t.Errorf("p50 = %v, want within 5%% of 5000", got)
	}
	if got := s.Percentile(0); got != 0 {
		t.Errorf("p0 = %v, want exact min 0", got)
	}
	if got := s.Percentile(1); got != 10000 {
		t.Errorf("p100 = %v, want exact max 10000", got)
	}
}

func TestDDRelativeErrorBound(t *testing.T) {
	s := NewDD(DefaultAlpha)
	for i := 1; i <= 100000; i++ {
		s.Add(float64(i))
	}
	for _, p := range []float64{0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 0.999} {
		want := p * 100000
		if got := s.Percentile(p); relErr(got, want) > 2*DefaultAlpha {
			t.Errorf("p%v = %v, want within %v of %v", p*100, got, 2*DefaultAlpha, want)
		}
	}
}

func TestDDNegativeAndZero(t *testing.T) {
	s := NewDD(DefaultAlpha)
	for i := -100; i <= 100; i++ {
		s.Add(float64(i))
	}
	if got := s.Percentile(0.5); math.Abs(got) > 2 {
		t.Errorf("p50 of symmetric range = %v, want ~0", got)
	}
	if got := s.Percentile(0.01); got > -90 {
		t.Errorf("p1 = %v, want deep negative", got)
	}
	if s.Count() != 201 {
		t.Errorf("Count = %d, want 201", s.Count())
	}
}

func TestDDEmpty(t *testing.T) {
	s := NewDD(DefaultAlpha)
	if got := s.Percentile(0.99); got != 0 {
		t.Errorf("empty sketch p99 = %v, want 0", got)
	}
	if s.Min() != 0 || s.Max() != 0 {
		t.Errorf("empty sketch min/max = %v/%v, want 0/0", s.Min(), s.Max())
	}
}

func TestDDMergeEquivalence(t *testing.T) {
	full := NewDD(DefaultAlpha)
	lo := NewDD(DefaultAlpha)
	hi := NewDD(DefaultAlpha)
	for i := 0; i < 10000; i++ {
		full.Add(float64(i))
		if i < 5000 {
			lo.Add(float64(i))
		} else {
			hi.Add(float64(i))
		}
	}

	// merge in both orders; results must match each other and the full sketch
	a := NewDD(DefaultAlpha)
	if err := a.Merge(lo); err != nil {
		t.Fatal(err)
	}
	if err := a.Merge(hi); err != nil {
		t.Fatal(err)
	}
	b := NewDD(DefaultAlpha)
	if err := b.Merge(hi); err != nil {
		t.Fatal(err)
	}
	if err := b.Merge(lo); err != nil {
		t.Fatal(err)
	}

	if a.Count() != 10000 || b.Count() != 10000 {
		t.Fatalf("merged counts = %d/%d, want 10000", a.Count(), b.Count())
	}
	pa, pb, pf := a.Percentile(0.5), b.Percentile(0.5), full.Percentile(0.5)
	if pa != pb {
		t.Errorf("merge order changed p50: %v vs %v", pa, pb)
	}
	if relErr(pa, pf) > 0.01 {
		t.Errorf("merged p50 = %v, full p50 = %v", pa, pf)
	}
}

func TestDDMergeAlphaMismatch(t *testing.T) {
	a := NewDD(0.01)
	b := NewDD(0.02)
	if err := a.Merge(b); err == nil {
		t.Fatal("expected error merging sketches with different alpha")
	}
}

func TestCentroidPercentileAccuracy(t *testing.T) {
	c := NewCentroid(defaultCompression)
	for i := 0; i <= 10000; i++ {
		c.Add(float64(i))
	}
	if got := c.Percentile(0.99); relErr(got, 9900) > 0.05 {
		t.Errorf("p99 = %v, want within 5%% of 9900", got)
	}
	if got := c.Percentile(0.50); relErr(got, 5000) > 0.05 {
		t.Errorf("p50 = %v, want within 5%% of 5000", got)
	}
	if got := c.Percentile(1); got != 10000 {
		t.Errorf("p100 = %v, want exact max", got)
	}
}

func TestCentroidMerge(t *testing.T) {
	a := NewCentroid(defaultCompression)
	b := NewCentroid(defaultCompression)
	for i := 0; i < 5000; i++ {
		a.Add(float64(i))
		b.Add(float64(i + 5000))
	}
	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if a.Count() != 10000 {
		t.Fatalf("Count = %d, want 10000", a.Count())
	}
	if got := a.Percentile(0.5); relErr(got, 5000) > 0.05 {
		t.Errorf("merged p50 = %v, want ~5000", got)
	}
}

func TestBackendMismatchRejected(t *testing.T) {
	d := NewDD(DefaultAlpha)
	c := NewCentroid(defaultCompression)
	if err := d.Merge(c); err == nil {
		t.Fatal("DD must refuse to merge a centroid estimator")
	}
	if err := c.Merge(d); err == nil {
		t.Fatal("centroid must refuse to merge a DD estimator")
	}
}
