package sketch

import "fmt"

// WindowBucket holds one bucket span's worth of samples.
type WindowBucket struct {
	StartTime   float64
	Est         Estimator
	SampleCount uint64
}

// RollingWindow answers "percentile over the last W seconds" by merging
// per-bucket sketches instead of storing raw samples. Memory stays at
// O(window/bucket) sketches no matter how fast the stream runs. Timestamps
// are hardware cycle counts; ClockHz converts them to seconds.
type RollingWindow struct {
	WindowSeconds float64
	BucketSeconds float64
	ClockHz       float64

	backend Backend
	buckets []WindowBucket
	current *WindowBucket
	samples uint64
}

// NewRollingWindow panics on non-positive spans or a bucket wider than the
// window; both are construction bugs, not runtime conditions.
func NewRollingWindow(windowSeconds, bucketSeconds, clockHz float64, backend Backend) *RollingWindow {
	if windowSeconds <= 0 || bucketSeconds <= 0 {
		panic(fmt.Sprintf("sketch: window/bucket seconds must be positive (%v, %v)", windowSeconds, bucketSeconds))
	}
	if bucketSeconds > windowSeconds {
		panic(fmt.Sprintf("sketch: bucket %vs exceeds window %vs", bucketSeconds, windowSeconds))
	}
	return &RollingWindow{
		WindowSeconds: windowSeconds,
		BucketSeconds: bucketSeconds,
		ClockHz:       clockHz,
		backend:       backend,
	}
}

// Add records a value stamped with a cycle-count timestamp. Crossing a bucket
// boundary closes the open bucket; buckets older than the window are evicted.
func (w *RollingWindow) Add(value float64, timestamp uint64) {
	ts := float64(timestamp) / w.ClockHz

	if w.current == nil {
		w.current = &WindowBucket{StartTime: ts, Est: New(w.backend)}
	} else if ts >= w.current.StartTime+w.BucketSeconds {
		w.buckets = append(w.buckets, *w.current)
		w.current = &WindowBucket{StartTime: ts, Est: New(w.backend)}
	}

	w.current.Est.Add(value)
	w.current.SampleCount++
	w.samples++

	w.expire(ts)
}

func (w *RollingWindow) expire(now float64) {
	cutoff := now - w.WindowSeconds
	i := 0
	for i < len(w.buckets) && w.buckets[i].StartTime < cutoff {
		w.samples -= w.buckets[i].SampleCount
		i++
	}
	if i > 0 {
		w.buckets = w.buckets[i:]
	}
}

// SampleCount returns the number of samples currently inside the window.
func (w *RollingWindow) SampleCount() uint64 {
	return w.samples
}

// Percentile merges every retained bucket into a scratch estimator and
// queries it. Merge associativity makes the bucket order irrelevant.
func (w *RollingWindow) Percentile(p float64) float64 {
	if w.samples == 0 {
		return 0
	}
	merged := New(w.backend)
	w.Collect(merged)
	return merged.Percentile(p)
}

// Collect folds every retained bucket into dst, which must use the same
// backend. Lets callers merge windows from several receivers into one view.
func (w *RollingWindow) Collect(dst Estimator) {
	for i := range w.buckets {
		// same backend throughout, merge cannot fail
		_ = dst.Merge(w.buckets[i].Est)
	}
	if w.current != nil && w.current.SampleCount > 0 {
		_ = dst.Merge(w.current.Est)
	}
}
