package stream

import (
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/BorjaTR/sentinel-hft/collector/model"
	"github.com/BorjaTR/sentinel-hft/collector/sketch"
)

// ErrNoAnalyzers is returned by Merge when called with nothing to merge.
var ErrNoAnalyzers = errors.New("stream: no analyzers to merge")

// Merge combines per-receiver analyzers into one snapshot. The intended
// sharding is one analyzer per receive goroutine, each seeing disjoint cores,
// merged at snapshot time: sketches merge order-independently, moments merge
// with the parallel-variance formula, and counters sum. All analyzers must
// share a sketch backend.
func Merge(analyzers ...*Analyzer) (model.Snapshot, error) {
	if len(analyzers) == 0 {
		return model.Snapshot{}, ErrNoAnalyzers
	}

	cfg := analyzers[0].cfg
	digest := sketch.New(cfg.SketchBackend)
	windowEst := sketch.New(cfg.SketchBackend)

	var (
		count         uint64
		mean, m2      float64
		min           int64 = math.MaxInt64
		max           int64
		windowSamples uint64
		first, last   uint64
		sawTimestamp  bool
	)

	out := model.Snapshot{InstanceID: uuid.NewString()}

	for _, a := range analyzers {
		if err := digest.Merge(a.digest); err != nil {
			return model.Snapshot{}, err
		}
		a.window.Collect(windowEst)
		windowSamples += a.window.SampleCount()

		if a.count > 0 {
			n1, n2 := float64(count), float64(a.count)
			delta := a.mean - mean
			total := n1 + n2
			mean += delta * n2 / total
			m2 += a.m2 + delta*delta*n1*n2/total
			count += a.count

			if a.min < min {
				min = a.min
			}
			if a.max > max {
				max = a.max
			}
		}

		if a.sawTimestamp {
			if !sawTimestamp || a.firstTimestamp < first {
				first = a.firstTimestamp
			}
			if !sawTimestamp || a.lastTimestamp > last {
				last = a.lastTimestamp
			}
			sawTimestamp = true
		}

		summary := a.tracker.Summary()
		out.Drops.TotalDropped += summary.TotalDropped
		out.Drops.DropEvents += summary.DropEvents
		out.Drops.ReorderCount += summary.TotalReorders
		out.Drops.ResetCount += summary.TotalResets

		out.Overflow.OverflowRecords += a.overflowCount
		out.Overflow.TracesLost += a.overflowTracesLost

		out.Risk.RateLimitRejects += a.rateLimitRejects
		out.Risk.PositionLimitRejects += a.positionLimitRejects
		out.Risk.NotionalLimitRejects += a.notionalLimitRejects
		out.Risk.KillSwitchTriggered = out.Risk.KillSwitchTriggered || a.killSwitchTriggered

		out.Anomalies.Count += len(a.anomalies)

		out.RecordTypes.TxEvents += a.txCount
		out.RecordTypes.Overflow += a.overflowCount
		out.RecordTypes.Heartbeat += a.heartbeatCount
		out.RecordTypes.ClockSync += a.clockSyncCount
		out.RecordTypes.Reset += a.resetCount
		out.RecordTypes.Unknown += a.unknownTypeCount
	}

	if count == 0 {
		min = 0
	}
	var stddev float64
	if count >= 2 {
		stddev = math.Sqrt(m2 / float64(count-1))
	}

	out.Latency = model.LatencyStats{
		Count:        count,
		MinCycles:    min,
		MaxCycles:    max,
		MeanCycles:   mean,
		StddevCycles: stddev,
		P50Cycles:    digest.Percentile(0.50),
		P75Cycles:    digest.Percentile(0.75),
		P90Cycles:    digest.Percentile(0.90),
		P95Cycles:    digest.Percentile(0.95),
		P99Cycles:    digest.Percentile(0.99),
		P999Cycles:   digest.Percentile(0.999),
	}

	if sawTimestamp && last > first {
		out.Throughput.DurationSeconds = float64(last-first) / cfg.ClockHz
		out.Throughput.TxPerSecond = float64(count) / out.Throughput.DurationSeconds
	}
	if count > 0 {
		out.Drops.DropRate = float64(out.Drops.TotalDropped) / float64(count+out.Drops.TotalDropped)
	}
	out.Anomalies.ThresholdZScore = cfg.AnomalyZScore

	out.Window = model.WindowStats{
		Seconds:     cfg.WindowSeconds,
		SampleCount: windowSamples,
	}
	if windowSamples > 0 {
		out.Window.P99Cycles = windowEst.Percentile(0.99)
	}
	return out, nil
}
