package stream

import "github.com/BorjaTR/sentinel-hft/collector/model"

// Snapshot materializes the analyzer's current state into the read-only
// aggregate consumed by exporters and the API. It never mutates the
// analyzer.
func (a *Analyzer) Snapshot() model.Snapshot {
	var duration float64
	if a.sawTimestamp && a.lastTimestamp > a.firstTimestamp {
		duration = float64(a.lastTimestamp-a.firstTimestamp) / a.cfg.ClockHz
	}

	var txPerSecond float64
	if duration > 0 {
		txPerSecond = float64(a.count) / duration
	}

	minCycles := a.min
	if a.count == 0 {
		minCycles = 0
	}

	summary := a.tracker.Summary()
	var dropRate float64
	if a.count > 0 {
		dropRate = float64(summary.TotalDropped) / float64(a.count+summary.TotalDropped)
	}

	return model.Snapshot{
		InstanceID: a.instanceID,
		Latency: model.LatencyStats{
			Count:        a.count,
			MinCycles:    minCycles,
			MaxCycles:    a.max,
			MeanCycles:   a.mean,
			StddevCycles: a.Stddev(),
			P50Cycles:    a.digest.Percentile(0.50),
			P75Cycles:    a.digest.Percentile(0.75),
			P90Cycles:    a.digest.Percentile(0.90),
			P95Cycles:    a.digest.Percentile(0.95),
			P99Cycles:    a.digest.Percentile(0.99),
			P999Cycles:   a.digest.Percentile(0.999),
		},
		Throughput: model.ThroughputStats{
			TxPerSecond:     txPerSecond,
			DurationSeconds: duration,
		},
		Drops: model.DropStats{
			TotalDropped: summary.TotalDropped,
			DropRate:     dropRate,
			DropEvents:   summary.DropEvents,
			ReorderCount: summary.TotalReorders,
			ResetCount:   summary.TotalResets,
		},
		Overflow: model.OverflowStats{
			OverflowRecords: a.overflowCount,
			TracesLost:      a.overflowTracesLost,
		},
		Risk: model.RiskStats{
			RateLimitRejects:     a.rateLimitRejects,
			PositionLimitRejects: a.positionLimitRejects,
			NotionalLimitRejects: a.notionalLimitRejects,
			KillSwitchTriggered:  a.killSwitchTriggered,
		},
		Anomalies: model.AnomalyStats{
			Count:           len(a.anomalies),
			ThresholdZScore: a.cfg.AnomalyZScore,
		},
		RecordTypes: model.RecordTypeCounts{
			TxEvents:  a.txCount,
			Overflow:  a.overflowCount,
			Heartbeat: a.heartbeatCount,
			ClockSync: a.clockSyncCount,
			Reset:     a.resetCount,
			Unknown:   a.unknownTypeCount,
		},
		Window: model.WindowStats{
			Seconds:     a.cfg.WindowSeconds,
			SampleCount: a.window.SampleCount(),
			P99Cycles:   a.window.Percentile(0.99),
		},
	}
}
