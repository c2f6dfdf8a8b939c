package model

// Snapshot is the read-only aggregate the analyzer hands to every external
// consumer (exporters, API, live views). It is a plain value: taking one has
// no side effects and holding one does not alias analyzer internals.
type Snapshot struct {
	InstanceID  string           `json:"instance_id"`
	Latency     LatencyStats     `json:"latency"`
	Throughput  ThroughputStats  `json:"throughput"`
	Drops       DropStats        `json:"drops"`
	Overflow    OverflowStats    `json:"overflow"`
	Risk        RiskStats        `json:"risk"`
	Anomalies   AnomalyStats     `json:"anomalies"`
	RecordTypes RecordTypeCounts `json:"record_types"`
	Window      WindowStats      `json:"window"`
}

type LatencyStats struct {
	Count        uint64  `json:"count"`
	MinCycles    int64   `json:"min_cycles"`
	MaxCycles    int64   `json:"max_cycles"`
	MeanCycles   float64 `json:"mean_cycles"`
	StddevCycles float64 `json:"stddev_cycles"`
	P50Cycles    float64 `json:"p50_cycles"`
	P75Cycles    float64 `json:"p75_cycles"`
	P90Cycles    float64 `json:"p90_cycles"`
	P95Cycles    float64 `json:"p95_cycles"`
	P99Cycles    float64 `json:"p99_cycles"`
	P999Cycles   float64 `json:"p999_cycles"`
}

type ThroughputStats struct {
	TxPerSecond     float64 `json:"tx_per_second"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type DropStats struct {
	TotalDropped uint64  `json:"total_dropped"`
	DropRate     float64 `json:"drop_rate"`
	DropEvents   int     `json:"drop_events"`
	ReorderCount uint64  `json:"reorder_count"`
	ResetCount   uint64  `json:"reset_count"`
}

type OverflowStats struct {
	OverflowRecords uint64 `json:"overflow_records"`
	TracesLost      uint64 `json:"traces_lost"`
}

type RiskStats struct {
	RateLimitRejects     uint64 `json:"rate_limit_rejects"`
	PositionLimitRejects uint64 `json:"position_limit_rejects"`
	NotionalLimitRejects uint64 `json:"notional_limit_rejects"`
	KillSwitchTriggered  bool   `json:"kill_switch_triggered"`
}

type AnomalyStats struct {
	Count           int     `json:"count"`
	ThresholdZScore float64 `json:"threshold_zscore"`
}

type RecordTypeCounts struct {
	TxEvents  uint64 `json:"tx_events"`
	Overflow  uint64 `json:"overflow"`
	Heartbeat uint64 `json:"heartbeat"`
	ClockSync uint64 `json:"clock_sync"`
	Reset     uint64 `json:"reset"`
	Unknown   uint64 `json:"unknown"`
}

// WindowStats covers the rolling window, not the whole run.
type WindowStats struct {
	Seconds     float64 `json:"seconds"`
	SampleCount uint64  `json:"sample_count"`
	P99Cycles   float64 `json:"p99_cycles"`
}
