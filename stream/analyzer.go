// Package stream aggregates decoded traces into bounded-memory statistics:
// online mean/variance, global and rolling-window percentiles, drop/reorder
// accounting, risk-flag counters, and an anomaly ring.
package stream

import (
	"io"
	"math"

	"github.com/google/uuid"

	"github.com/BorjaTR/sentinel-hft/collector/format"
	"github.com/BorjaTR/sentinel-hft/collector/model"
	"github.com/BorjaTR/sentinel-hft/collector/seq"
	"github.com/BorjaTR/sentinel-hft/collector/sketch"
)

// Config controls one analyzer instance.
type Config struct {
	WindowSeconds float64
	BucketSeconds float64
	AnomalyZScore float64
	MaxAnomalies  int
	ClockHz       float64
	SketchBackend sketch.Backend
}

// DefaultConfig returns the analyzer defaults: 60s window, 1s buckets, 3.0
// z-score gate, 100 MHz clock, log-bucket sketch backend.
func DefaultConfig() Config {
	return Config{
		WindowSeconds: 60,
		BucketSeconds: 1,
		AnomalyZScore: 3.0,
		MaxAnomalies:  1000,
		ClockHz:       100_000_000,
	}
}

// Anomaly is one latency sample that cleared the z-score gate.
type Anomaly struct {
	Timestamp uint64  `json:"timestamp"`
	TxID      uint16  `json:"tx_id"`
	Latency   int64   `json:"latency_cycles"`
	ZScore    float64 `json:"zscore"`
}

// Analyzer routes each StandardTrace by record type and keeps all derived
// state. Add is not synchronized: one logical writer per instance. For
// multi-receiver setups run one Analyzer per receiver and merge snapshots
// downstream; the sketches merge order-independently.
type Analyzer struct {
	cfg        Config
	instanceID string

	// Welford running moments over TX latencies
	count uint64
	mean  float64
	m2    float64
	min   int64
	max   int64

	digest  sketch.Estimator
	window  *sketch.RollingWindow
	tracker *seq.Tracker

	anomalies []Anomaly

	txCount            uint64
	overflowCount      uint64
	overflowTracesLost uint64
	heartbeatCount     uint64
	clockSyncCount     uint64
	resetCount         uint64
	unknownTypeCount   uint64

	rateLimitRejects     uint64
	positionLimitRejects uint64
	notionalLimitRejects uint64
	killSwitchTriggered  bool

	firstTimestamp uint64
	lastTimestamp  uint64
	sawTimestamp   bool
}

func New(cfg Config) *Analyzer {
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = 60
	}
	if cfg.BucketSeconds <= 0 {
		cfg.BucketSeconds = 1
	}
	if cfg.AnomalyZScore <= 0 {
		cfg.AnomalyZScore = 3.0
	}
	if cfg.MaxAnomalies <= 0 {
		cfg.MaxAnomalies = 1000
	}
	if cfg.ClockHz <= 0 {
		cfg.ClockHz = 100_000_000
	}
	return &Analyzer{
		cfg:        cfg,
		instanceID: uuid.NewString(),
		digest:     sketch.New(cfg.SketchBackend),
		window:     sketch.NewRollingWindow(cfg.WindowSeconds, cfg.BucketSeconds, cfg.ClockHz, cfg.SketchBackend),
		tracker:    seq.NewTracker(),
		min:        math.MaxInt64,
	}
}

// InstanceID identifies this analyzer in merged/exported views.
func (a *Analyzer) InstanceID() string { return a.instanceID }

// Add ingests one decoded trace. Only TX_EVENT records reach the latency
// statistics; an OVERFLOW record's Data field is a count of lost traces and
// feeding it into the sketches would wreck every percentile.
func (a *Analyzer) Add(t model.StandardTrace) {
	switch t.RecordType {
	case model.RecordTypeTxEvent:
		a.addTx(t)
	case model.RecordTypeOverflow:
		a.overflowCount++
		a.overflowTracesLost += t.Data
	case model.RecordTypeHeartbeat:
		a.heartbeatCount++
		// heartbeats keep the run alive but never start it: only the
		// last timestamp moves, so throughput duration still begins at
		// the first TX event
		if t.TEgress > 0 {
			a.lastTimestamp = t.TEgress
		}
	case model.RecordTypeClockSync:
		a.clockSyncCount++
	case model.RecordTypeReset:
		a.resetCount++
		a.tracker.HandleReset(t.CoreID, t.SeqNo, t.TEgress)
	default:
		a.unknownTypeCount++
	}
}

func (a *Analyzer) addTx(t model.StandardTrace) {
	latency := t.Latency()
	a.txCount++
	a.touchTimestamp(t.TEgress)

	a.tracker.Check(t.CoreID, t.SeqNo, t.TEgress)

	a.count++
	x := float64(latency)
	delta := x - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (x - a.mean)

	if latency < a.min {
		a.min = latency
	}
	if latency > a.max {
		a.max = latency
	}

	a.digest.Add(x)
	a.window.Add(x, t.TEgress)

	// z-score gate needs a settled mean before it means anything
	if a.count > 30 {
		if stddev := a.Stddev(); stddev > 0 {
			z := (x - a.mean) / stddev
			if math.Abs(z) > a.cfg.AnomalyZScore {
				a.anomalies = append(a.anomalies, Anomaly{
					Timestamp: t.TEgress,
					TxID:      t.TxID,
					Latency:   latency,
					ZScore:    z,
				})
				if len(a.anomalies) > a.cfg.MaxAnomalies {
					a.anomalies = a.anomalies[len(a.anomalies)-a.cfg.MaxAnomalies:]
				}
			}
		}
	}

	if t.Flags&model.FlagRateLimitReject != 0 {
		a.rateLimitRejects++
	}
	if t.Flags&model.FlagPositionLimitReject != 0 {
		a.positionLimitRejects++
	}
	if t.Flags&model.FlagNotionalLimitReject != 0 {
		a.notionalLimitRejects++
	}
	if t.Flags&model.FlagKillSwitch != 0 {
		a.killSwitchTriggered = true
	}
}

func (a *Analyzer) touchTimestamp(ts uint64) {
	if !a.sawTimestamp {
		a.firstTimestamp = ts
		a.sawTimestamp = true
	}
	a.lastTimestamp = ts
}

// Stddev returns the sample standard deviation of TX latencies.
func (a *Analyzer) Stddev() float64 {
	if a.count < 2 {
		return 0
	}
	return math.Sqrt(a.m2 / float64(a.count-1))
}

// Mean returns the running mean TX latency in cycles.
func (a *Analyzer) Mean() float64 { return a.mean }

// Count returns the number of latency samples ingested.
func (a *Analyzer) Count() uint64 { return a.count }

// Percentile queries the global latency sketch, p in [0, 1].
func (a *Analyzer) Percentile(p float64) float64 {
	return a.digest.Percentile(p)
}

// Anomalies returns the retained anomaly ring, oldest first.
func (a *Analyzer) Anomalies() []Anomaly {
	out := make([]Anomaly, len(a.anomalies))
	copy(out, a.anomalies)
	return out
}

// Tracker exposes drop events for detailed reporting.
func (a *Analyzer) Tracker() *seq.Tracker { return a.tracker }

// AnalyzeFile streams a trace file through a fresh analyzer and returns its
// snapshot.
func AnalyzeFile(path string, cfg Config) (model.Snapshot, error) {
	r, err := format.Open(path)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer r.Close()

	if cfg.ClockHz <= 0 {
		cfg.ClockHz = float64(r.ClockMHz()) * 1e6
	}
	a := New(cfg)
	for {
		t, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return a.Snapshot(), err
		}
		a.Add(t)
	}
	return a.Snapshot(), nil
}
