// Package prom exposes analyzer snapshots as Prometheus metrics. It reads
// the Snapshot aggregate only; sketch and tracker internals stay private to
// the engine.
package prom

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BorjaTR/sentinel-hft/collector/model"
	"github.com/BorjaTR/sentinel-hft/collector/udp"
)

// SnapshotFunc supplies the current analyzer state at scrape time.
type SnapshotFunc func() model.Snapshot

// StatsFunc supplies the UDP collector counters at scrape time; may be nil
// for file-only runs.
type StatsFunc func() udp.Stats

type Collector struct {
	snapshot SnapshotFunc
	stats    StatsFunc

	latency    *prometheus.Desc
	latencyAgg *prometheus.Desc
	txTotal    *prometheus.Desc
	throughput *prometheus.Desc
	drops      *prometheus.Desc
	reorders   *prometheus.Desc
	overflow   *prometheus.Desc
	risk       *prometheus.Desc
	killSwitch *prometheus.Desc
	anomalies  *prometheus.Desc
	packets    *prometheus.Desc
}

func New(snapshot SnapshotFunc, stats StatsFunc) *Collector {
	return &Collector{
		snapshot: snapshot,
		stats:    stats,
		latency: prometheus.NewDesc(
			"sentinel_latency_cycles",
			"Latency percentile in clock cycles",
			[]string{"quantile"},
			nil,
		),
		latencyAgg: prometheus.NewDesc(
			"sentinel_latency_agg_cycles",
			"Latency aggregate (mean/min/max/stddev) in clock cycles",
			[]string{"stat"},
			nil,
		),
		txTotal: prometheus.NewDesc(
			"sentinel_tx_events_total",
			"TX events processed",
			nil, nil,
		),
		throughput: prometheus.NewDesc(
			"sentinel_tx_per_second",
			"TX events per second over the observed duration",
			nil, nil,
		),
		drops: prometheus.NewDesc(
			"sentinel_dropped_traces_total",
			"Traces lost to sequence gaps",
			nil, nil,
		),
		reorders: prometheus.NewDesc(
			"sentinel_reordered_traces_total",
			"Traces that arrived out of order",
			nil, nil,
		),
		overflow: prometheus.NewDesc(
			"sentinel_overflow_traces_lost_total",
			"Traces lost to FIFO overflow",
			nil, nil,
		),
		risk: prometheus.NewDesc(
			"sentinel_risk_rejects_total",
			"Risk-control rejects by kind",
			[]string{"kind"},
			nil,
		),
		killSwitch: prometheus.NewDesc(
			"sentinel_kill_switch",
			"Kill switch status (0/1)",
			nil, nil,
		),
		anomalies: prometheus.NewDesc(
			"sentinel_anomalies",
			"Latency anomalies currently retained",
			nil, nil,
		),
		packets: prometheus.NewDesc(
			"sentinel_udp_packets_total",
			"UDP packets by outcome",
			[]string{"outcome"},
			nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.latency
	ch <- c.latencyAgg
	ch <- c.txTotal
	ch <- c.throughput
	ch <- c.drops
	ch <- c.reorders
	ch <- c.overflow
	ch <- c.risk
	ch <- c.killSwitch
	ch <- c.anomalies
	ch <- c.packets
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()

	quantiles := map[string]float64{
		"0.5":   s.Latency.P50Cycles,
		"0.75":  s.Latency.P75Cycles,
		"0.9":   s.Latency.P90Cycles,
		"0.95":  s.Latency.P95Cycles,
		"0.99":  s.Latency.P99Cycles,
		"0.999": s.Latency.P999Cycles,
	}
	for q, v := range quantiles {
		ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, v, q)
	}

	ch <- prometheus.MustNewConstMetric(c.latencyAgg, prometheus.GaugeValue, s.Latency.MeanCycles, "mean")
	ch <- prometheus.MustNewConstMetric(c.latencyAgg, prometheus.GaugeValue, float64(s.Latency.MinCycles), "min")
	ch <- prometheus.MustNewConstMetric(c.latencyAgg, prometheus.GaugeValue, float64(s.Latency.MaxCycles), "max")
	ch <- prometheus.MustNewConstMetric(c.latencyAgg, prometheus.GaugeValue, s.Latency.StddevCycles, "stddev")

	ch <- prometheus.MustNewConstMetric(c.txTotal, prometheus.CounterValue, float64(s.RecordTypes.TxEvents))
	ch <- prometheus.MustNewConstMetric(c.throughput, prometheus.GaugeValue, s.Throughput.TxPerSecond)
	ch <- prometheus.MustNewConstMetric(c.drops, prometheus.CounterValue, float64(s.Drops.TotalDropped))
	ch <- prometheus.MustNewConstMetric(c.reorders, prometheus.CounterValue, float64(s.Drops.ReorderCount))
	ch <- prometheus.MustNewConstMetric(c.overflow, prometheus.CounterValue, float64(s.Overflow.TracesLost))

	ch <- prometheus.MustNewConstMetric(c.risk, prometheus.CounterValue, float64(s.Risk.RateLimitRejects), "rate_limit")
	ch <- prometheus.MustNewConstMetric(c.risk, prometheus.CounterValue, float64(s.Risk.PositionLimitRejects), "position_limit")
	ch <- prometheus.MustNewConstMetric(c.risk, prometheus.CounterValue, float64(s.Risk.NotionalLimitRejects), "notional_limit")

	kill := 0.0
	if s.Risk.KillSwitchTriggered {
		kill = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.killSwitch, prometheus.GaugeValue, kill)
	ch <- prometheus.MustNewConstMetric(c.anomalies, prometheus.GaugeValue, float64(s.Anomalies.Count))

	if c.stats != nil {
		st := c.stats()
		ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(st.PacketsReceived), "received")
		ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(st.PacketsInvalid), "invalid")
		ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(st.PacketsCRCFailed), "crc_failed")
	}
}

// Run registers the collector and serves /metrics on addr.
func Run(addr string, snapshot SnapshotFunc, stats StatsFunc) {
	c := New(snapshot, stats)
	prometheus.MustRegister(c)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Printf("prom: metrics server: %v", err)
		}
	}()
}
