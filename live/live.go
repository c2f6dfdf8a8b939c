// Package live prints a periodic snapshot summary to the console, for
// running the collector in a terminal without a dashboard attached.
package live

import (
	"fmt"
	"time"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

type Live struct {
	snapshot func() model.Snapshot
	interval time.Duration
	done     chan struct{}
}

func New(snapshot func() model.Snapshot, interval time.Duration) *Live {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Live{
		snapshot: snapshot,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (l *Live) Run() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.printStats()
		}
	}
}

func (l *Live) Stop() {
	close(l.done)
}

func (l *Live) printStats() {
	s := l.snapshot()

	fmt.Println("---- LIVE PIPELINE (tick-to-trade) ----")
	if s.Latency.Count == 0 {
		fmt.Println("no TX events yet")
		fmt.Println("---------------------------------------")
		return
	}

	fmt.Printf("tx=%d  rate=%.0f/s  latency(cycles) p50=%.0f p99=%.0f p99.9=%.0f max=%d\n",
		s.Latency.Count,
		s.Throughput.TxPerSecond,
		s.Latency.P50Cycles,
		s.Latency.P99Cycles,
		s.Latency.P999Cycles,
		s.Latency.MaxCycles,
	)
	fmt.Printf("window(%.0fs) samples=%d p99=%.0f\n",
		s.Window.Seconds, s.Window.SampleCount, s.Window.P99Cycles)
	fmt.Printf("drops=%d (%.4f%%)  reorders=%d  overflow_lost=%d  anomalies=%d\n",
		s.Drops.TotalDropped,
		s.Drops.DropRate*100,
		s.Drops.ReorderCount,
		s.Overflow.TracesLost,
		s.Anomalies.Count,
	)
	if s.Risk.KillSwitchTriggered {
		fmt.Println("!! KILL SWITCH TRIGGERED !!")
	}
	if rejects := s.Risk.RateLimitRejects + s.Risk.PositionLimitRejects + s.Risk.NotionalLimitRejects; rejects > 0 {
		fmt.Printf("risk rejects: rate=%d position=%d notional=%d\n",
			s.Risk.RateLimitRejects, s.Risk.PositionLimitRejects, s.Risk.NotionalLimitRejects)
	}
	fmt.Println("---------------------------------------")
}
