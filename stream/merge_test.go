package stream

import (
	"math"
	"testing"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

func TestMergeMatchesSingleAnalyzer(t *testing.T) {
	cfg := DefaultConfig()
	single := New(cfg)
	left := New(cfg)
	right := New(cfg)

	// disjoint cores, interleaved latencies 100..299
	for i := uint32(0); i < 200; i++ {
		tr := tx(i, 100+uint64(i))
		single.Add(tr)
		if i%2 == 0 {
			tr.CoreID = 0
			left.Add(tr)
		} else {
			tr.CoreID = 1
			right.Add(tr)
		}
	}

	merged, err := Merge(left, right)
	if err != nil {
		t.Fatal(err)
	}
	want := single.Snapshot()

	if merged.Latency.Count != want.Latency.Count {
		t.Fatalf("count = %d, want %d", merged.Latency.Count, want.Latency.Count)
	}
	if math.Abs(merged.Latency.MeanCycles-want.Latency.MeanCycles) > 1e-9 {
		t.Fatalf("mean = %v, want %v", merged.Latency.MeanCycles, want.Latency.MeanCycles)
	}
	if math.Abs(merged.Latency.StddevCycles-want.Latency.StddevCycles) > 1e-9 {
		t.Fatalf("stddev = %v, want %v", merged.Latency.StddevCycles, want.Latency.StddevCycles)
	}
	if merged.Latency.MinCycles != want.Latency.MinCycles || merged.Latency.MaxCycles != want.Latency.MaxCycles {
		t.Fatalf("min/max = %d/%d, want %d/%d",
			merged.Latency.MinCycles, merged.Latency.MaxCycles,
			want.Latency.MinCycles, want.Latency.MaxCycles)
	}
	// identical sample sets through mergeable sketches: exact agreement
	if merged.Latency.P99Cycles != want.Latency.P99Cycles {
		t.Fatalf("p99 = %v, want %v", merged.Latency.P99Cycles, want.Latency.P99Cycles)
	}
	if merged.Window.SampleCount != want.Window.SampleCount {
		t.Fatalf("window samples = %d, want %d", merged.Window.SampleCount, want.Window.SampleCount)
	}
	if math.Abs(merged.Throughput.DurationSeconds-want.Throughput.DurationSeconds) > 1e-9 {
		t.Fatalf("duration = %v, want %v", merged.Throughput.DurationSeconds, want.Throughput.DurationSeconds)
	}
}

func TestMergeSumsCounters(t *testing.T) {
	left := New(DefaultConfig())
	right := New(DefaultConfig())

	left.Add(model.StandardTrace{RecordType: model.RecordTypeOverflow, Data: 5})
	kill := tx(0, 10)
	kill.Flags = model.FlagKillSwitch
	right.Add(kill)
	right.Add(model.StandardTrace{RecordType: model.RecordTypeHeartbeat})

	merged, err := Merge(left, right)
	if err != nil {
		t.Fatal(err)
	}
	if merged.Overflow.TracesLost != 5 {
		t.Errorf("TracesLost = %d, want 5", merged.Overflow.TracesLost)
	}
	if !merged.Risk.KillSwitchTriggered {
		t.Error("kill switch lost in merge")
	}
	if merged.RecordTypes.Heartbeat != 1 || merged.RecordTypes.TxEvents != 1 {
		t.Errorf("record type counts wrong: %+v", merged.RecordTypes)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	if _, err := Merge(); err != ErrNoAnalyzers {
		t.Fatalf("err = %v, want ErrNoAnalyzers", err)
	}
}
