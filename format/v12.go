package format

import (
	"encoding/binary"
	"fmt"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

// V12Size is the record size of the v1.2 layout.
const V12Size = 64

// V12Adapter decodes the 64-byte v1.2 format: a v1.1 record extended with
// per-stage latency deltas for pipeline attribution.
//
// Layout (64 bytes, little-endian):
//
//	0-35  v1.1 fields (see V11Adapter)
//	36-47 reserved
//	48-51 d_ingress u32
//	52-55 d_core    u32
//	56-59 d_risk    u32
//	60-63 d_egress  u32
type V12Adapter struct {
	// ClockMHz converts stage deltas to nanoseconds in attribution.
	ClockMHz float64
}

// NewV12Adapter returns a v1.2 adapter; clockMHz <= 0 falls back to 100 MHz.
func NewV12Adapter(clockMHz float64) V12Adapter {
	if clockMHz <= 0 {
		clockMHz = 100
	}
	return V12Adapter{ClockMHz: clockMHz}
}

func (V12Adapter) Name() string    { return "sentinel_v1.2" }
func (V12Adapter) RecordSize() int { return V12Size }

func (V12Adapter) Decode(raw []byte) (model.StandardTrace, error) {
	if len(raw) < V12Size {
		return model.StandardTrace{}, fmt.Errorf("%w: %d < %d", ErrShortRecord, len(raw), V12Size)
	}
	return decodeV11Fields(raw), nil
}

func (a V12Adapter) Encode(t model.StandardTrace) []byte {
	buf := make([]byte, V12Size)
	encodeV11Fields(buf, t)
	return buf
}

// StageDeltas are the raw per-stage cycle counts from a v1.2 record.
type StageDeltas struct {
	Ingress uint32
	Core    uint32
	Risk    uint32
	Egress  uint32
}

// DecodeStages extracts the attribution deltas from a v1.2 record.
func (V12Adapter) DecodeStages(raw []byte) (StageDeltas, error) {
	if len(raw) < V12Size {
		return StageDeltas{}, fmt.Errorf("%w: %d < %d", ErrShortRecord, len(raw), V12Size)
	}
	return StageDeltas{
		Ingress: binary.LittleEndian.Uint32(raw[48:52]),
		Core:    binary.LittleEndian.Uint32(raw[52:56]),
		Risk:    binary.LittleEndian.Uint32(raw[56:60]),
		Egress:  binary.LittleEndian.Uint32(raw[60:64]),
	}, nil
}

// EncodeWithStages serializes a trace plus its stage deltas.
func (a V12Adapter) EncodeWithStages(t model.StandardTrace, d StageDeltas) []byte {
	buf := a.Encode(t)
	binary.LittleEndian.PutUint32(buf[48:52], d.Ingress)
	binary.LittleEndian.PutUint32(buf[52:56], d.Core)
	binary.LittleEndian.PutUint32(buf[56:60], d.Risk)
	binary.LittleEndian.PutUint32(buf[60:64], d.Egress)
	return buf
}

// DecodeAttributed decodes a v1.2 record together with its per-stage
// nanosecond breakdown.
func (a V12Adapter) DecodeAttributed(raw []byte) (model.StandardTrace, AttributedLatency, error) {
	t, err := a.Decode(raw)
	if err != nil {
		return model.StandardTrace{}, AttributedLatency{}, err
	}
	d, err := a.DecodeStages(raw)
	if err != nil {
		return model.StandardTrace{}, AttributedLatency{}, err
	}
	return t, NewAttributedLatency(t, d, a.ClockMHz), nil
}

// AttributedLatency breaks total latency into pipeline stages, in
// nanoseconds. Overhead is whatever the stage deltas don't account for
// (inter-stage queueing), clamped at zero.
type AttributedLatency struct {
	TotalNs    float64
	IngressNs  float64
	CoreNs     float64
	RiskNs     float64
	EgressNs   float64
	OverheadNs float64
}

// NewAttributedLatency converts cycle counts to a nanosecond breakdown.
func NewAttributedLatency(t model.StandardTrace, d StageDeltas, clockMHz float64) AttributedLatency {
	if clockMHz <= 0 {
		clockMHz = 100
	}
	nsPerCycle := 1000.0 / clockMHz

	total := float64(t.Latency())
	stageSum := float64(d.Ingress) + float64(d.Core) + float64(d.Risk) + float64(d.Egress)
	overhead := total - stageSum
	if overhead < 0 {
		overhead = 0
	}

	return AttributedLatency{
		TotalNs:    total * nsPerCycle,
		IngressNs:  float64(d.Ingress) * nsPerCycle,
		CoreNs:     float64(d.Core) * nsPerCycle,
		RiskNs:     float64(d.Risk) * nsPerCycle,
		EgressNs:   float64(d.Egress) * nsPerCycle,
		OverheadNs: overhead * nsPerCycle,
	}
}

// Stages returns the per-stage breakdown keyed by stage name.
func (a AttributedLatency) Stages() map[string]float64 {
	return map[string]float64{
		"ingress":  a.IngressNs,
		"core":     a.CoreNs,
		"risk":     a.RiskNs,
		"egress":   a.EgressNs,
		"overhead": a.OverheadNs,
	}
}

var stageOrder = []string{"ingress", "core", "risk", "egress", "overhead"}

// Bottleneck returns the dominant stage and its fraction of total latency.
func (a AttributedLatency) Bottleneck() (string, float64) {
	stages := a.Stages()
	best := stageOrder[0]
	for _, name := range stageOrder[1:] {
		if stages[name] > stages[best] {
			best = name
		}
	}
	if a.TotalNs == 0 {
		return best, 0
	}
	return best, stages[best] / a.TotalNs
}
