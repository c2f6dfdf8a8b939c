package format

import (
	"errors"
	"fmt"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

var (
	// ErrShortRecord marks a buffer smaller than the adapter's record size.
	ErrShortRecord = errors.New("format: record buffer too small")
	// ErrUnknownFormat means no detection rule matched the file.
	ErrUnknownFormat = errors.New("format: cannot detect trace format")
)

// maxSaneLatency flags records whose latency exceeds any plausible pipeline
// transit time; usually a corrupted timestamp rather than a real sample.
const maxSaneLatency = 10_000_000

// Adapter decodes one fixed-size wire layout into StandardTrace values.
// Adapters are stateless; the same adapter value can serve any number of
// files and packets.
//
// RecordSize returns 0 for variable-size (text) formats, which are read
// through their own streaming path in TraceReader instead of Decode.
type Adapter interface {
	Name() string
	RecordSize() int
	Decode(raw []byte) (model.StandardTrace, error)
	Encode(t model.StandardTrace) []byte
}

// Validate reports non-fatal suspicions about a decoded trace: inverted
// timestamps or an implausibly high latency. A non-empty result never blocks
// ingestion.
func Validate(t model.StandardTrace) string {
	if t.TEgress < t.TIngress {
		return fmt.Sprintf("egress before ingress: %d < %d", t.TEgress, t.TIngress)
	}
	if lat := t.Latency(); lat > maxSaneLatency {
		return fmt.Sprintf("suspiciously high latency: %d cycles", lat)
	}
	return ""
}

// DecodeAll decodes every whole record in buf, invoking fn per trace. A
// trailing partial record ends the scan without error; a chunk that fails to
// decode is skipped and counted. Errors only on variable-size adapters.
func DecodeAll(a Adapter, buf []byte, fn func(model.StandardTrace)) (skipped int, err error) {
	size := a.RecordSize()
	if size == 0 {
		return 0, fmt.Errorf("format: %s has no fixed record size", a.Name())
	}
	for off := 0; off+size <= len(buf); off += size {
		t, err := a.Decode(buf[off : off+size])
		if err != nil {
			skipped++
			continue
		}
		fn(t)
	}
	return skipped, nil
}
