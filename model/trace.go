package model

// Record types emitted by the FPGA trace pipeline.
//
// Only TX_EVENT carries a latency sample. OVERFLOW records report the number
// of traces the hardware FIFO discarded in their Data field, so they must
// never be treated as latency.
const (
	RecordTypeTxEvent   uint8 = 0x01
	RecordTypeOverflow  uint8 = 0x02
	RecordTypeHeartbeat uint8 = 0x03
	RecordTypeClockSync uint8 = 0x04
	RecordTypeReset     uint8 = 0x05
)

// Risk-control bits carried in StandardTrace.Flags.
const (
	FlagRateLimitReject     uint16 = 0x0100
	FlagPositionLimitReject uint16 = 0x0200
	FlagNotionalLimitReject uint16 = 0x0400
	FlagKillSwitch          uint16 = 0x0800
)

// RecordTypeName returns a human-readable name for a record type.
func RecordTypeName(t uint8) string {
	switch t {
	case RecordTypeTxEvent:
		return "TX_EVENT"
	case RecordTypeOverflow:
		return "OVERFLOW"
	case RecordTypeHeartbeat:
		return "HEARTBEAT"
	case RecordTypeClockSync:
		return "CLOCK_SYNC"
	case RecordTypeReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// StandardTrace is the normalized record every format adapter decodes into.
// The analyzer consumes these regardless of the on-disk or on-wire layout.
type StandardTrace struct {
	Version    uint8
	RecordType uint8
	CoreID     uint16
	SeqNo      uint32
	TIngress   uint64
	TEgress    uint64
	Data       uint64
	Flags      uint16
	TxID       uint16
}

// Latency returns the pipeline transit time in clock cycles. Inverted
// timestamps (egress before ingress) yield a negative value; such records
// are suspicious but still ingested, so the result must stay signed.
func (t StandardTrace) Latency() int64 {
	return int64(t.TEgress - t.TIngress)
}
