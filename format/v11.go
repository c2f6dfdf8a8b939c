package format

import (
	"encoding/binary"
	"fmt"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

// V11Size is the record size of the v1.1 layout.
const V11Size = 48

// v11FieldBytes is how many of the 48 bytes carry fields; the rest is
// reserved and must be ignored on decode, zeroed on encode.
const v11FieldBytes = 36

// V11Adapter decodes the 48-byte v1.1 format, the first layout with record
// types and sequence numbers.
//
// Layout (48 bytes, little-endian):
//
//	0     version   u8
//	1     type      u8
//	2-3   core_id   u16
//	4-7   seq_no    u32
//	8-15  t_ingress u64
//	16-23 t_egress  u64
//	24-31 data      u64
//	32-33 flags     u16
//	34-35 tx_id     u16
//	36-47 reserved
type V11Adapter struct{}

func (V11Adapter) Name() string    { return "sentinel_v1.1" }
func (V11Adapter) RecordSize() int { return V11Size }

func (V11Adapter) Decode(raw []byte) (model.StandardTrace, error) {
	if len(raw) < V11Size {
		return model.StandardTrace{}, fmt.Errorf("%w: %d < %d", ErrShortRecord, len(raw), V11Size)
	}
	return decodeV11Fields(raw), nil
}

func decodeV11Fields(raw []byte) model.StandardTrace {
	return model.StandardTrace{
		Version:    raw[0],
		RecordType: raw[1],
		CoreID:     binary.LittleEndian.Uint16(raw[2:4]),
		SeqNo:      binary.LittleEndian.Uint32(raw[4:8]),
		TIngress:   binary.LittleEndian.Uint64(raw[8:16]),
		TEgress:    binary.LittleEndian.Uint64(raw[16:24]),
		Data:       binary.LittleEndian.Uint64(raw[24:32]),
		Flags:      binary.LittleEndian.Uint16(raw[32:34]),
		TxID:       binary.LittleEndian.Uint16(raw[34:36]),
	}
}

func encodeV11Fields(buf []byte, t model.StandardTrace) {
	buf[0] = t.Version
	buf[1] = t.RecordType
	binary.LittleEndian.PutUint16(buf[2:4], t.CoreID)
	binary.LittleEndian.PutUint32(buf[4:8], t.SeqNo)
	binary.LittleEndian.PutUint64(buf[8:16], t.TIngress)
	binary.LittleEndian.PutUint64(buf[16:24], t.TEgress)
	binary.LittleEndian.PutUint64(buf[24:32], t.Data)
	binary.LittleEndian.PutUint16(buf[32:34], t.Flags)
	binary.LittleEndian.PutUint16(buf[34:36], t.TxID)
}

func (V11Adapter) Encode(t model.StandardTrace) []byte {
	buf := make([]byte, V11Size)
	encodeV11Fields(buf, t)
	return buf
}
