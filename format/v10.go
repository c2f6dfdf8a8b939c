package format

import (
	"encoding/binary"
	"fmt"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

// V10Size is the record size of the legacy v1.0 layout.
const V10Size = 32

// V10Adapter decodes the legacy 32-byte format. It predates sequence numbers
// and record types, so every record comes back as a TX_EVENT on core 0 with
// seq_no 0 and drop detection is impossible.
//
// Layout (32 bytes, little-endian):
//
//	0-7   t_ingress u64
//	8-15  t_egress  u64
//	16-23 data      u64
//	24-25 flags     u16
//	26-27 tx_id     u16
//	28-31 padding   u32
type V10Adapter struct{}

func (V10Adapter) Name() string    { return "sentinel_v1.0" }
func (V10Adapter) RecordSize() int { return V10Size }

func (V10Adapter) Decode(raw []byte) (model.StandardTrace, error) {
	if len(raw) < V10Size {
		return model.StandardTrace{}, fmt.Errorf("%w: %d < %d", ErrShortRecord, len(raw), V10Size)
	}
	return model.StandardTrace{
		Version:    0,
		RecordType: model.RecordTypeTxEvent,
		CoreID:     0,
		SeqNo:      0,
		TIngress:   binary.LittleEndian.Uint64(raw[0:8]),
		TEgress:    binary.LittleEndian.Uint64(raw[8:16]),
		Data:       binary.LittleEndian.Uint64(raw[16:24]),
		Flags:      binary.LittleEndian.Uint16(raw[24:26]),
		TxID:       binary.LittleEndian.Uint16(raw[26:28]),
	}, nil
}

func (V10Adapter) Encode(t model.StandardTrace) []byte {
	buf := make([]byte, V10Size)
	binary.LittleEndian.PutUint64(buf[0:8], t.TIngress)
	binary.LittleEndian.PutUint64(buf[8:16], t.TEgress)
	binary.LittleEndian.PutUint64(buf[16:24], t.Data)
	binary.LittleEndian.PutUint16(buf[24:26], t.Flags)
	binary.LittleEndian.PutUint16(buf[26:28], t.TxID)
	return buf
}
