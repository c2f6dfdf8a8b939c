// Package udp receives trace records from the FPGA over the wire. Each
// datagram carries a 24-byte header followed by N fixed-size records; the
// header's CRC32 covers the payload only, so a corrupted datagram is
// discarded whole before any record decode is attempted.
package udp

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// PacketMagic is "SNTL" read as a little-endian u32.
const PacketMagic = 0x4C544E53

// PacketHeaderSize is the fixed header size of every trace datagram.
const PacketHeaderSize = 24

// PacketHeader frames one UDP trace datagram.
//
// Layout (24 bytes, little-endian):
//
//	0-3   magic        u32
//	4-5   version      u16
//	6-7   core_id      u16
//	8-11  seq_start    u32
//	12-15 seq_end      u32
//	16-17 record_count u16
//	18-19 reserved     u16
//	20-23 crc32        u32 (payload only)
type PacketHeader struct {
	Magic       uint32
	Version     uint16
	CoreID      uint16
	SeqStart    uint32
	SeqEnd      uint32
	RecordCount uint16
	Reserved    uint16
	CRC32       uint32
}

// DecodePacketHeader parses a datagram's first 24 bytes.
func DecodePacketHeader(data []byte) (PacketHeader, error) {
	if len(data) < PacketHeaderSize {
		return PacketHeader{}, fmt.Errorf("udp: header too small: %d < %d", len(data), PacketHeaderSize)
	}
	return PacketHeader{
		Magic:       binary.LittleEndian.Uint32(data[0:4]),
		Version:     binary.LittleEndian.Uint16(data[4:6]),
		CoreID:      binary.LittleEndian.Uint16(data[6:8]),
		SeqStart:    binary.LittleEndian.Uint32(data[8:12]),
		SeqEnd:      binary.LittleEndian.Uint32(data[12:16]),
		RecordCount: binary.LittleEndian.Uint16(data[16:18]),
		Reserved:    binary.LittleEndian.Uint16(data[18:20]),
		CRC32:       binary.LittleEndian.Uint32(data[20:24]),
	}, nil
}

// Encode serializes the header to its wire form.
func (h PacketHeader) Encode() []byte {
	buf := make([]byte, PacketHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.CoreID)
	binary.LittleEndian.PutUint32(buf[8:12], h.SeqStart)
	binary.LittleEndian.PutUint32(buf[12:16], h.SeqEnd)
	binary.LittleEndian.PutUint16(buf[16:18], h.RecordCount)
	binary.LittleEndian.PutUint16(buf[18:20], h.Reserved)
	binary.LittleEndian.PutUint32(buf[20:24], h.CRC32)
	return buf
}

// ComputeCRC returns the checksum a header must carry for this payload.
func ComputeCRC(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// VerifyPayload checks the payload against the header's CRC32.
func (h PacketHeader) VerifyPayload(payload []byte) bool {
	return ComputeCRC(payload) == h.CRC32
}
