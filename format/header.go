// Package format decodes the versioned Sentinel-HFT trace layouts into
// normalized model.StandardTrace values: the 32-byte file header, the
// V1.0/V1.1/V1.2 fixed-size binary records, and the CSV test format. All
// binary layouts are little-endian and bit-exact on the wire.
package format

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Magic is the 4-byte tag opening every header-carrying trace file.
var Magic = [4]byte{'S', 'N', 'T', 'L'}

// HeaderSize is the fixed on-disk size of FileHeader.
const HeaderSize = 32

var (
	ErrBadMagic    = errors.New("format: invalid file magic")
	ErrShortHeader = errors.New("format: header too small")
)

// FileHeader is the 32-byte preamble of a trace file.
//
// Layout:
//
//	0-3   magic      "SNTL"
//	4     version    format version
//	5     endian     0=little, 1=big
//	6-7   rec_size   bytes per record
//	8-11  clock_mhz  clock frequency in MHz
//	12-15 run_id     unique run identifier
//	16-23 rec_count  total records (0 = unknown/streaming)
//	24-31 reserved
type FileHeader struct {
	Version     uint8
	Endianness  uint8
	RecordSize  uint16
	ClockMHz    uint32
	RunID       uint32
	RecordCount uint64
}

// Encode serializes the header to its 32-byte wire form.
func (h FileHeader) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	buf[4] = h.Version
	buf[5] = h.Endianness
	binary.LittleEndian.PutUint16(buf[6:8], h.RecordSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.ClockMHz)
	binary.LittleEndian.PutUint32(buf[12:16], h.RunID)
	binary.LittleEndian.PutUint64(buf[16:24], h.RecordCount)
	return buf
}

// DecodeHeader parses a file header, rejecting short buffers and bad magic.
func DecodeHeader(data []byte) (FileHeader, error) {
	if len(data) < HeaderSize {
		return FileHeader{}, fmt.Errorf("%w: %d < %d bytes", ErrShortHeader, len(data), HeaderSize)
	}
	if !bytes.Equal(data[0:4], Magic[:]) {
		return FileHeader{}, fmt.Errorf("%w: % x", ErrBadMagic, data[0:4])
	}
	return FileHeader{
		Version:     data[4],
		Endianness:  data[5],
		RecordSize:  binary.LittleEndian.Uint16(data[6:8]),
		ClockMHz:    binary.LittleEndian.Uint32(data[8:12]),
		RunID:       binary.LittleEndian.Uint32(data[12:16]),
		RecordCount: binary.LittleEndian.Uint64(data[16:24]),
	}, nil
}

// ProbeHeader reads a file's first bytes and returns its header, or nil when
// the file is headerless, too small, or unreadable. Probe failures are never
// errors: legacy files simply have no header.
func ProbeHeader(path string) *FileHeader {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil
	}
	if !bytes.Equal(buf[0:4], Magic[:]) {
		return nil
	}
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil
	}
	return &h
}

// Validate reports non-fatal oddities in a decoded header.
func (h FileHeader) Validate() []string {
	var problems []string
	if h.Version < 1 {
		problems = append(problems, fmt.Sprintf("invalid version: %d", h.Version))
	}
	if h.RecordSize != 32 && h.RecordSize != 48 && h.RecordSize != 64 {
		problems = append(problems, fmt.Sprintf("unusual record size: %d", h.RecordSize))
	}
	if h.ClockMHz == 0 {
		problems = append(problems, "invalid clock frequency: 0")
	}
	return problems
}
