package format

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

// CSVAdapter reads the human-editable text format used for demos and test
// fixtures. Records are variable-size, so RecordSize reports 0 and reading
// goes through OpenFile instead of Decode.
//
// Recognized columns: t_ingress (or timestamp_ns), t_egress, data, flags,
// tx_id, core_id, seq_no, record_type. Missing optional columns default to
// t_egress = t_ingress+100, flags = 0, core_id = 0, record_type = TX_EVENT,
// and a running counter for tx_id/seq_no. Lines starting with '#' are
// comments.
type CSVAdapter struct{}

func (CSVAdapter) Name() string    { return "csv" }
func (CSVAdapter) RecordSize() int { return 0 }

func (CSVAdapter) Decode(raw []byte) (model.StandardTrace, error) {
	return model.StandardTrace{}, fmt.Errorf("format: csv records are variable-size, use OpenFile")
}

// Encode renders one trace as a CSV row matching the full column set.
func (CSVAdapter) Encode(t model.StandardTrace) []byte {
	return []byte(fmt.Sprintf("%d,%d,%d,%d,%d,%d,%d,%d\n",
		t.TIngress, t.TEgress, t.Data, t.Flags, t.TxID, t.CoreID, t.SeqNo, t.RecordType))
}

// CSVHeader is the column row matching Encode's field order.
const CSVHeader = "t_ingress,t_egress,data,flags,tx_id,core_id,seq_no,record_type\n"

// CSVStream yields traces from one CSV file. Close it when done.
type CSVStream struct {
	f       *os.File
	r       *csv.Reader
	columns map[string]int
	autoSeq uint32
}

// OpenFile starts streaming a CSV trace file.
func (CSVAdapter) OpenFile(path string) (*CSVStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.Comment = '#'
	r.TrimLeadingSpace = true

	headerRow, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("format: csv header: %w", err)
	}
	columns := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		columns[strings.TrimSpace(name)] = i
	}
	if _, ok := columns["t_ingress"]; !ok {
		if _, ok := columns["timestamp_ns"]; !ok {
			f.Close()
			return nil, fmt.Errorf("format: csv missing timestamp column")
		}
	}

	return &CSVStream{f: f, r: r, columns: columns}, nil
}

// Next returns the next trace, or io.EOF at end of file.
func (s *CSVStream) Next() (model.StandardTrace, error) {
	row, err := s.r.Read()
	if err != nil {
		return model.StandardTrace{}, err
	}

	tsColumn := "t_ingress"
	if !s.has(tsColumn) {
		tsColumn = "timestamp_ns"
	}
	tIngress, err := s.uintField(row, tsColumn, 0, false)
	if err != nil {
		return model.StandardTrace{}, err
	}

	tEgress, err := s.uintField(row, "t_egress", tIngress+100, true)
	if err != nil {
		return model.StandardTrace{}, err
	}

	data, err := s.dataField(row)
	if err != nil {
		return model.StandardTrace{}, err
	}

	flags, err := s.uintField(row, "flags", 0, true)
	if err != nil {
		return model.StandardTrace{}, err
	}
	txID, err := s.uintField(row, "tx_id", uint64(s.autoSeq), true)
	if err != nil {
		return model.StandardTrace{}, err
	}
	coreID, err := s.uintField(row, "core_id", 0, true)
	if err != nil {
		return model.StandardTrace{}, err
	}
	seqNo, err := s.uintField(row, "seq_no", uint64(s.autoSeq), true)
	if err != nil {
		return model.StandardTrace{}, err
	}
	recType, err := s.uintField(row, "record_type", uint64(model.RecordTypeTxEvent), true)
	if err != nil {
		return model.StandardTrace{}, err
	}

	s.autoSeq++

	return model.StandardTrace{
		Version:    1,
		RecordType: uint8(recType),
		CoreID:     uint16(coreID),
		SeqNo:      uint32(seqNo),
		TIngress:   tIngress,
		TEgress:    tEgress,
		Data:       data,
		Flags:      uint16(flags),
		TxID:       uint16(txID),
	}, nil
}

func (s *CSVStream) Close() error { return s.f.Close() }

func (s *CSVStream) has(name string) bool {
	_, ok := s.columns[name]
	return ok
}

func (s *CSVStream) field(row []string, name string) (string, bool) {
	idx, ok := s.columns[name]
	if !ok || idx >= len(row) {
		return "", false
	}
	v := strings.TrimSpace(row[idx])
	return v, v != ""
}

func (s *CSVStream) uintField(row []string, name string, def uint64, optional bool) (uint64, error) {
	v, ok := s.field(row, name)
	if !ok {
		if optional {
			return def, nil
		}
		return 0, fmt.Errorf("format: csv row missing %s", name)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("format: csv %s: %w", name, err)
	}
	return n, nil
}

// dataField accepts both decimal and 0x-prefixed hex.
func (s *CSVStream) dataField(row []string) (uint64, error) {
	v, ok := s.field(row, "data")
	if !ok {
		return 0, nil
	}
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		n, err := strconv.ParseUint(v[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("format: csv data: %w", err)
		}
		return n, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("format: csv data: %w", err)
	}
	return n, nil
}
