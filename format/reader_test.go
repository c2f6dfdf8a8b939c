package format

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

func writeFile(t *testing.T, name string, chunks ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	var buf []byte
	for _, c := range chunks {
		buf = append(buf, c...)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func v11Trace(seq uint32, latency uint64) model.StandardTrace {
	return model.StandardTrace{
		Version:    1,
		RecordType: model.RecordTypeTxEvent,
		CoreID:     0,
		SeqNo:      seq,
		TIngress:   1000,
		TEgress:    1000 + latency,
		TxID:       uint16(seq),
	}
}

func TestReadHeaderedV11File(t *testing.T) {
	a := V11Adapter{}
	header := FileHeader{Version: 1, RecordSize: V11Size, ClockMHz: 100, RecordCount: 1}
	record := a.Encode(v11Trace(5, 250))

	path := writeFile(t, "one.bin", header.Encode(), record)

	traces, err := ReadAll(path)
	if err != nil {
		t.Fatal(err)
	}
	// the header region must never be decoded as a record
	if len(traces) != 1 {
		t.Fatalf("decoded %d traces, want 1", len(traces))
	}
	if traces[0].SeqNo != 5 || traces[0].Latency() != 250 {
		t.Fatalf("wrong trace: %+v", traces[0])
	}
}

func TestHeaderlessV10Detection(t *testing.T) {
	a := V10Adapter{}
	var chunks [][]byte
	for i := 0; i < 4; i++ {
		chunks = append(chunks, a.Encode(model.StandardTrace{TIngress: 100, TEgress: 200}))
	}
	path := writeFile(t, "legacy.bin", chunks...)

	adapter, header, err := Detect(path)
	if err != nil {
		t.Fatal(err)
	}
	if header != nil {
		t.Fatal("legacy file must not report a header")
	}
	if adapter.RecordSize() != V10Size {
		t.Fatalf("adapter = %s, want v1.0", adapter.Name())
	}

	traces, err := ReadAll(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(traces) != 4 {
		t.Fatalf("decoded %d traces, want 4", len(traces))
	}
}

func TestTruncatedTrailingRecordStopsStream(t *testing.T) {
	a := V11Adapter{}
	header := FileHeader{Version: 1, RecordSize: V11Size, ClockMHz: 100}
	full := a.Encode(v11Trace(0, 100))
	partial := a.Encode(v11Trace(1, 100))[:20]

	path := writeFile(t, "truncated.bin", header.Encode(), full, partial)

	traces, err := ReadAll(path)
	if err != nil {
		t.Fatalf("truncated tail must not error: %v", err)
	}
	if len(traces) != 1 {
		t.Fatalf("decoded %d traces, want 1", len(traces))
	}
}

func TestCountUsesHeaderDeclaration(t *testing.T) {
	a := V11Adapter{}
	header := FileHeader{Version: 1, RecordSize: V11Size, ClockMHz: 100, RecordCount: 999}
	path := writeFile(t, "declared.bin", header.Encode(), a.Encode(v11Trace(0, 1)))

	n, err := Count(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 999 {
		t.Fatalf("Count = %d, want declared 999", n)
	}
}

func TestCountFromFileSize(t *testing.T) {
	a := V10Adapter{}
	path := writeFile(t, "sized.bin",
		a.Encode(model.StandardTrace{}), a.Encode(model.StandardTrace{}), a.Encode(model.StandardTrace{}))
	n, err := Count(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("Count = %d, want 3", n)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.bin")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDetectUnknownFormat(t *testing.T) {
	path := writeFile(t, "odd.bin", make([]byte, 33)) // not divisible by 32 or 48
	if _, _, err := Detect(path); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestCSVReadWithDefaults(t *testing.T) {
	csv := "# demo fixture\n" +
		"t_ingress,data\n" +
		"1000,0xFF\n" +
		"2000,12\n"
	path := filepath.Join(t.TempDir(), "demo.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	traces, err := ReadAll(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(traces) != 2 {
		t.Fatalf("decoded %d traces, want 2", len(traces))
	}
	first := traces[0]
	if first.TEgress != 1100 {
		t.Errorf("default t_egress = %d, want t_ingress+100", first.TEgress)
	}
	if first.Data != 0xFF {
		t.Errorf("hex data = %d, want 255", first.Data)
	}
	if first.RecordType != model.RecordTypeTxEvent || first.CoreID != 0 || first.Flags != 0 {
		t.Errorf("defaults wrong: %+v", first)
	}
	if traces[0].SeqNo != 0 || traces[1].SeqNo != 1 {
		t.Errorf("auto seq wrong: %d, %d", traces[0].SeqNo, traces[1].SeqNo)
	}
	if traces[1].Data != 12 {
		t.Errorf("decimal data = %d, want 12", traces[1].Data)
	}

	n, err := Count(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("csv Count = %d, want 2", n)
	}
}

func TestCSVRoundTripViaEncode(t *testing.T) {
	in := sampleTrace()
	content := CSVHeader + string(CSVAdapter{}.Encode(in))
	path := filepath.Join(t.TempDir(), "rt.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	traces, err := ReadAll(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(traces) != 1 {
		t.Fatalf("decoded %d traces, want 1", len(traces))
	}
	if traces[0] != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", traces[0], in)
	}
}
