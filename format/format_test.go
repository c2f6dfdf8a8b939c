package format

import (
	"bytes"
	"testing"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

func sampleTrace() model.StandardTrace {
	return model.StandardTrace{
		Version:    1,
		RecordType: model.RecordTypeTxEvent,
		CoreID:     3,
		SeqNo:      0xDEADBEEF,
		TIngress:   1_000_000,
		TEgress:    1_000_450,
		Data:       0x0123456789ABCDEF,
		Flags:      0x0100,
		TxID:       42,
	}
}

func TestV10RoundTrip(t *testing.T) {
	a := V10Adapter{}
	in := sampleTrace()
	raw := a.Encode(in)
	if len(raw) != V10Size {
		t.Fatalf("encoded size = %d, want %d", len(raw), V10Size)
	}
	out, err := a.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	// v1.0 has no version/type/core/seq on the wire
	if out.TIngress != in.TIngress || out.TEgress != in.TEgress ||
		out.Data != in.Data || out.Flags != in.Flags || out.TxID != in.TxID {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
	if out.RecordType != model.RecordTypeTxEvent || out.CoreID != 0 || out.SeqNo != 0 {
		t.Fatalf("v1.0 defaults wrong: %+v", out)
	}
}

func TestV11RoundTrip(t *testing.T) {
	a := V11Adapter{}
	in := sampleTrace()
	raw := a.Encode(in)
	if len(raw) != V11Size {
		t.Fatalf("encoded size = %d, want %d", len(raw), V11Size)
	}
	out, err := a.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestV12RoundTrip(t *testing.T) {
	a := NewV12Adapter(100)
	in := sampleTrace()
	deltas := StageDeltas{Ingress: 100, Core: 200, Risk: 50, Egress: 80}

	raw := a.EncodeWithStages(in, deltas)
	if len(raw) != V12Size {
		t.Fatalf("encoded size = %d, want %d", len(raw), V12Size)
	}

	out, attr, err := a.DecodeAttributed(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}

	d, err := a.DecodeStages(raw)
	if err != nil {
		t.Fatal(err)
	}
	if d != deltas {
		t.Fatalf("stage deltas mismatch: %+v vs %+v", d, deltas)
	}

	// total 450 cycles at 100 MHz = 4500ns; stages sum to 430, overhead 20
	if attr.TotalNs != 4500 {
		t.Errorf("TotalNs = %v, want 4500", attr.TotalNs)
	}
	if attr.OverheadNs != 200 {
		t.Errorf("OverheadNs = %v, want 200", attr.OverheadNs)
	}
	stage, frac := attr.Bottleneck()
	if stage != "core" {
		t.Errorf("bottleneck = %q, want core", stage)
	}
	if frac < 0.44 || frac > 0.45 {
		t.Errorf("bottleneck fraction = %v, want ~0.444", frac)
	}
}

func TestV12FirstBytesMatchV11(t *testing.T) {
	in := sampleTrace()
	v11 := V11Adapter{}.Encode(in)
	v12 := NewV12Adapter(100).Encode(in)
	if !bytes.Equal(v11[:36], v12[:36]) {
		t.Fatal("v1.2 field region must match the v1.1 layout byte for byte")
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	adapters := []Adapter{V10Adapter{}, V11Adapter{}, NewV12Adapter(100)}
	for _, a := range adapters {
		if _, err := a.Decode(make([]byte, a.RecordSize()-1)); err == nil {
			t.Errorf("%s: expected error on short buffer", a.Name())
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	in := FileHeader{
		Version:     1,
		Endianness:  0,
		RecordSize:  48,
		ClockMHz:    200,
		RunID:       7,
		RecordCount: 1234,
	}
	raw := in.Encode()
	if len(raw) != HeaderSize {
		t.Fatalf("encoded size = %d, want %d", len(raw), HeaderSize)
	}
	out, err := DecodeHeader(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	raw := FileHeader{Version: 1, RecordSize: 48}.Encode()
	raw[0] = 'X'
	if _, err := DecodeHeader(raw); err == nil {
		t.Fatal("expected bad magic error")
	}
	if _, err := DecodeHeader(raw[:16]); err == nil {
		t.Fatal("expected short header error")
	}
}

func TestValidate(t *testing.T) {
	ok := sampleTrace()
	if msg := Validate(ok); msg != "" {
		t.Errorf("valid trace flagged: %s", msg)
	}

	inverted := ok
	inverted.TEgress = inverted.TIngress - 1
	if msg := Validate(inverted); msg == "" {
		t.Error("inverted timestamps not flagged")
	}

	slow := ok
	slow.TEgress = slow.TIngress + maxSaneLatency + 1
	if msg := Validate(slow); msg == "" {
		t.Error("implausible latency not flagged")
	}
}

func TestDecodeAll(t *testing.T) {
	a := V11Adapter{}
	in := sampleTrace()
	buf := append(a.Encode(in), a.Encode(in)...)
	buf = append(buf, a.Encode(in)[:10]...) // partial tail

	var got []model.StandardTrace
	skipped, err := DecodeAll(a, buf, func(tr model.StandardTrace) {
		got = append(got, tr)
	})
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	if len(got) != 2 || got[0] != in {
		t.Fatalf("decoded %d traces, want 2 matching input", len(got))
	}

	if _, err := DecodeAll(CSVAdapter{}, buf, func(model.StandardTrace) {}); err == nil {
		t.Fatal("variable-size adapter accepted")
	}
}
