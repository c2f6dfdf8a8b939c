package format

import (
	"fmt"
	"io"
	"os"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

// TraceReader streams StandardTrace values out of a trace file of any
// supported format. It detects the format on Open, skips the header region
// before the first record, and stops cleanly at a truncated trailing record.
type TraceReader struct {
	Path    string
	Header  *FileHeader
	Adapter Adapter

	// DataOffset is where records start: HeaderSize for header-carrying
	// files, 0 otherwise.
	DataOffset int64

	f      *os.File
	csv    *CSVStream
	buf    []byte
	closed bool
}

// Open detects a file's format and positions the reader at the first record.
func Open(path string) (*TraceReader, error) {
	adapter, header, err := Detect(path)
	if err != nil {
		return nil, err
	}

	r := &TraceReader{Path: path, Header: header, Adapter: adapter}
	if header != nil {
		r.DataOffset = HeaderSize
	}

	if adapter.RecordSize() == 0 {
		csvAdapter, ok := adapter.(CSVAdapter)
		if !ok {
			return nil, fmt.Errorf("format: %s has no streaming reader", adapter.Name())
		}
		stream, err := csvAdapter.OpenFile(path)
		if err != nil {
			return nil, err
		}
		r.csv = stream
		return r, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if r.DataOffset > 0 {
		if _, err := f.Seek(r.DataOffset, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
	}
	r.f = f
	r.buf = make([]byte, adapter.RecordSize())
	return r, nil
}

// ClockMHz returns the file's clock frequency, defaulting to 100 MHz for
// headerless files.
func (r *TraceReader) ClockMHz() uint32 {
	if r.Header != nil && r.Header.ClockMHz > 0 {
		return r.Header.ClockMHz
	}
	return 100
}

// Next returns the next record, or io.EOF when the file is exhausted. A
// truncated trailing record also ends the stream with io.EOF rather than an
// error; lossy capture tails are expected.
func (r *TraceReader) Next() (model.StandardTrace, error) {
	if r.csv != nil {
		return r.csv.Next()
	}
	_, err := io.ReadFull(r.f, r.buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return model.StandardTrace{}, io.EOF
	}
	if err != nil {
		return model.StandardTrace{}, err
	}
	return r.Adapter.Decode(r.buf)
}

func (r *TraceReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.csv != nil {
		return r.csv.Close()
	}
	return r.f.Close()
}

// ReadAll decodes every record in a file. Convenience for tests and batch
// analysis; large captures should stream via Open/Next.
func ReadAll(path string) ([]model.StandardTrace, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var traces []model.StandardTrace
	for {
		t, err := r.Next()
		if err == io.EOF {
			return traces, nil
		}
		if err != nil {
			return traces, err
		}
		traces = append(traces, t)
	}
}

// Count reports how many records a file holds without decoding them all: the
// header's declared count when present, file size over record size otherwise.
// CSV needs a full pass.
func Count(path string) (uint64, error) {
	adapter, header, err := Detect(path)
	if err != nil {
		return 0, err
	}

	if header != nil && header.RecordCount > 0 {
		return header.RecordCount, nil
	}

	if adapter.RecordSize() == 0 {
		r, err := Open(path)
		if err != nil {
			return 0, err
		}
		defer r.Close()
		var n uint64
		for {
			if _, err := r.Next(); err != nil {
				if err == io.EOF {
					return n, nil
				}
				return n, err
			}
			n++
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	dataSize := info.Size()
	if header != nil {
		dataSize -= HeaderSize
	}
	return uint64(dataSize) / uint64(adapter.RecordSize()), nil
}
