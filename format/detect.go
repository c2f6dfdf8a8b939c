package format

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Detect picks the adapter for a trace file. Returns the file header when one
// is present, nil otherwise.
//
// Order: .csv extension first, then the SNTL header (adapter chosen by
// version + record size), then size-divisibility fallback for headerless
// binary files (32-byte legacy before 48-byte). Anything else is
// ErrUnknownFormat.
func Detect(path string) (Adapter, *FileHeader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return CSVAdapter{}, nil, nil
	}

	if header := ProbeHeader(path); header != nil {
		adapter, err := adapterForHeader(*header)
		if err != nil {
			return nil, nil, err
		}
		return adapter, header, nil
	}

	size := info.Size()
	if size > 0 && size%V10Size == 0 {
		return V10Adapter{}, nil, nil
	}
	if size > 0 && size%V11Size == 0 {
		return V11Adapter{}, nil, nil
	}

	return nil, nil, fmt.Errorf("%w: %s (size %d not divisible by %d or %d)",
		ErrUnknownFormat, path, size, V10Size, V11Size)
}

func adapterForHeader(h FileHeader) (Adapter, error) {
	switch {
	case h.Version >= 1 && h.RecordSize == V12Size:
		return NewV12Adapter(float64(h.ClockMHz)), nil
	case h.Version >= 1 && h.RecordSize == V11Size:
		return V11Adapter{}, nil
	case h.Version >= 1 && h.RecordSize == V10Size:
		return V10Adapter{}, nil
	default:
		return nil, fmt.Errorf("%w: version=%d record_size=%d",
			ErrUnknownFormat, h.Version, h.RecordSize)
	}
}
