package datalog

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	stageBinary = "binary"

	// Probe window for locating the data section. Holley DL headers sit in
	// the first few hundred bytes, but the exact size varies by firmware.
	minDataOffset = 64
	maxDataOffset = 512

	// probeRows is how many consecutive rows must look plausible before a
	// candidate (offset, channel count) is committed.
	probeRows = 10

	// minViableRows rejects buffers that only yield a handful of rows.
	minViableRows = 5
)

// candidateChannelCounts are row widths to try, in 32-bit floats per row.
var candidateChannelCounts = []int{12, 16, 20, 24, 28, 32}

// decodeBinary attempts to interpret the buffer as packed little-endian
// float32 rows. The native DL layout is not publicly specified, so this is a
// heuristic: every read is bounds-checked, internal length fields are never
// trusted, and a candidate layout is only committed after probeRows
// consecutive rows hold values in physically plausible ranges.
//
// Confidence is always Partial: channel assignment is positional best-effort.
func decodeBinary(data []byte) ([]Record, Confidence, []Issue, error) {
	if len(data) < minDataOffset {
		return nil, "", nil, fmt.Errorf("buffer too small for a binary datalog (%d bytes)", len(data))
	}

	for start := minDataOffset; start < maxDataOffset && start < len(data); start++ {
		for _, channels := range candidateChannelCounts {
			rowSize := channels * 4
			if start+rowSize*probeRows > len(data) {
				continue
			}
			if !probeRowsPlausible(data, start, channels) {
				continue
			}

			records := readRows(data, start, channels)
			if len(records) < minViableRows {
				continue
			}

			issues := []Issue{{
				Stage:       stageBinary,
				Position:    start,
				Description: fmt.Sprintf("committed heuristic layout: %d channels per row at offset %d; channel names are best-effort", channels, start),
			}}
			return records, ConfidencePartial, issues, nil
		}
	}

	return nil, "", nil, fmt.Errorf("no plausible binary row layout found")
}

// probeRowsPlausible checks probeRows consecutive rows for values in
// physically sensible ranges: an RPM-like value (0..8000) in the first four
// columns and a MAP-like value (10..250 kPa) in the first eight.
func probeRowsPlausible(data []byte, start, channels int) bool {
	rowSize := channels * 4
	for row := 0; row < probeRows; row++ {
		offset := start + row*rowSize
		if offset+rowSize > len(data) {
			return false
		}

		rpmLike := false
		mapLike := false
		for ch := 0; ch < channels; ch++ {
			v, ok := readFloat32(data, offset+ch*4)
			if !ok {
				return false
			}
			if ch < 4 && v >= 0 && v <= 8000 {
				rpmLike = true
			}
			if ch < 8 && v >= 10 && v <= 250 {
				mapLike = true
			}
		}
		if !rpmLike || !mapLike {
			return false
		}
	}
	return true
}

// readRows parses every complete row from start to the end of the buffer.
func readRows(data []byte, start, channels int) []Record {
	rowSize := channels * 4
	names := canonicalChannels
	if channels < len(names) {
		names = names[:channels]
	}

	total := (len(data) - start) / rowSize
	records := make([]Record, 0, total)
	for row := 0; row < total; row++ {
		offset := start + row*rowSize
		fields := make(map[string]float64, len(names))
		for i, name := range names {
			v, ok := readFloat32(data, offset+i*4)
			if !ok {
				v = 0
			}
			fields[name] = v
		}
		records = append(records, Record{Fields: fields})
	}
	return records
}

// readFloat32 reads a little-endian float32, rejecting NaN and infinities.
func readFloat32(data []byte, offset int) (float64, bool) {
	if offset < 0 || offset+4 > len(data) {
		return 0, false
	}
	bits := binary.LittleEndian.Uint32(data[offset:])
	f := float64(math.Float32frombits(bits))
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
