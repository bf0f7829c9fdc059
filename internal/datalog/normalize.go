package datalog

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"io"
)

const stageNormalize = "normalize"

// maxDecompressedBytes caps inflation to guard against zip bombs. A full
// session at 100 Hz is well under this.
const maxDecompressedBytes = 256 << 20

// hasZlibSignature checks the two-byte zlib header: CMF 0x78 and a CMF/FLG
// pair that is a multiple of 31.
func hasZlibSignature(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	if data[0] != 0x78 {
		return false
	}
	return (uint16(data[0])<<8|uint16(data[1]))%31 == 0
}

// Normalize detects and strips the DLZ compression container. It is a pure
// transform: no I/O, input bytes are never modified.
//
// When the zlib signature is present but inflation fails (corrupt data), the
// original bytes are returned tagged FormatUnknown together with a
// *DecompressionError, so downstream decoders can still attempt raw-fallback
// parsing.
func Normalize(data []byte, source string) (*RawLog, error) {
	if !hasZlibSignature(data) {
		return &RawLog{Data: data, Format: FormatUncompressed, Source: source}, nil
	}

	inflated, err := inflateZlib(data)
	if err == nil {
		return &RawLog{Data: inflated, Format: FormatCompressed, Source: source}, nil
	}

	// A corrupt or truncated adler32 trailer fails the zlib reader even when
	// the deflate body is intact. Retry the body behind the 2-byte header.
	inflated, rawErr := inflateRaw(data[2:])
	if rawErr == nil {
		return &RawLog{Data: inflated, Format: FormatCompressed, Source: source}, nil
	}

	return &RawLog{Data: data, Format: FormatUnknown, Source: source}, &DecompressionError{Err: err}
}

func inflateZlib(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(io.LimitReader(r, maxDecompressedBytes))
}

func inflateRaw(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer func() { _ = r.Close() }()
	out, err := io.ReadAll(io.LimitReader(r, maxDecompressedBytes))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return out, nil
}
