package datalog

import (
	"bytes"
	"compress/zlib"
	"errors"
	"testing"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeCompressed(t *testing.T) {
	payload := []byte("Time (ms),RPM\n0,950\n")
	raw, err := Normalize(zlibCompress(t, payload), "run.dlz")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if raw.Format != FormatCompressed {
		t.Errorf("format = %q, want %q", raw.Format, FormatCompressed)
	}
	if !bytes.Equal(raw.Data, payload) {
		t.Errorf("inflated data does not match original payload")
	}
	if raw.Source != "run.dlz" {
		t.Errorf("source = %q, want run.dlz", raw.Source)
	}
}

func TestNormalizeUncompressedPassthrough(t *testing.T) {
	payload := []byte("Time (ms),RPM\n0,950\n")
	raw, err := Normalize(payload, "run.csv")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if raw.Format != FormatUncompressed {
		t.Errorf("format = %q, want %q", raw.Format, FormatUncompressed)
	}
	if !bytes.Equal(raw.Data, payload) {
		t.Errorf("passthrough modified the data")
	}
}

func TestNormalizeCorruptTrailerRetry(t *testing.T) {
	payload := []byte("Time (ms),RPM\n0,950\n")
	data := zlibCompress(t, payload)
	// Flip a trailer byte: the zlib reader rejects the checksum but the
	// deflate body behind the header is still intact.
	data[len(data)-1] ^= 0xff

	raw, err := Normalize(data, "run.dlz")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if raw.Format != FormatCompressed {
		t.Errorf("format = %q, want %q", raw.Format, FormatCompressed)
	}
	if !bytes.Equal(raw.Data, payload) {
		t.Errorf("retry did not recover the payload")
	}
}

func TestNormalizeCorruptContainer(t *testing.T) {
	data := []byte{0x78, 0x9c, 0xff, 0xff, 0xff, 0xff, 0x00, 0x01}
	raw, err := Normalize(data, "bad.dlz")
	if err == nil {
		t.Fatal("expected a decompression error")
	}
	var de *DecompressionError
	if !errors.As(err, &de) {
		t.Fatalf("error type = %T, want *DecompressionError", err)
	}
	if raw == nil {
		t.Fatal("corrupt container should still return the original bytes")
	}
	if raw.Format != FormatUnknown {
		t.Errorf("format = %q, want %q", raw.Format, FormatUnknown)
	}
	if !bytes.Equal(raw.Data, data) {
		t.Errorf("original bytes were not preserved")
	}
}

func TestHasZlibSignature(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"default compression", []byte{0x78, 0x9c, 0x00}, true},
		{"best compression", []byte{0x78, 0xda, 0x00}, true},
		{"csv text", []byte("Time,RPM"), false},
		{"bad check pair", []byte{0x78, 0x00}, false},
		{"too short", []byte{0x78}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		if got := hasZlibSignature(tc.data); got != tc.want {
			t.Errorf("%s: hasZlibSignature = %t, want %t", tc.name, got, tc.want)
		}
	}
}
