package datalog

import (
	"encoding/binary"
	"math"
	"testing"
)

// packRows builds a synthetic binary log: header bytes of padding, then rows
// of little-endian float32 channels in canonical order.
func packRows(headerLen int, rows [][]float32) []byte {
	out := make([]byte, headerLen)
	for _, row := range rows {
		for _, v := range row {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
			out = append(out, b[:]...)
		}
	}
	return out
}

func syntheticRow(i int) []float32 {
	return []float32{
		float32(i) * 100, // timestamp
		3000 + float32(i)*50,
		95, 98, 185, 100,
		12.8, 12.5,
		55, 8.5, 24, 13.9,
	}
}

func TestDecodeBinaryCommitsLayout(t *testing.T) {
	rows := make([][]float32, 30)
	for i := range rows {
		rows[i] = syntheticRow(i)
	}
	data := packRows(64, rows)

	records, conf, issues, err := decodeBinary(data)
	if err != nil {
		t.Fatalf("decodeBinary: %v", err)
	}
	if conf != ConfidencePartial {
		t.Errorf("confidence = %q, want %q", conf, ConfidencePartial)
	}
	if len(issues) == 0 {
		t.Fatal("expected a committed-layout issue")
	}
	if len(records) != 30 {
		t.Fatalf("records = %d, want 30", len(records))
	}
	if got := records[5].Get(ChRPM); got != 3250 {
		t.Errorf("rpm[5] = %.0f, want 3250", got)
	}
	if got := records[0].Get(ChAFR); math.Abs(got-12.8) > 0.01 {
		t.Errorf("afr[0] = %.2f, want 12.8", got)
	}
}

func TestDecodeBinaryRejectsSmallBuffer(t *testing.T) {
	if _, _, _, err := decodeBinary(make([]byte, 32)); err == nil {
		t.Fatal("expected an error for an undersized buffer")
	}
}

func TestDecodeBinaryRejectsImplausibleValues(t *testing.T) {
	rows := make([][]float32, 30)
	for i := range rows {
		row := make([]float32, 12)
		for c := range row {
			row[c] = 1e9 // nothing RPM- or MAP-like
		}
		rows[i] = row
	}
	if _, _, _, err := decodeBinary(packRows(64, rows)); err == nil {
		t.Fatal("expected no layout to be committed")
	}
}

func TestReadFloat32Bounds(t *testing.T) {
	data := packRows(0, [][]float32{{1.5}})
	if v, ok := readFloat32(data, 0); !ok || v != 1.5 {
		t.Errorf("readFloat32(0) = %.1f, %t", v, ok)
	}
	if _, ok := readFloat32(data, 1); ok {
		t.Error("read past buffer end should fail")
	}
	if _, ok := readFloat32(data, -4); ok {
		t.Error("negative offset should fail")
	}

	nan := packRows(0, [][]float32{{float32(math.NaN())}})
	if _, ok := readFloat32(nan, 0); ok {
		t.Error("NaN should be rejected")
	}
}
