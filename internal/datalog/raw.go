package datalog

import (
	"fmt"
)

const (
	stageRaw = "raw"

	// minRawRecords is the smallest run of plausible RPM values worth
	// reconstructing.
	minRawRecords = 10

	// rawSampleIntervalMS is the synthetic timebase assigned to salvaged
	// records (the true sample rate is unrecoverable at this stage).
	rawSampleIntervalMS = 100.0
)

// rawStrides are candidate byte distances between consecutive RPM samples.
var rawStrides = []int{8, 16, 24, 32, 48, 64, 80, 96, 112, 128}

// decodeRaw is the last-resort strategy: scan the buffer for runs of
// RPM-plausible float32 values repeating at a regular stride, and reconstruct
// a minimal record set (RPM plus timing when the adjacent value looks like
// degrees BTDC). It always attaches an issue recommending a re-export via the
// vendor software.
func decodeRaw(data []byte) ([]Record, Confidence, []Issue, error) {
	bestStart, bestStride, bestRun := 0, 0, 0

	for _, stride := range rawStrides {
		for start := 0; start < stride && start+4 <= len(data); start += 4 {
			run := rpmRunLength(data, start, stride)
			if run > bestRun {
				bestStart, bestStride, bestRun = start, stride, run
			}
		}
	}

	if bestRun < minRawRecords {
		return nil, "", nil, fmt.Errorf("no plausible RPM pattern found in %d bytes", len(data))
	}

	records := make([]Record, 0, bestRun)
	timingRecovered := false
	for i := 0; i < bestRun; i++ {
		offset := bestStart + i*bestStride
		rpm, _ := readFloat32(data, offset)

		fields := map[string]float64{
			ChTimestampMS: float64(i) * rawSampleIntervalMS,
			ChRPM:         rpm,
		}
		// The value following RPM is timing in every layout revision seen
		// so far; only trust it when it sits in a sane degrees range.
		if t, ok := readFloat32(data, offset+4); ok && t >= -10 && t <= 60 {
			fields[ChIgnTimingDeg] = t
			timingRecovered = true
		}
		records = append(records, Record{Fields: fields})
	}

	issues := []Issue{
		{
			Stage:       stageRaw,
			Position:    bestStart,
			Description: fmt.Sprintf("raw extraction recovered %d samples (stride %d, timing recovered: %t); timestamps are synthetic", bestRun, bestStride, timingRecovered),
		},
		{
			Stage:       stageRaw,
			Position:    0,
			Description: "datalog could not be fully parsed; for best results re-export it as CSV from the Holley EFI software",
		},
	}

	return records, ConfidenceRawFallback, issues, nil
}

// rpmRunLength counts consecutive stride-spaced values that sit in a
// plausible running-engine RPM range.
func rpmRunLength(data []byte, start, stride int) int {
	run := 0
	for offset := start; offset+4 <= len(data); offset += stride {
		v, ok := readFloat32(data, offset)
		if !ok || v < 400 || v > 9000 {
			break
		}
		run++
	}
	return run
}
