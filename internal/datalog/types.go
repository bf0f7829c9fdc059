package datalog

import (
	"fmt"
	"sort"
)

// Confidence rates how trustworthy a decoded log is.
type Confidence string

const (
	// ConfidenceFull means all required channels were decoded from a
	// self-describing format (CSV with a recognized header).
	ConfidenceFull Confidence = "full"

	// ConfidencePartial means the record stream was recovered but channel
	// assignment is best-effort (binary layout heuristics, or a CSV export
	// missing required channels).
	ConfidencePartial Confidence = "partial"

	// ConfidenceRawFallback means only fragments (RPM, maybe timing) were
	// salvaged by raw pattern scanning.
	ConfidenceRawFallback Confidence = "raw_fallback"
)

// Degrade returns the lower of two confidence levels. Derived metrics combine
// their own quality with the log's confidence through it.
func (c Confidence) Degrade(other Confidence) Confidence {
	rank := map[Confidence]int{ConfidenceFull: 2, ConfidencePartial: 1, ConfidenceRawFallback: 0}
	if rank[other] < rank[c] {
		return other
	}
	return c
}

// ContainerFormat is the detected on-disk container of a datalog file.
type ContainerFormat string

const (
	FormatCompressed   ContainerFormat = "compressed"
	FormatUncompressed ContainerFormat = "uncompressed"
	FormatUnknown      ContainerFormat = "unknown"
)

// RawLog is the output of the byte-stream normalizer: decompressed (or
// passed-through) bytes plus the detected container format. Immutable once
// produced.
type RawLog struct {
	Data   []byte
	Format ContainerFormat
	Source string
}

// Issue records a non-fatal parse problem at a position in the input.
// Position is a byte offset for binary stages and a line number for text.
type Issue struct {
	Stage       string
	Position    int
	Description string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s @%d: %s", i.Stage, i.Position, i.Description)
}

// Record is a single timestamped sample. Fields holds canonical channels plus
// any opaque extra columns carried over from a CSV export.
type Record struct {
	Fields map[string]float64
}

// Value returns a channel value and whether the channel was decoded.
func (r Record) Value(ch string) (float64, bool) {
	v, ok := r.Fields[ch]
	return v, ok
}

// Get returns a channel value, or 0 when the channel was not decoded.
func (r Record) Get(ch string) float64 {
	return r.Fields[ch]
}

// Timestamp returns the sample time in milliseconds.
func (r Record) Timestamp() float64 {
	return r.Fields[ChTimestampMS]
}

// DecodedLog is the canonical datalog representation. It is owned by the
// pipeline run that produced it and never mutated; re-parsing produces a new
// instance.
type DecodedLog struct {
	Records    []Record
	Confidence Confidence
	Issues     []Issue
	Source     string
	Decoder    string
}

// Channel returns one channel across all records, 0 where absent.
func (d *DecodedLog) Channel(ch string) []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Get(ch)
	}
	return out
}

// MaxRPM returns the highest decoded engine speed.
func (d *DecodedLog) MaxRPM() float64 {
	return d.maxOf(ChRPM)
}

// MaxTPS returns the highest decoded throttle position.
func (d *DecodedLog) MaxTPS() float64 {
	return d.maxOf(ChTPSPct)
}

func (d *DecodedLog) maxOf(ch string) float64 {
	var max float64
	for _, r := range d.Records {
		if v := r.Get(ch); v > max {
			max = v
		}
	}
	return max
}

// DurationSeconds returns the logged time span derived from timestamps.
func (d *DecodedLog) DurationSeconds() float64 {
	if len(d.Records) < 2 {
		return 0
	}
	return (d.Records[len(d.Records)-1].Timestamp() - d.Records[0].Timestamp()) / 1000.0
}

// HasChannel reports whether any record carries the channel.
func (d *DecodedLog) HasChannel(ch string) bool {
	for _, r := range d.Records {
		if _, ok := r.Value(ch); ok {
			return true
		}
	}
	return false
}

// Channels returns the sorted union of channel names across all records.
func (d *DecodedLog) Channels() []string {
	seen := make(map[string]bool)
	for _, r := range d.Records {
		for ch := range r.Fields {
			seen[ch] = true
		}
	}
	names := make([]string, 0, len(seen))
	for ch := range seen {
		names = append(names, ch)
	}
	sort.Strings(names)
	return names
}
