package datalog

import (
	"fmt"
	"strings"
)

// DecompressionError reports a corrupt compressed container. It is
// recoverable: the normalizer still hands the original bytes to the decoders
// tagged FormatUnknown.
type DecompressionError struct {
	Err error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("compressed container signature present but decompression failed: %v", e.Err)
}

func (e *DecompressionError) Unwrap() error {
	return e.Err
}

// UnparseableLogError means every decode strategy was exhausted. It carries
// the issues collected from all strategies so the caller can surface them.
type UnparseableLogError struct {
	Source string
	Issues []Issue
}

func (e *UnparseableLogError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no decode strategy could parse %s (%d issues)", e.Source, len(e.Issues))
	for _, iss := range e.Issues {
		b.WriteString("\n  ")
		b.WriteString(iss.String())
	}
	return b.String()
}

// EmptyLogError means validation removed every record.
type EmptyLogError struct {
	Source  string
	Dropped int
}

func (e *EmptyLogError) Error() string {
	if e.Dropped > 0 {
		return fmt.Sprintf("datalog %s contains no usable records (%d dropped by validation)", e.Source, e.Dropped)
	}
	return fmt.Sprintf("datalog %s contains no records", e.Source)
}
