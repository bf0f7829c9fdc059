package datalog

import (
	"fmt"
	"sort"
)

const stageBuild = "build"

// AFR readings outside this window are sensor noise (open-circuit or warmup
// garbage), not combustion data.
const (
	minPlausibleAFR = 5.0
	maxPlausibleAFR = 25.0
)

// Build validates decoded records and assembles the final DecodedLog:
// implausible records are dropped (and counted as issues), the rest are
// stably sorted by timestamp, and duplicate timestamps are flagged but kept.
func Build(records []Record, conf Confidence, issues []Issue, source, decoderName string) (*DecodedLog, error) {
	kept := make([]Record, 0, len(records))
	dropped := 0
	for i, r := range records {
		if reason := validateRecord(r); reason != "" {
			dropped++
			issues = append(issues, Issue{Stage: stageBuild, Position: i, Description: reason})
			continue
		}
		kept = append(kept, r)
	}

	if len(kept) == 0 {
		return nil, &EmptyLogError{Source: source, Dropped: dropped}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp() < kept[j].Timestamp()
	})

	dupes := 0
	for i := 1; i < len(kept); i++ {
		if kept[i].Timestamp() == kept[i-1].Timestamp() {
			dupes++
		}
	}
	if dupes > 0 {
		issues = append(issues, Issue{
			Stage:       stageBuild,
			Description: fmt.Sprintf("%d duplicate timestamps kept; sample order within each is preserved", dupes),
		})
	}

	return &DecodedLog{
		Records:    kept,
		Confidence: conf,
		Issues:     issues,
		Source:     source,
		Decoder:    decoderName,
	}, nil
}

// validateRecord returns a drop reason, or "" when the record is usable.
func validateRecord(r Record) string {
	if rpm, ok := r.Value(ChRPM); ok && rpm < 0 {
		return fmt.Sprintf("negative RPM %.1f", rpm)
	}
	if afr, ok := r.Value(ChAFR); ok && (afr < minPlausibleAFR || afr > maxPlausibleAFR) {
		return fmt.Sprintf("AFR %.2f outside plausible range [%.0f, %.0f]", afr, minPlausibleAFR, maxPlausibleAFR)
	}
	return ""
}
