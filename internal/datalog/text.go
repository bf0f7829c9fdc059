package datalog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	stageText = "text"

	// delimiterProbeBytes is how far into the buffer we look for a
	// delimiter before treating the input as text at all.
	delimiterProbeBytes = 500
)

// decodeText interprets the buffer as a delimited text export with a header
// row. Column names are matched case-insensitively against the channel alias
// vocabulary; unrecognized columns are kept as opaque extra fields.
//
// Confidence is Full when RPM, AFR and ignition timing all mapped, Partial
// otherwise.
func decodeText(data []byte) ([]Record, Confidence, []Issue, error) {
	probe := data
	if len(probe) > delimiterProbeBytes {
		probe = probe[:delimiterProbeBytes]
	}
	if !utf8.Valid(probe) {
		return nil, "", nil, fmt.Errorf("input is not valid text")
	}

	var delim string
	switch {
	case strings.Contains(string(probe), ","):
		delim = ","
	case strings.Contains(string(probe), "\t"):
		delim = "\t"
	default:
		return nil, "", nil, fmt.Errorf("no delimiter found in first %d bytes", delimiterProbeBytes)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return nil, "", nil, fmt.Errorf("need a header row and at least one data row, got %d lines", len(lines))
	}

	columns, recognized := mapHeader(lines[0], delim)
	if recognized == 0 {
		return nil, "", nil, fmt.Errorf("header row contains no known channel names")
	}

	confidence := ConfidenceFull
	for _, req := range requiredChannels {
		if !containsColumn(columns, req) {
			confidence = ConfidencePartial
			break
		}
	}

	var issues []Issue
	records := make([]Record, 0, len(lines)-1)

	for lineNo, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := strings.Split(line, delim)
		if len(values) != len(columns) {
			issues = append(issues, Issue{
				Stage:       stageText,
				Position:    lineNo + 2, // 1-based, after header
				Description: fmt.Sprintf("row has %d fields, header has %d; row skipped", len(values), len(columns)),
			})
			continue
		}

		fields := make(map[string]float64, len(columns))
		for i, col := range columns {
			raw := strings.Trim(strings.TrimSpace(values[i]), `"`)
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				issues = append(issues, Issue{
					Stage:       stageText,
					Position:    lineNo + 2,
					Description: fmt.Sprintf("column %q: unparseable value %q, recorded as 0", col, raw),
				})
				v = 0
			}
			fields[col] = v
		}
		records = append(records, Record{Fields: fields})
	}

	if len(records) == 0 {
		return nil, "", nil, fmt.Errorf("no parseable data rows")
	}

	return records, confidence, issues, nil
}

// mapHeader resolves header column names to canonical channels. The second
// return value counts columns that matched the known vocabulary.
func mapHeader(header, delim string) ([]string, int) {
	raw := strings.Split(header, delim)
	columns := make([]string, len(raw))
	recognized := 0
	for i, col := range raw {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(col), `"`))
		if canonical, ok := channelAliases[name]; ok {
			columns[i] = canonical
			recognized++
			continue
		}
		// Opaque extra column: preserved, not discarded.
		columns[i] = strings.ReplaceAll(name, " ", "_")
	}
	return columns, recognized
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
