package datalog

// decoder is one decoding strategy. Strategies are tried in order; the first
// one to produce records wins.
type decoder struct {
	name string
	fn   func(data []byte) ([]Record, Confidence, []Issue, error)
}

// decoders is the fixed strategy order: structured text first, then the known
// binary layout, then raw float salvage.
var decoders = []decoder{
	{name: stageText, fn: decodeText},
	{name: stageBinary, fn: decodeBinary},
	{name: stageRaw, fn: decodeRaw},
}

// Decode turns normalized bytes into an ordered, validated DecodedLog. Issues
// from the normalization stage and from failed strategies are carried into
// the result so callers can surface them.
func Decode(raw *RawLog) (*DecodedLog, error) {
	if len(raw.Data) == 0 {
		return nil, &EmptyLogError{Source: raw.Source}
	}

	var carried []Issue
	if raw.Format == FormatUnknown {
		carried = append(carried, Issue{
			Stage:       stageNormalize,
			Description: "compressed container could not be inflated; decoding the original bytes",
		})
	}

	var attempts []Issue
	for _, d := range decoders {
		records, conf, issues, err := d.fn(raw.Data)
		if err != nil {
			attempts = append(attempts, Issue{
				Stage:       d.name,
				Description: err.Error(),
			})
			continue
		}

		all := make([]Issue, 0, len(carried)+len(issues))
		all = append(all, carried...)
		all = append(all, issues...)
		return Build(records, conf, all, raw.Source, d.name)
	}

	return nil, &UnparseableLogError{
		Source: raw.Source,
		Issues: append(carried, attempts...),
	}
}
