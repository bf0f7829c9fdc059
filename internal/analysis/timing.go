package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/olegiv/sniper-tuner-go/internal/datalog"
)

const (
	// timingBandWidth buckets timing observations by RPM.
	timingBandWidth = 500

	// timingMinRPM excludes cranking and stall samples.
	timingMinRPM = 500.0
)

// TimingBand is the observed spark advance within one RPM bucket.
type TimingBand struct {
	// BandRPM is the bucket floor: band 3500 covers 3500..3999.
	BandRPM  int
	Samples  int
	Avg      float64
	Min      float64
	Max      float64
	Variance float64
}

// TimingResult is the observed spark advance profile of a log.
type TimingResult struct {
	HasData    bool
	OverallAvg float64
	OverallMin float64
	OverallMax float64
	Bands      []TimingBand
}

// AnalyzeTiming buckets spark advance into RPM bands.
func AnalyzeTiming(log *datalog.DecodedLog) *TimingResult {
	if !log.HasChannel(datalog.ChIgnTimingDeg) {
		return &TimingResult{}
	}

	byBand := make(map[int][]float64)
	var all []float64
	for _, r := range log.Records {
		rpm := r.Get(datalog.ChRPM)
		if rpm <= timingMinRPM {
			continue
		}
		timing, ok := r.Value(datalog.ChIgnTimingDeg)
		if !ok {
			continue
		}
		band := int(rpm) / timingBandWidth * timingBandWidth
		byBand[band] = append(byBand[band], timing)
		all = append(all, timing)
	}

	if len(all) == 0 {
		return &TimingResult{}
	}

	result := &TimingResult{
		HasData:    true,
		OverallAvg: stat.Mean(all, nil),
		OverallMin: all[0],
		OverallMax: all[0],
	}
	for _, v := range all {
		if v < result.OverallMin {
			result.OverallMin = v
		}
		if v > result.OverallMax {
			result.OverallMax = v
		}
	}

	for band, timings := range byBand {
		tb := TimingBand{
			BandRPM: band,
			Samples: len(timings),
			Avg:     stat.Mean(timings, nil),
			Min:     timings[0],
			Max:     timings[0],
		}
		for _, v := range timings {
			if v < tb.Min {
				tb.Min = v
			}
			if v > tb.Max {
				tb.Max = v
			}
		}
		if len(timings) > 1 {
			tb.Variance = stat.Variance(timings, nil)
		}
		result.Bands = append(result.Bands, tb)
	}
	sort.Slice(result.Bands, func(i, j int) bool {
		return result.Bands[i].BandRPM < result.Bands[j].BandRPM
	})
	return result
}

// Band returns the band covering rpm, or nil when the log never visited it.
func (t *TimingResult) Band(rpm int) *TimingBand {
	floor := rpm / timingBandWidth * timingBandWidth
	for i := range t.Bands {
		if t.Bands[i].BandRPM == floor {
			return &t.Bands[i]
		}
	}
	return nil
}
