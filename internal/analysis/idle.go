package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/olegiv/sniper-tuner-go/internal/datalog"
)

// Idle qualification window: engine running but off the pedal.
const (
	idleRPMMin = 400.0
	idleRPMMax = 1200.0
	idleTPSMax = 5.0
)

// IdleResult summarizes idle quality. Spread fields are peak-to-peak; the
// variance fields are sample variance for stability grading.
type IdleResult struct {
	HasData bool
	Samples int

	AvgRPM      float64
	RPMSpread   float64
	RPMVariance float64

	AvgAFR    float64
	AFRSpread float64

	AvgMAP    float64
	MAPSpread float64
}

// AnalyzeIdle summarizes the samples taken at a settled idle.
func AnalyzeIdle(log *datalog.DecodedLog) *IdleResult {
	var rpms, afrs, maps []float64
	for _, r := range log.Records {
		rpm := r.Get(datalog.ChRPM)
		if rpm <= idleRPMMin || rpm >= idleRPMMax || r.Get(datalog.ChTPSPct) >= idleTPSMax {
			continue
		}
		rpms = append(rpms, rpm)
		if afr, ok := r.Value(datalog.ChAFR); ok {
			afrs = append(afrs, afr)
		}
		if m, ok := r.Value(datalog.ChMAPkPa); ok {
			maps = append(maps, m)
		}
	}

	if len(rpms) == 0 {
		return &IdleResult{}
	}

	result := &IdleResult{
		HasData:   true,
		Samples:   len(rpms),
		AvgRPM:    stat.Mean(rpms, nil),
		RPMSpread: spread(rpms),
	}
	if len(rpms) > 1 {
		result.RPMVariance = stat.Variance(rpms, nil)
	}
	if len(afrs) > 0 {
		result.AvgAFR = stat.Mean(afrs, nil)
		result.AFRSpread = spread(afrs)
	}
	if len(maps) > 0 {
		result.AvgMAP = stat.Mean(maps, nil)
		result.MAPSpread = spread(maps)
	}
	return result
}

// spread is peak-to-peak range.
func spread(values []float64) float64 {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}
