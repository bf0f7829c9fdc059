package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/olegiv/sniper-tuner-go/internal/datalog"
	"github.com/olegiv/sniper-tuner-go/internal/profile"
)

// defaultWOTTarget stands in when the log has no target_afr channel.
const defaultWOTTarget = 12.8

// richBoundary flags samples rich enough to cost power on any combo.
const richBoundary = 11.5

// WOTRun is one sustained wide-open throttle window.
type WOTRun struct {
	StartIndex int
	EndIndex   int
	Samples    int

	AvgAFR       float64
	MinAFR       float64
	MaxAFR       float64
	AvgTarget    float64
	AFRDeviation float64
	PeakRPM      float64

	// LeanSpikes counts sustained excursions past the lean boundary, not
	// individual samples. Shift flares shorter than three samples are
	// ignored.
	LeanSpikes int
	RichSpots  int
}

// WOTResult is the full-throttle fueling picture for a log.
type WOTResult struct {
	Runs          []WOTRun
	OverallAvgAFR float64

	// LeanBoundary is the AFR above which a WOT sample is dangerous for
	// this combo.
	LeanBoundary float64

	Confidence datalog.Confidence
}

// LeanBoundaryFor returns the AFR above which WOT fueling is unsafe for a
// power-adder class. Nitrous and boost pull the line down: a lean backfire
// under spray or boost is an engine-out event, not a driveability complaint.
func LeanBoundaryFor(powerAdder string) float64 {
	switch powerAdder {
	case "nitrous":
		return 13.4
	case "boost":
		return 13.2
	default:
		return 14.0
	}
}

// AnalyzeWOT finds sustained full-throttle windows and summarizes fueling in
// each.
func AnalyzeWOT(log *datalog.DecodedLog, veh *profile.VehicleProfile, s Settings) *WOTResult {
	s = s.withDefaults()
	boundary := LeanBoundaryFor(veh.PowerAdder())
	result := &WOTResult{LeanBoundary: boundary, Confidence: log.Confidence}

	for _, w := range wotWindows(log, s) {
		run := summarizeRun(log, w[0], w[1], boundary)
		result.Runs = append(result.Runs, run)
		// A window without wideband data leaves the fueling picture
		// incomplete no matter how cleanly the log decoded.
		if run.AvgAFR == 0 {
			result.Confidence = result.Confidence.Degrade(datalog.ConfidencePartial)
		}
	}

	if len(result.Runs) > 0 {
		var sum float64
		for _, r := range result.Runs {
			sum += r.AvgAFR
		}
		result.OverallAvgAFR = sum / float64(len(result.Runs))
	}
	return result
}

// wotWindows returns [start, end) index pairs of sustained WOT windows.
func wotWindows(log *datalog.DecodedLog, s Settings) [][2]int {
	var windows [][2]int
	inWOT := false
	start := 0

	for i, r := range log.Records {
		wot := r.Get(datalog.ChTPSPct) >= s.WOTTPSThresholdPct
		switch {
		case wot && !inWOT:
			inWOT = true
			start = i
		case !wot && inWOT:
			inWOT = false
			if i-start >= s.WOTMinSamples {
				windows = append(windows, [2]int{start, i})
			}
		}
	}
	if inWOT && len(log.Records)-start >= s.WOTMinSamples {
		windows = append(windows, [2]int{start, len(log.Records)})
	}
	return windows
}

func summarizeRun(log *datalog.DecodedLog, start, end int, leanBoundary float64) WOTRun {
	run := WOTRun{
		StartIndex: start,
		EndIndex:   end,
		Samples:    end - start,
		MinAFR:     1e9,
	}

	afrs := make([]float64, 0, end-start)
	var targetSum, devSum float64
	leanStreak := 0

	for i := start; i < end; i++ {
		r := log.Records[i]

		afr, hasAFR := r.Value(datalog.ChAFR)
		if !hasAFR {
			continue
		}
		afrs = append(afrs, afr)

		target := defaultWOTTarget
		if t, ok := r.Value(datalog.ChTargetAFR); ok {
			target = t
		}
		targetSum += target
		devSum += abs(afr - target)

		if afr > leanBoundary {
			leanStreak++
			if leanStreak == 3 {
				run.LeanSpikes++
			}
		} else {
			leanStreak = 0
		}
		if afr < richBoundary {
			run.RichSpots++
		}

		if afr < run.MinAFR {
			run.MinAFR = afr
		}
		if afr > run.MaxAFR {
			run.MaxAFR = afr
		}
		if rpm := r.Get(datalog.ChRPM); rpm > run.PeakRPM {
			run.PeakRPM = rpm
		}
	}

	if len(afrs) == 0 {
		run.MinAFR = 0
		// Still report peak RPM for logs without a wideband.
		for i := start; i < end; i++ {
			if rpm := log.Records[i].Get(datalog.ChRPM); rpm > run.PeakRPM {
				run.PeakRPM = rpm
			}
		}
		return run
	}

	n := float64(len(afrs))
	run.AvgAFR = stat.Mean(afrs, nil)
	run.AvgTarget = targetSum / n
	run.AFRDeviation = devSum / n
	return run
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
