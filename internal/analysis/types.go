// Package analysis computes tuning metrics from a decoded datalog: wide-open
// throttle fueling, acceleration enrichment, idle stability and ignition
// timing by RPM band. All functions are pure; they never mutate the log.
package analysis

import (
	"github.com/olegiv/sniper-tuner-go/internal/datalog"
	"github.com/olegiv/sniper-tuner-go/internal/profile"
)

// Settings tunes the detectors. Zero values are replaced by defaults.
type Settings struct {
	// WOTTPSThresholdPct is the throttle position treated as wide open.
	WOTTPSThresholdPct float64

	// WOTMinSamples is the shortest sustained window counted as a pull.
	WOTMinSamples int
}

// DefaultSettings returns the stock detector thresholds.
func DefaultSettings() Settings {
	return Settings{
		WOTTPSThresholdPct: 95.0,
		WOTMinSamples:      4,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.WOTTPSThresholdPct <= 0 {
		s.WOTTPSThresholdPct = d.WOTTPSThresholdPct
	}
	if s.WOTMinSamples <= 0 {
		s.WOTMinSamples = d.WOTMinSamples
	}
	return s
}

// Result aggregates every metric for one datalog.
type Result struct {
	WOT    *WOTResult
	AE     *AEResult
	Idle   *IdleResult
	Timing *TimingResult
	Log    LogSummary
}

// LogSummary carries the decode metadata the metrics were computed from.
type LogSummary struct {
	Source          string
	Decoder         string
	Confidence      datalog.Confidence
	Records         int
	DurationSeconds float64
	MaxRPM          float64
	MaxTPS          float64
	Issues          int
}

// Analyze runs every detector over the log.
func Analyze(log *datalog.DecodedLog, veh *profile.VehicleProfile, s Settings) *Result {
	s = s.withDefaults()
	return &Result{
		WOT:    AnalyzeWOT(log, veh, s),
		AE:     AnalyzeAE(log),
		Idle:   AnalyzeIdle(log),
		Timing: AnalyzeTiming(log),
		Log: LogSummary{
			Source:          log.Source,
			Decoder:         log.Decoder,
			Confidence:      log.Confidence,
			Records:         len(log.Records),
			DurationSeconds: log.DurationSeconds(),
			MaxRPM:          log.MaxRPM(),
			MaxTPS:          log.MaxTPS(),
			Issues:          len(log.Issues),
		},
	}
}
