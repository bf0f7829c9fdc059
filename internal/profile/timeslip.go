package profile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// eighthToQuarterFactor converts an eighth-mile ET into a quarter-mile
// prediction. Holds within a tenth or so for typical door cars.
const eighthToQuarterFactor = 1.5455

// TimeSlip is one drag-strip pass: incremental times, trap speeds and the
// weather the pass was run in.
type TimeSlip struct {
	Date         string  `json:"date"`
	TrackName    string  `json:"track_name"`
	Lane         string  `json:"lane"`
	ReactionTime float64 `json:"reaction_time"`
	Ft60         float64 `json:"ft_60"`
	Ft330        float64 `json:"ft_330"`
	EighthET     float64 `json:"eighth_et"`
	EighthMPH    float64 `json:"eighth_mph"`
	Ft1000       float64 `json:"ft_1000"`
	QuarterET    float64 `json:"quarter_et"`
	QuarterMPH   float64 `json:"quarter_mph"`
	DialIn       float64 `json:"dial_in"`

	TemperatureF      float64 `json:"temperature_f"`
	HumidityPct       float64 `json:"humidity_pct"`
	BarometerInHg     float64 `json:"barometer_inhg"`
	DensityAltitudeFt float64 `json:"density_altitude_ft"`
	WindMPH           float64 `json:"wind_mph"`
	WindDirection     string  `json:"wind_direction"`

	Notes           string  `json:"notes"`
	TirePressurePSI float64 `json:"tire_pressure_psi"`
	LaunchRPM       int     `json:"launch_rpm"`
}

// CalculatedHP estimates wheel HP from quarter-mile ET and race weight using
// the classic HP = weight / (ET/5.825)^3 relation. Returns 0 without a
// quarter ET.
func (t *TimeSlip) CalculatedHP(weightLbs float64) float64 {
	if t.QuarterET <= 0 || weightLbs <= 0 {
		return 0
	}
	return weightLbs / math.Pow(t.QuarterET/5.825, 3)
}

// PredictedQuarterET converts the eighth-mile ET when no quarter was run.
func (t *TimeSlip) PredictedQuarterET() float64 {
	if t.EighthET <= 0 {
		return 0
	}
	return t.EighthET * eighthToQuarterFactor
}

// SixtyFootQuality grades the launch.
func (t *TimeSlip) SixtyFootQuality() string {
	switch {
	case t.Ft60 <= 0:
		return "N/A"
	case t.Ft60 < 1.4:
		return "Excellent (race-ready)"
	case t.Ft60 < 1.6:
		return "Very Good"
	case t.Ft60 < 1.8:
		return "Good"
	case t.Ft60 < 2.0:
		return "Average"
	case t.Ft60 < 2.2:
		return "Below Average - traction/launch issue"
	default:
		return "Poor - significant traction/launch problems"
	}
}

// Segments returns the incremental splits when the full slip is present:
// launch (0-60ft), short track (60-330ft), middle (330-660ft) and top end
// (660-1320ft). Missing increments yield a nil slice.
func (t *TimeSlip) Segments() []Segment {
	if t.Ft60 <= 0 || t.Ft330 <= 0 || t.EighthET <= 0 || t.QuarterET <= 0 {
		return nil
	}
	return []Segment{
		{Name: "0-60ft", Seconds: t.Ft60},
		{Name: "60-330ft", Seconds: t.Ft330 - t.Ft60},
		{Name: "330-660ft", Seconds: t.EighthET - t.Ft330},
		{Name: "660-1320ft", Seconds: t.QuarterET - t.EighthET},
	}
}

// MPHPickup is the trap-speed gain from the eighth to the quarter, an
// indicator of top-end power. Returns 0 unless both traps were recorded.
func (t *TimeSlip) MPHPickup() float64 {
	if t.EighthMPH <= 0 || t.QuarterMPH <= 0 {
		return 0
	}
	return t.QuarterMPH - t.EighthMPH
}

// ParseSlipSpec parses a compact slip notation "ET@MPH[,60ft]", e.g.
// "11.65@118.2,1.68". The date is stamped with the current day.
func ParseSlipSpec(spec string) (*TimeSlip, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty time slip spec")
	}

	main := spec
	var sixty float64
	if idx := strings.Index(spec, ","); idx >= 0 {
		main = spec[:idx]
		v, err := strconv.ParseFloat(strings.TrimSpace(spec[idx+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid 60-ft time in %q: %w", spec, err)
		}
		sixty = v
	}

	etStr, mphStr, ok := strings.Cut(main, "@")
	if !ok {
		return nil, fmt.Errorf("time slip spec %q must be ET@MPH[,60ft]", spec)
	}
	et, err := strconv.ParseFloat(strings.TrimSpace(etStr), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ET in %q: %w", spec, err)
	}
	mph, err := strconv.ParseFloat(strings.TrimSpace(mphStr), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MPH in %q: %w", spec, err)
	}
	if et <= 0 || et > 60 {
		return nil, fmt.Errorf("ET %.3f out of range", et)
	}
	if mph <= 0 || mph > 350 {
		return nil, fmt.Errorf("trap speed %.1f out of range", mph)
	}
	if sixty < 0 || sixty > 10 {
		return nil, fmt.Errorf("60-ft time %.3f out of range", sixty)
	}

	return &TimeSlip{
		Date:       time.Now().Format("2006-01-02"),
		QuarterET:  et,
		QuarterMPH: mph,
		Ft60:       sixty,
	}, nil
}

// Segment is one timed section of the track.
type Segment struct {
	Name    string
	Seconds float64
}
