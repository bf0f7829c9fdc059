// Package report renders the tuning session for humans: a plain-text report
// and a YAML parameter document with the values to key into the EFI software.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/sniper-tuner-go/internal/analysis"
	"github.com/olegiv/sniper-tuner-go/internal/profile"
	"github.com/olegiv/sniper-tuner-go/internal/recommend"
)

const lineWidth = 70

// Data is everything one report is built from.
type Data struct {
	Profile         *profile.VehicleProfile
	Analysis        *analysis.Result
	TimeSlips       []profile.TimeSlip
	Recommendations []recommend.Recommendation

	// Narration is the optional LLM-written summary, appended verbatim.
	Narration string

	GeneratedAt time.Time
}

// RenderText produces the full plain-text tuning report.
func RenderText(d *Data) string {
	var b strings.Builder
	rule := strings.Repeat("=", lineWidth)
	sep := strings.Repeat("-", 40)

	b.WriteString(rule + "\n")
	b.WriteString("SNIPER EFI DRAG RACING TUNING REPORT\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", d.GeneratedAt.Format("2006-01-02 15:04"))

	writeVehicleSection(&b, sep, d.Profile)
	writeTimeSlipSection(&b, sep, d.TimeSlips)
	writeDatalogSection(&b, sep, d.Analysis)
	writeRecommendationSection(&b, sep, d.Recommendations)

	if d.Narration != "" {
		b.WriteString("TUNER'S NOTES\n")
		b.WriteString(sep + "\n")
		b.WriteString(strings.TrimSpace(d.Narration) + "\n\n")
	}

	b.WriteString(rule + "\n")
	b.WriteString("IMPORTANT: Always make changes one at a time and test.\n")
	b.WriteString(rule + "\n")
	return b.String()
}

func writeVehicleSection(b *strings.Builder, sep string, v *profile.VehicleProfile) {
	if v == nil {
		return
	}
	b.WriteString("VEHICLE SPECIFICATIONS\n")
	b.WriteString(sep + "\n")
	fmt.Fprintf(b, "Vehicle: %d %s %s\n", v.VehicleYear, v.VehicleMake, v.VehicleModel)
	fmt.Fprintf(b, "Engine: %dci %s\n", v.DisplacementCI, v.EngineType)
	fmt.Fprintf(b, "Cam: %s\n", v.CamProfileDesc())
	fmt.Fprintf(b, "Sniper: %s (%dHP)\n", v.SniperModel, v.SniperFlowHP)
	fmt.Fprintf(b, "Trans: %s (Stall: %d)\n", v.TransmissionModel, v.ConverterStall)
	fmt.Fprintf(b, "Gear: %.2f / Tire: %.1f\"\n", v.RearGearRatio, v.TireDiameterIn)
	fmt.Fprintf(b, "Weight: %d lbs\n", v.WeightLbs)
	fmt.Fprintf(b, "Fuel: %s\n", v.FuelType)
	fmt.Fprintf(b, "Est. HP: %.0f\n\n", v.EstimatedHP())
}

func writeTimeSlipSection(b *strings.Builder, sep string, slips []profile.TimeSlip) {
	if len(slips) == 0 {
		return
	}
	b.WriteString("TIME SLIP DATA\n")
	b.WriteString(sep + "\n")
	for i, ts := range slips {
		switch {
		case ts.QuarterET > 0:
			fmt.Fprintf(b, "Run #%d: %.3fs @ %.1f MPH\n", i+1, ts.QuarterET, ts.QuarterMPH)
			fmt.Fprintf(b, "  60ft: %.3fs | 1/8: %.3fs @ %.1f\n", ts.Ft60, ts.EighthET, ts.EighthMPH)
			fmt.Fprintf(b, "  60ft Quality: %s\n", ts.SixtyFootQuality())
			if segs := ts.Segments(); segs != nil {
				b.WriteString("  Segments:")
				for _, seg := range segs {
					fmt.Fprintf(b, " %s=%.3fs", seg.Name, seg.Seconds)
				}
				b.WriteString("\n")
			}
			if pickup := ts.MPHPickup(); pickup > 0 {
				fmt.Fprintf(b, "  MPH Pickup 1/8->1/4: %.1f\n", pickup)
			}
		case ts.EighthET > 0:
			fmt.Fprintf(b, "Run #%d: 1/8 mile: %.3fs @ %.1f MPH\n", i+1, ts.EighthET, ts.EighthMPH)
			fmt.Fprintf(b, "  60ft: %.3fs\n", ts.Ft60)
			if pred := ts.PredictedQuarterET(); pred > 0 {
				fmt.Fprintf(b, "  Predicted 1/4: %.3fs\n", pred)
			}
		}
	}
	b.WriteString("\n")
}

func writeDatalogSection(b *strings.Builder, sep string, a *analysis.Result) {
	if a == nil {
		return
	}
	b.WriteString("DATALOG ANALYSIS\n")
	b.WriteString(sep + "\n")
	fmt.Fprintf(b, "Source: %s (decoder: %s, confidence: %s)\n", a.Log.Source, a.Log.Decoder, a.Log.Confidence)
	fmt.Fprintf(b, "Duration: %.1fs over %d records\n", a.Log.DurationSeconds, a.Log.Records)
	fmt.Fprintf(b, "Max RPM: %.0f\n", a.Log.MaxRPM)
	fmt.Fprintf(b, "Max TPS: %.0f%%\n", a.Log.MaxTPS)
	if a.WOT != nil {
		fmt.Fprintf(b, "WOT Runs Found: %d\n", len(a.WOT.Runs))
		if a.WOT.OverallAvgAFR > 0 {
			fmt.Fprintf(b, "Avg WOT AFR: %.1f\n", a.WOT.OverallAvgAFR)
		}
	}
	if a.Idle != nil && a.Idle.HasData {
		fmt.Fprintf(b, "Idle: avg %.0f RPM, spread %.0f\n", a.Idle.AvgRPM, a.Idle.RPMSpread)
	}
	if a.Log.Issues > 0 {
		fmt.Fprintf(b, "Parse issues: %d\n", a.Log.Issues)
	}
	b.WriteString("\n")
}

func writeRecommendationSection(b *strings.Builder, sep string, recs []recommend.Recommendation) {
	b.WriteString("TUNING RECOMMENDATIONS\n")
	b.WriteString(sep + "\n")
	if len(recs) == 0 {
		b.WriteString("No recommendations. The logged data looks on target.\n\n")
		return
	}
	b.WriteString("(Sorted by priority: 1=Critical, 10=Nice-to-have)\n\n")

	for i, rec := range recs {
		fmt.Fprintf(b, "%d. [%s] %s\n", i+1, rec.Category, rec.Parameter)
		fmt.Fprintf(b, "   Priority: %d/10 | Impact: %s\n", rec.Priority, strings.ToUpper(rec.Impact))
		fmt.Fprintf(b, "   Current: %s\n", rec.Current)
		fmt.Fprintf(b, "   Recommended: %s\n", rec.Recommended)
		fmt.Fprintf(b, "   Reason: %s\n", rec.Reason)
		if rec.Evidence != "" {
			fmt.Fprintf(b, "   Evidence: %s\n", rec.Evidence)
		}
		b.WriteString("\n")
	}
}
