package recommend

import (
	"fmt"

	"github.com/olegiv/sniper-tuner-go/internal/analysis"
	"github.com/olegiv/sniper-tuner-go/internal/profile"
)

// rule is one entry in the fixed evaluation table. A rule returns at most one
// recommendation; nil means it did not fire. Declaration order breaks
// priority ties, so the table order is part of the contract.
type rule struct {
	name string
	eval func(in *Input) (*Recommendation, error)
}

var rules = []rule{
	{"wot_no_data", evalWOTNoData},
	{"wot_lean", evalWOTLean},
	{"wot_rich", evalWOTRich},
	{"lean_spikes", evalLeanSpikes},
	{"target_afr_table", evalTargetAFRTable},
	{"ae_lean", evalAELean},
	{"ae_rich", evalAERich},
	{"ae_blanking", evalAEBlanking},
	{"idle_rpm_stability", evalIdleRPMStability},
	{"idle_afr_stability", evalIdleAFRStability},
	{"timing_control_disabled", evalTimingControlDisabled},
	{"timing_conservative", evalTimingConservative},
	{"sixty_foot", evalSixtyFoot},
	{"et_consistency", evalETConsistency},
	{"wheel_hp", evalWheelHP},
	{"converter_stall", evalConverterStall},
	{"closed_loop_temp", evalClosedLoopTemp},
	{"e85_fueling", evalE85Fueling},
}

func evalWOTNoData(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.WOT == nil || len(in.Analysis.WOT.Runs) > 0 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Data Quality",
		Parameter:   "WOT Data",
		Current:     "No WOT runs found",
		Recommended: "Record a full-throttle pass",
		Reason:      "Full-throttle data is required to optimize fuel delivery for drag racing.",
		Priority:    1,
		Impact:      ImpactHigh,
	}, nil
}

// worstLeanRun returns the run with the highest average AFR.
func worstLeanRun(runs []analysis.WOTRun) *analysis.WOTRun {
	var worst *analysis.WOTRun
	for i := range runs {
		if runs[i].AvgAFR == 0 {
			continue
		}
		if worst == nil || runs[i].AvgAFR > worst.AvgAFR {
			worst = &runs[i]
		}
	}
	return worst
}

func evalWOTLean(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.WOT == nil {
		return nil, nil
	}
	run := worstLeanRun(in.Analysis.WOT.Runs)
	if run == nil {
		return nil, nil
	}
	target := WOTTarget(in.Profile)
	lean := run.AvgAFR - target.Target
	if lean <= 0.5 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "WOT Fueling",
		Parameter:   "Base Fuel Table",
		Current:     fmt.Sprintf("Avg AFR: %.1f", run.AvgAFR),
		Recommended: fmt.Sprintf("Target: %.1f", target.Target),
		Reason: fmt.Sprintf("WOT AFR is lean by %.1f ratio points. This costs power and risks engine damage. "+
			"Increase base fuel table values in the high-MAP/high-RPM cells by %d%% to %d%%.",
			lean, int(lean*5), int(lean*8)),
		Priority: 1,
		Impact:   ImpactHigh,
		Evidence: fmt.Sprintf("worst run: %d samples, peak %.0f RPM, avg AFR %.2f", run.Samples, run.PeakRPM, run.AvgAFR),
	}, nil
}

func evalWOTRich(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.WOT == nil {
		return nil, nil
	}
	target := WOTTarget(in.Profile)
	var worst *analysis.WOTRun
	for i := range in.Analysis.WOT.Runs {
		r := &in.Analysis.WOT.Runs[i]
		if r.AvgAFR == 0 {
			continue
		}
		if worst == nil || r.AvgAFR < worst.AvgAFR {
			worst = r
		}
	}
	if worst == nil {
		return nil, nil
	}
	rich := target.Target - worst.AvgAFR
	if rich <= 0.8 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "WOT Fueling",
		Parameter:   "Base Fuel Table",
		Current:     fmt.Sprintf("Avg AFR: %.1f", worst.AvgAFR),
		Recommended: fmt.Sprintf("Target: %.1f", target.Target),
		Reason: fmt.Sprintf("WOT AFR is overly rich by %.1f ratio points. Excess fuel kills power. "+
			"Reduce base fuel table values in high-MAP/high-RPM cells by %d%% to %d%%.",
			rich, int(rich*4), int(rich*6)),
		Priority: 2,
		Impact:   ImpactHigh,
		Evidence: fmt.Sprintf("worst run: %d samples, avg AFR %.2f", worst.Samples, worst.AvgAFR),
	}, nil
}

func evalLeanSpikes(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.WOT == nil {
		return nil, nil
	}
	spikes := 0
	for _, r := range in.Analysis.WOT.Runs {
		spikes += r.LeanSpikes
	}
	if spikes == 0 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "WOT Fueling",
		Parameter:   "Lean Spike Prevention",
		Current:     fmt.Sprintf("%d lean spikes detected", spikes),
		Recommended: "Zero lean spikes at WOT",
		Reason: "Lean spikes at WOT are dangerous. Add 5-10% fuel in the specific RPM cells " +
			"where the spikes occur and verify fuel pressure stability under load.",
		Priority: 1,
		Impact:   ImpactHigh,
		Evidence: fmt.Sprintf("lean boundary %.1f for this combo", in.Analysis.WOT.LeanBoundary),
	}, nil
}

func evalTargetAFRTable(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.WOT == nil || len(in.Analysis.WOT.Runs) == 0 {
		return nil, nil
	}
	target := WOTTarget(in.Profile)
	return &Recommendation{
		Category:    "Target AFR Table",
		Parameter:   "WOT Target AFR",
		Current:     fmt.Sprintf("Current measured avg: %.1f", in.Analysis.WOT.OverallAvgAFR),
		Recommended: fmt.Sprintf("Set WOT target to %.1f", target.Target),
		Reason: fmt.Sprintf("For drag racing on this combo a WOT target of %.1f:1 gives optimal power "+
			"with a safety margin (%s). Use Simple mode: set WOT to %.1f.",
			target.Target, target.Note, target.Target),
		Priority: 2,
		Impact:   ImpactHigh,
	}, nil
}

func evalAELean(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.AE == nil || in.Analysis.AE.LeanEvents == 0 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Acceleration Enrichment",
		Parameter:   "AE vs TPS RoC",
		Current:     fmt.Sprintf("%d lean AE events", in.Analysis.AE.LeanEvents),
		Recommended: "Zero lean events during AE",
		Reason: "Lean stumble on throttle application hurts launch and shift recovery. " +
			"Increase AE vs TPS Rate of Change values by 15-25% in the first 4-5 cells. " +
			"This acts like a bigger accelerator pump shot on a carb.",
		Priority: 2,
		Impact:   ImpactHigh,
	}, nil
}

func evalAERich(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.AE == nil {
		return nil, nil
	}
	ae := in.Analysis.AE
	total := len(ae.Events)
	if total <= 3 || float64(ae.RichEvents) <= float64(total)*0.5 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Acceleration Enrichment",
		Parameter:   "AE Reduction",
		Current:     fmt.Sprintf("%d/%d rich AE events", ae.RichEvents, total),
		Recommended: "Balanced AE fueling",
		Reason: "Excessive AE enrichment causes a rich bog on launch. " +
			"Reduce AE vs TPS RoC values by 10-20% starting from the middle cells.",
		Priority: 3,
		Impact:   ImpactMedium,
	}, nil
}

func evalAEBlanking(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.AE == nil || len(in.Analysis.AE.Events) == 0 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Acceleration Enrichment",
		Parameter:   "TPS RoC Blanking",
		Current:     "Check current value",
		Recommended: "Set to 7-10 for drag racing",
		Reason: "For drag strip use the TPS RoC Blanking value should be 7-10. The default of 5 " +
			"causes unwanted Open Loop transitions; too high misses enrichment on quick throttle snaps.",
		Priority: 4,
		Impact:   ImpactMedium,
	}, nil
}

func evalIdleRPMStability(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.Idle == nil || !in.Analysis.Idle.HasData {
		return nil, nil
	}
	idle := in.Analysis.Idle
	if idle.RPMSpread <= 150 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Idle",
		Parameter:   "Idle Stability",
		Current:     fmt.Sprintf("RPM spread: %.0f RPM", idle.RPMSpread),
		Recommended: "Spread < 80 RPM",
		Reason: "Unstable idle affects staging consistency and launch RPM reliability. " +
			"Check for vacuum leaks and verify IAC counts (3-20 at warm idle). " +
			"A fixed-orifice PCV valve reduces MAP fluctuations.",
		Priority: 3,
		Impact:   ImpactMedium,
		Evidence: fmt.Sprintf("%d idle samples, avg %.0f RPM, variance %.0f", idle.Samples, idle.AvgRPM, idle.RPMVariance),
	}, nil
}

func evalIdleAFRStability(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.Idle == nil || !in.Analysis.Idle.HasData {
		return nil, nil
	}
	idle := in.Analysis.Idle
	if idle.AFRSpread <= 1.5 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Idle",
		Parameter:   "Idle AFR Stability",
		Current:     fmt.Sprintf("AFR spread: %.1f", idle.AFRSpread),
		Recommended: "Spread < 0.8",
		Reason: "Wide AFR swings at idle mean the base fuel table is far from target and closed-loop " +
			"compensation is working overtime. Transfer Learning to Base, then smooth the table.",
		Priority: 3,
		Impact:   ImpactMedium,
	}, nil
}

func evalTimingControlDisabled(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.Timing == nil || in.Analysis.Timing.HasData {
		return nil, nil
	}
	if !in.Profile.HasTimingControl {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Ignition Timing",
		Parameter:   "Timing Control",
		Current:     "No timing data in log",
		Recommended: "Enable timing control",
		Reason: "Timing control is one of the biggest performance gains available. " +
			"Enable it through the EFI software with a proper timing sync procedure.",
		Priority: 1,
		Impact:   ImpactHigh,
	}, nil
}

func evalTimingConservative(in *Input) (*Recommendation, error) {
	if in.Analysis == nil || in.Analysis.Timing == nil || !in.Analysis.Timing.HasData {
		return nil, nil
	}
	targets := TimingFor(in.Profile.CamType)
	for _, band := range in.Analysis.Timing.Bands {
		if band.BandRPM < 3000 {
			continue
		}
		gap := float64(targets.WOT) - band.Avg
		if gap <= 4 {
			continue
		}
		return &Recommendation{
			Category:    "Ignition Timing",
			Parameter:   fmt.Sprintf("Timing @ %d RPM", band.BandRPM),
			Current:     fmt.Sprintf("Avg: %.1f° BTDC", band.Avg),
			Recommended: fmt.Sprintf("Target: ~%d° BTDC", targets.WOT),
			Reason: fmt.Sprintf("Timing is conservative by %.1f°. Adding timing at WOT typically gains "+
				"significant ET. Add 2° at a time and monitor for knock on %s fuel.",
				gap, in.Profile.FuelType),
			Priority: 2,
			Impact:   ImpactHigh,
			Evidence: fmt.Sprintf("band %d: %d samples, min %.1f max %.1f", band.BandRPM, band.Samples, band.Min, band.Max),
		}, nil
	}
	return nil, nil
}

// bestSlip picks the quickest complete pass.
func bestSlip(slips []profile.TimeSlip) *profile.TimeSlip {
	var best *profile.TimeSlip
	for i := range slips {
		if slips[i].QuarterET <= 0 {
			continue
		}
		if best == nil || slips[i].QuarterET < best.QuarterET {
			best = &slips[i]
		}
	}
	return best
}

func evalSixtyFoot(in *Input) (*Recommendation, error) {
	best := bestSlip(in.TimeSlips)
	if best == nil || best.Ft60 <= 1.8 {
		return nil, nil
	}
	etGain := (best.Ft60 - 1.6) * 2
	return &Recommendation{
		Category:    "Launch/60-Foot",
		Parameter:   "60-Foot Time",
		Current:     fmt.Sprintf("%.3fs (%s)", best.Ft60, best.SixtyFootQuality()),
		Recommended: "Target: 1.5-1.7s",
		Reason: fmt.Sprintf("Improving your 60-foot from %.3fs to ~1.6s could gain ~%.2fs in ET. "+
			"Focus on launch RPM, converter stall match, tire pressure (12-16 PSI on drag radials) "+
			"and suspension setup.", best.Ft60, etGain),
		Priority: 2,
		Impact:   ImpactHigh,
	}, nil
}

func evalETConsistency(in *Input) (*Recommendation, error) {
	var ets []float64
	for _, s := range in.TimeSlips {
		if s.QuarterET > 0 {
			ets = append(ets, s.QuarterET)
		}
	}
	if len(ets) < 3 {
		return nil, nil
	}
	min, max := ets[0], ets[0]
	for _, et := range ets[1:] {
		if et < min {
			min = et
		}
		if et > max {
			max = et
		}
	}
	spread := max - min
	if spread <= 0.3 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Consistency",
		Parameter:   "ET Variance",
		Current:     fmt.Sprintf("Spread: %.3fs over %d runs", spread, len(ets)),
		Recommended: "Spread < 0.15s",
		Reason: fmt.Sprintf("ET varies by %.3fs. For bracket racing consistency is key. Check staging "+
			"depth, tire pressure, water temp at launch, and use the same throttle technique every pass.",
			spread),
		Priority: 4,
		Impact:   ImpactMedium,
	}, nil
}

func evalWheelHP(in *Input) (*Recommendation, error) {
	best := bestSlip(in.TimeSlips)
	if best == nil || best.QuarterMPH <= 0 {
		return nil, nil
	}
	if in.Profile.WeightLbs <= 0 {
		return nil, &InvalidProfileError{Rule: "wheel_hp", Field: "vehicle_weight_lbs"}
	}
	hp := best.CalculatedHP(float64(in.Profile.WeightLbs))
	return &Recommendation{
		Category:    "Performance",
		Parameter:   "Estimated Wheel HP",
		Current:     fmt.Sprintf("ET: %.3fs @ %.1f MPH", best.QuarterET, best.QuarterMPH),
		Recommended: fmt.Sprintf("Est. WHP: %.0f", hp),
		Reason: fmt.Sprintf("A trap speed of %.1f MPH at %d lbs suggests ~%.0f WHP. "+
			"ET improvements will come from better launches and optimized fueling.",
			best.QuarterMPH, in.Profile.WeightLbs, hp),
		Priority: 5,
		Impact:   ImpactLow,
	}, nil
}

func evalConverterStall(in *Input) (*Recommendation, error) {
	if in.Profile.CamType != profile.CamStreetStrip {
		return nil, nil
	}
	if in.Profile.ConverterStall <= 0 {
		return nil, &InvalidProfileError{Rule: "converter_stall", Field: "converter_stall"}
	}
	if in.Profile.ConverterStall >= 2800 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Drivetrain",
		Parameter:   "Torque Converter",
		Current:     fmt.Sprintf("Stall: %d RPM", in.Profile.ConverterStall),
		Recommended: "2800-3500 RPM for a street/strip cam",
		Reason: "The cam profile makes peak torque above the converter stall speed. A higher-stall " +
			"converter lets the engine launch in its powerband, significantly improving 60-foot times.",
		Priority: 3,
		Impact:   ImpactHigh,
	}, nil
}

func evalClosedLoopTemp(in *Input) (*Recommendation, error) {
	if in.Analysis == nil {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Closed Loop",
		Parameter:   "CL Enable Temperature",
		Current:     "Default: 160°F",
		Recommended: "Set to 120°F for drag racing",
		Reason: "Between rounds the engine may cool below 160°F. Lowering the enable temperature " +
			"to 120°F keeps the system in Closed Loop between passes, preventing Open Loop " +
			"fueling surprises.",
		Priority: 3,
		Impact:   ImpactMedium,
	}, nil
}

func evalE85Fueling(in *Input) (*Recommendation, error) {
	if in.Profile.FuelType != profile.FuelE85 {
		return nil, nil
	}
	return &Recommendation{
		Category:    "Fuel System",
		Parameter:   "E85 Fueling",
		Current:     "Fuel type: e85",
		Recommended: "Increase base fuel ~30% over gasoline",
		Reason: "E85 needs roughly 30% more fuel volume than gasoline. Verify injector flow capacity " +
			"and raise base fuel table values accordingly. Target AFR for E85 at WOT: 9.8:1.",
		Priority: 1,
		Impact:   ImpactHigh,
	}, nil
}
