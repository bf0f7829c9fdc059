// Package datalog decodes Holley Sniper EFI datalog files (.dlz/.dl and CSV
// exports) into a canonical in-memory representation.
//
// The DLZ container is a zlib-compressed DL file. The DL binary layout is not
// publicly documented, so decoding degrades through three strategies: CSV
// text, heuristic binary row scanning, and raw float extraction. Every decode
// carries an explicit confidence level and a list of parse issues.
package datalog

// Canonical channel names recorded by Sniper EFI systems.
const (
	ChTimestampMS  = "timestamp_ms"
	ChRPM          = "rpm"
	ChMAPkPa       = "map_kpa"
	ChTPSPct       = "tps_pct"
	ChCoolantTempF = "coolant_temp_f"
	ChIATF         = "iat_f"
	ChAFR          = "afr"
	ChTargetAFR    = "target_afr"
	ChFuelFlowLbHr = "fuel_flow_lbhr"
	ChInjPWMs      = "inj_pw_ms"
	ChIgnTimingDeg = "ign_timing_deg"
	ChBatteryV     = "battery_v"
	ChCLCompPct    = "cl_comp_pct"
	ChLearnPct     = "learn_pct"
	ChAEActive     = "ae_active"
	ChIACCounts    = "iac_counts"
	ChVSSMph       = "vss_mph"
	ChFuelPressPSI = "fuel_pressure_psi"
	ChCLStatus     = "cl_status"
	ChTPSRoC       = "tps_roc"
	ChMAPRoC       = "map_roc"
	ChKnock        = "knock"
)

// canonicalChannels is the positional channel order assumed by the binary
// decoder when it commits to a row stride.
var canonicalChannels = []string{
	ChTimestampMS, ChRPM, ChMAPkPa, ChTPSPct, ChCoolantTempF, ChIATF,
	ChAFR, ChTargetAFR, ChFuelFlowLbHr, ChInjPWMs, ChIgnTimingDeg,
	ChBatteryV, ChCLCompPct, ChLearnPct, ChAEActive, ChIACCounts,
	ChVSSMph, ChFuelPressPSI, ChCLStatus, ChTPSRoC, ChMAPRoC, ChKnock,
}

// channelAliases maps lower-cased CSV header names to canonical channels.
// Holley software and third-party viewers are not consistent about headers.
var channelAliases = map[string]string{
	"rpm": ChRPM, "engine rpm": ChRPM, "eng rpm": ChRPM,
	"map": ChMAPkPa, "map kpa": ChMAPkPa, "manifold pressure": ChMAPkPa, "map/vacuum": ChMAPkPa, "vacuum": ChMAPkPa,
	"tps": ChTPSPct, "tps %": ChTPSPct, "throttle": ChTPSPct,
	"clt": ChCoolantTempF, "coolant": ChCoolantTempF, "ect": ChCoolantTempF, "cts": ChCoolantTempF,
	"iat": ChIATF, "intake temp": ChIATF, "mat": ChIATF,
	"afr": ChAFR, "afr left": ChAFR, "air fuel": ChAFR, "wbo2": ChAFR, "a/f": ChAFR,
	"target afr": ChTargetAFR, "tgt afr": ChTargetAFR,
	"fuel flow": ChFuelFlowLbHr, "fuel": ChFuelFlowLbHr,
	"pw": ChInjPWMs, "pulse width": ChInjPWMs, "injpw": ChInjPWMs, "inj pw": ChInjPWMs,
	"timing": ChIgnTimingDeg, "spark": ChIgnTimingDeg, "ign timing": ChIgnTimingDeg, "ignition timing": ChIgnTimingDeg,
	"battery": ChBatteryV, "batt": ChBatteryV, "bat v": ChBatteryV,
	"cl comp": ChCLCompPct, "clc": ChCLCompPct,
	"learn": ChLearnPct,
	"ae": ChAEActive, "accel enrich": ChAEActive,
	"iac": ChIACCounts,
	"speed": ChVSSMph, "vss": ChVSSMph, "mph": ChVSSMph,
	"fp": ChFuelPressPSI, "fuel pres": ChFuelPressPSI,
	"time": ChTimestampMS, "time (ms)": ChTimestampMS, "timestamp": ChTimestampMS,
	"knock": ChKnock,
}

// requiredChannels must all be present for a text decode to be rated Full.
var requiredChannels = []string{ChRPM, ChAFR, ChIgnTimingDeg}
