// Package recommend turns analysis results, time slips and the vehicle
// profile into prioritized tuning recommendations via a fixed rule table.
package recommend

import "github.com/olegiv/sniper-tuner-go/internal/profile"

// AFRTarget is a target air-fuel ratio with its acceptable window.
type AFRTarget struct {
	Target float64
	Min    float64
	Max    float64
	Note   string
}

// Drag-racing AFR targets. WOT targets are rich of peak power on purpose:
// tune from rich toward lean, never the other way.
var afrTargets = map[string]AFRTarget{
	"idle":        {Target: 13.5, Min: 12.8, Max: 14.2, Note: "slightly rich for staging stability"},
	"cruise":      {Target: 14.2, Min: 14.0, Max: 15.0, Note: "lean cruise between rounds"},
	"wot_na":      {Target: 12.5, Min: 12.0, Max: 13.0, Note: "naturally aspirated WOT"},
	"wot_nitrous": {Target: 11.8, Min: 11.2, Max: 12.3, Note: "richer for nitrous safety"},
	"wot_boost":   {Target: 11.5, Min: 11.0, Max: 12.0, Note: "rich for boost safety"},
	"wot_e85":     {Target: 9.8, Min: 9.0, Max: 10.5, Note: "E85 stoich is ~9.8:1"},
}

// WOTTarget returns the full-throttle AFR target for a combo. E85 overrides
// the power-adder class: its stoichiometric point moves the whole scale.
func WOTTarget(veh *profile.VehicleProfile) AFRTarget {
	if veh.FuelType == profile.FuelE85 {
		return afrTargets["wot_e85"]
	}
	return afrTargets["wot_"+veh.PowerAdder()]
}

// IdleTarget returns the idle AFR target.
func IdleTarget() AFRTarget { return afrTargets["idle"] }

// CruiseTarget returns the cruise AFR target.
func CruiseTarget() AFRTarget { return afrTargets["cruise"] }

// TimingTargets are starting-point spark numbers in degrees BTDC for a cam
// class. Add or remove two degrees at a time, watching for knock.
type TimingTargets struct {
	Idle   int
	Cruise int
	WOT    int
}

var timingByCam = map[string]TimingTargets{
	profile.CamStockMild:   {Idle: 18, Cruise: 34, WOT: 32},
	profile.CamStreetStrip: {Idle: 16, Cruise: 36, WOT: 34},
	profile.CamRace:        {Idle: 14, Cruise: 38, WOT: 36},
}

// TimingFor returns the timing targets for a cam class, defaulting to the
// stock/mild numbers for anything unrecognized.
func TimingFor(camType string) TimingTargets {
	if t, ok := timingByCam[camType]; ok {
		return t
	}
	return timingByCam[profile.CamStockMild]
}
