package datalog

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
)

// GenerateSamplePass renders a synthetic drag pass as a CSV export: two
// seconds of staging idle, a six-second wide-open pull through two gear
// shifts with momentary lean excursions at each shift, then coast-down. The
// generator is seeded so output is reproducible run to run.
func GenerateSamplePass() []byte {
	rng := rand.New(rand.NewSource(42))

	var b bytes.Buffer
	b.WriteString("Time (ms),RPM,MAP,TPS,CTS,MAT,AFR Left,Target AFR,Fuel Flow,Inj PW,Ignition Timing,Battery\n")

	const (
		hz       = 50
		staging  = 2.0
		pull     = 6.0
		coast    = 2.0
		launch   = 3200.0
		shiftRPM = 6400.0
		dropRPM  = 4600.0
	)

	writeRow := func(t, rpm, mapKPa, tps, afr, target, timing float64) {
		flow := rpm * tps / 1000.0 * 0.9
		pw := 2.0 + rpm/1000.0
		fmt.Fprintf(&b, "%.0f,%.0f,%.1f,%.1f,%.1f,%.1f,%.2f,%.2f,%.1f,%.2f,%.1f,%.2f\n",
			t*1000, rpm, mapKPa, tps, 185.0+rng.Float64()*3, 95.0+rng.Float64()*4,
			afr, target, flow, pw, timing, 13.8+rng.Float64()*0.3)
	}

	t := 0.0
	step := 1.0 / hz

	// Staging: closed throttle, idle speed wandering a little.
	for ; t < staging; t += step {
		rpm := 950 + rng.Float64()*60
		writeRow(t, rpm, 40+rng.Float64()*3, 1.5+rng.Float64(),
			13.5+rng.NormFloat64()*0.15, 13.5, 18+rng.Float64())
	}

	// Pull: RPM climbs through two shifts. AFR tracks the WOT target with a
	// lean spike for a few samples after each shift.
	rpm := launch
	leanUntil := -1.0
	for ; t < staging+pull; t += step {
		rpm += (520 + rng.Float64()*60) * step * 10
		if rpm > shiftRPM {
			rpm = dropRPM
			leanUntil = t + 0.12
		}
		afr := 12.5 + rng.NormFloat64()*0.12
		if t < leanUntil {
			afr = 13.6 + rng.Float64()*0.5
		}
		writeRow(t, rpm, 98+rng.Float64()*2, 99+rng.Float64(), afr, 12.5, wotTimingForRPM(rpm))
	}

	// Coast-down: throttle closed, decel fuel cut pushes AFR lean but within
	// the plausible window.
	for ; t < staging+pull+coast; t += step {
		rpm *= 0.985
		if rpm < 1100 {
			rpm = 1100
		}
		writeRow(t, rpm, 30+rng.Float64()*4, 0.5+rng.Float64(),
			16.5+rng.Float64()*2, 14.2, 24+rng.Float64()*2)
	}

	return b.Bytes()
}

// wotTimingForRPM approximates a conservative full-throttle timing curve.
func wotTimingForRPM(rpm float64) float64 {
	base := 14.0 + (rpm-3000.0)/1000.0*4.0
	return math.Min(base, 32.0)
}
