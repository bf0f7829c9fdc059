package analysis

import (
	"github.com/olegiv/sniper-tuner-go/internal/datalog"
)

const (
	// aeTPSRoCTrigger approximates the ECU's AE trigger when the log has no
	// ae_active channel: throttle moving faster than this is a tip-in.
	aeTPSRoCTrigger = 50.0

	// aeSettleSamples extends the AFR window past the event end so the
	// richen-then-settle tail is included.
	aeSettleSamples = 10
)

// AEEvent is one acceleration-enrichment episode: a throttle tip-in and the
// fueling response that followed.
type AEEvent struct {
	StartIndex      int
	EndIndex        int
	DurationSamples int
	PeakTPSRoC      float64
	AvgAFR          float64
}

// AEResult summarizes transient fueling quality.
type AEResult struct {
	Events []AEEvent

	// LeanEvents and RichEvents count episodes whose settled AFR indicates
	// the enrichment tables are off.
	LeanEvents int
	RichEvents int

	// FromTPSRoC is set when events were inferred from throttle rate
	// instead of the ae_active channel.
	FromTPSRoC bool
}

// AnalyzeAE walks acceleration-enrichment episodes. The ae_active channel is
// authoritative when the log has it; otherwise tip-ins are inferred from the
// throttle rate of change.
func AnalyzeAE(log *datalog.DecodedLog) *AEResult {
	result := &AEResult{}
	active := func(r datalog.Record) bool { return r.Get(datalog.ChAEActive) > 0 }
	if !log.HasChannel(datalog.ChAEActive) {
		if !log.HasChannel(datalog.ChTPSRoC) {
			return result
		}
		result.FromTPSRoC = true
		active = func(r datalog.Record) bool { return r.Get(datalog.ChTPSRoC) >= aeTPSRoCTrigger }
	}

	inEvent := false
	start := 0
	for i, r := range log.Records {
		a := active(r)
		switch {
		case a && !inEvent:
			inEvent = true
			start = i
		case !a && inEvent:
			inEvent = false
			result.Events = append(result.Events, buildAEEvent(log, start, i))
		}
	}
	if inEvent {
		result.Events = append(result.Events, buildAEEvent(log, start, len(log.Records)))
	}

	for _, ev := range result.Events {
		switch {
		case ev.AvgAFR > 14.0:
			result.LeanEvents++
		case ev.AvgAFR > 0 && ev.AvgAFR < 11.5:
			result.RichEvents++
		}
	}
	return result
}

func buildAEEvent(log *datalog.DecodedLog, start, end int) AEEvent {
	ev := AEEvent{
		StartIndex:      start,
		EndIndex:        end,
		DurationSamples: end - start,
	}

	for i := start; i < end; i++ {
		if v := log.Records[i].Get(datalog.ChTPSRoC); v > ev.PeakTPSRoC {
			ev.PeakTPSRoC = v
		}
	}

	// AFR response lags the throttle; include the settle tail.
	tail := end + aeSettleSamples
	if tail > len(log.Records) {
		tail = len(log.Records)
	}
	var sum float64
	n := 0
	for i := start; i < tail; i++ {
		if afr, ok := log.Records[i].Value(datalog.ChAFR); ok {
			sum += afr
			n++
		}
	}
	if n > 0 {
		ev.AvgAFR = sum / float64(n)
	}
	return ev
}
