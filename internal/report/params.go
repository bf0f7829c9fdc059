package report

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/sniper-tuner-go/internal/profile"
	"github.com/olegiv/sniper-tuner-go/internal/recommend"
)

// ParameterDoc is the exportable parameter set. The native .sniper file is a
// proprietary binary only the vendor software can write, so changes are
// exported as a document to key in by hand.
type ParameterDoc struct {
	Metadata         Metadata          `yaml:"metadata"`
	EngineParameters EngineParameters  `yaml:"engine_parameters"`
	TargetAFRSimple  TargetAFRSimple   `yaml:"target_afr_simple"`
	AccelEnrichment  AccelEnrichment   `yaml:"acceleration_enrichment"`
	ClosedLoop       ClosedLoop        `yaml:"closed_loop"`
	TimingTargets    *TimingTargetsDoc `yaml:"timing_targets,omitempty"`
	Recommendations  []recommend.Recommendation `yaml:"recommendations"`
}

type Metadata struct {
	GeneratedBy string `yaml:"generated_by"`
	Date        string `yaml:"date"`
	Vehicle     string `yaml:"vehicle"`
	Engine      string `yaml:"engine"`
}

type EngineParameters struct {
	DisplacementCI int    `yaml:"displacement_ci"`
	CylinderCount  int    `yaml:"cylinder_count"`
	CamType        string `yaml:"cam_type"`
	IgnitionType   string `yaml:"ignition_type"`
}

type TargetAFRSimple struct {
	Idle   float64 `yaml:"idle"`
	Cruise float64 `yaml:"cruise"`
	WOT    float64 `yaml:"wot"`
}

type AccelEnrichment struct {
	TPSRoCBlanking int    `yaml:"tps_roc_blanking"`
	MAPRoCBlanking int    `yaml:"map_roc_blanking"`
	Note           string `yaml:"note"`
}

type ClosedLoop struct {
	EnableTemperatureF int  `yaml:"enable_temperature_f"`
	CompLimitPct       int  `yaml:"cl_comp_limit_pct"`
	LearnEnabled       bool `yaml:"learn_enabled"`
	LearnRate          int  `yaml:"learn_rate"`
}

type TimingTargetsDoc struct {
	IdleTimingBTDC   int    `yaml:"idle_timing_btdc"`
	CruiseTimingBTDC int    `yaml:"cruise_timing_btdc"`
	WOTTimingBTDC    int    `yaml:"wot_timing_btdc"`
	Note             string `yaml:"note"`
}

// BuildParameterDoc assembles the parameter export for a vehicle. Timing
// targets are included only when the combo runs timing control.
func BuildParameterDoc(v *profile.VehicleProfile, recs []recommend.Recommendation, now time.Time) *ParameterDoc {
	doc := &ParameterDoc{
		Metadata: Metadata{
			GeneratedBy: "sniper-tuner",
			Date:        now.Format(time.RFC3339),
			Vehicle:     fmt.Sprintf("%d %s %s", v.VehicleYear, v.VehicleMake, v.VehicleModel),
			Engine:      fmt.Sprintf("%dci %s", v.DisplacementCI, v.EngineType),
		},
		EngineParameters: EngineParameters{
			DisplacementCI: v.DisplacementCI,
			CylinderCount:  v.CylinderCount,
			CamType:        v.CamType,
			IgnitionType:   v.IgnitionType,
		},
		TargetAFRSimple: TargetAFRSimple{
			Idle:   recommend.IdleTarget().Target,
			Cruise: recommend.CruiseTarget().Target,
			WOT:    recommend.WOTTarget(v).Target,
		},
		AccelEnrichment: AccelEnrichment{
			TPSRoCBlanking: 8,
			MAPRoCBlanking: 10,
			Note:           "Apply these values via the Holley EFI software",
		},
		ClosedLoop: ClosedLoop{
			EnableTemperatureF: 120,
			CompLimitPct:       25,
			LearnEnabled:       true,
			LearnRate:          3,
		},
		Recommendations: recs,
	}

	if v.HasTimingControl {
		targets := recommend.TimingFor(v.CamType)
		doc.TimingTargets = &TimingTargetsDoc{
			IdleTimingBTDC:   targets.Idle,
			CruiseTimingBTDC: targets.Cruise,
			WOTTimingBTDC:    targets.WOT,
			Note:             "Starting points. Add or remove 2 degrees at a time, watching for knock.",
		}
	}
	return doc
}

// RenderYAML serializes the parameter document.
func RenderYAML(doc *ParameterDoc) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parameter document: %w", err)
	}
	return out, nil
}
