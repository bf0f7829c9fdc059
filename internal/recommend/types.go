package recommend

import (
	"fmt"

	"github.com/olegiv/sniper-tuner-go/internal/analysis"
	"github.com/olegiv/sniper-tuner-go/internal/profile"
)

// Impact levels.
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

// Recommendation is one concrete tuning change. Priority 1 is critical,
// 10 is nice-to-have.
type Recommendation struct {
	Category    string `json:"category" yaml:"category"`
	Parameter   string `json:"parameter" yaml:"parameter"`
	Current     string `json:"current_value" yaml:"current_value"`
	Recommended string `json:"recommended_value" yaml:"recommended_value"`
	Reason      string `json:"reason" yaml:"reason"`
	Priority    int    `json:"priority" yaml:"priority"`
	Impact      string `json:"impact" yaml:"impact"`

	// Evidence points back at the data that fired the rule.
	Evidence string `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// Input is everything the rule table evaluates.
type Input struct {
	Profile   *profile.VehicleProfile
	Analysis  *analysis.Result
	TimeSlips []profile.TimeSlip
}

// InvalidProfileError marks a rule skipped because the profile lacks a field
// it reasons about. It is recorded, never fatal.
type InvalidProfileError struct {
	Rule  string
	Field string
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("rule %s skipped: profile field %s is missing or invalid", e.Rule, e.Field)
}
