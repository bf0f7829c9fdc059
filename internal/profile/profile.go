// Package profile holds vehicle build specs, time-slip data and the derived
// performance figures the tuning rules consume.
package profile

import "fmt"

// Cam profile classes. The class drives the timing and idle targets.
const (
	CamStockMild   = "stock_mild"
	CamStreetStrip = "street_strip"
	CamRace        = "race"
)

// Fuel types.
const (
	FuelPump87 = "pump_87"
	FuelPump91 = "pump_91"
	FuelPump93 = "pump_93"
	FuelE85    = "e85"
	FuelRace   = "race"
)

// VehicleProfile describes one vehicle in the garage config: engine, EFI
// unit, drivetrain and performance goals.
type VehicleProfile struct {
	Name string `json:"name"`

	// Engine
	DisplacementCI     int     `json:"engine_displacement_ci"`
	EngineType         string  `json:"engine_type"`
	CylinderCount      int     `json:"cylinder_count"`
	CompressionRatio   float64 `json:"compression_ratio"`
	CamType            string  `json:"cam_type"`
	CamDurationIntake  int     `json:"cam_duration_intake"`
	CamDurationExhaust int     `json:"cam_duration_exhaust"`
	CamLiftIntake      float64 `json:"cam_lift_intake"`
	CamLiftExhaust     float64 `json:"cam_lift_exhaust"`
	CamLSA             int     `json:"cam_lsa"`
	IdleVacuumInHg     float64 `json:"idle_vacuum_inhg"`
	HasTimingControl   bool    `json:"has_timing_control"`
	IgnitionType       string  `json:"ignition_type"`
	FuelType           string  `json:"fuel_type"`

	// EFI unit
	SniperModel      string  `json:"sniper_model"`
	SniperFlowHP     int     `json:"sniper_flow_hp"`
	InjectorFlowLbHr float64 `json:"injector_flow_lbhr"`
	FuelPressurePSI  float64 `json:"fuel_pressure_psi"`
	HasWidebandO2    bool    `json:"has_wideband_o2"`

	// Drivetrain
	TransmissionType  string  `json:"transmission_type"`
	TransmissionModel string  `json:"transmission_model"`
	ConverterStall    int     `json:"converter_stall"`
	RearGearRatio     float64 `json:"rear_gear_ratio"`
	TireDiameterIn    float64 `json:"tire_diameter_in"`
	TireType          string  `json:"tire_type"`

	// Vehicle
	WeightLbs    int    `json:"vehicle_weight_lbs"`
	VehicleYear  int    `json:"vehicle_year"`
	VehicleMake  string `json:"vehicle_make"`
	VehicleModel string `json:"vehicle_model"`

	// Goals and power adders
	TargetET      float64 `json:"target_et"`
	CurrentBestET float64 `json:"current_best_et"`
	UseNitrous    bool    `json:"use_nitrous"`
	NitrousHP     int     `json:"nitrous_hp"`
	UseBoost      bool    `json:"use_boost"`
	BoostPSI      float64 `json:"boost_psi"`
}

// Validate rejects profiles the rule engine cannot reason about.
func (v *VehicleProfile) Validate() error {
	if v.DisplacementCI <= 0 {
		return fmt.Errorf("engine_displacement_ci must be positive (got %d)", v.DisplacementCI)
	}
	if v.WeightLbs <= 0 {
		return fmt.Errorf("vehicle_weight_lbs must be positive (got %d)", v.WeightLbs)
	}
	switch v.CamType {
	case CamStockMild, CamStreetStrip, CamRace:
	default:
		return fmt.Errorf("cam_type must be %s, %s or %s (got %q)", CamStockMild, CamStreetStrip, CamRace, v.CamType)
	}
	switch v.FuelType {
	case FuelPump87, FuelPump91, FuelPump93, FuelE85, FuelRace:
	default:
		return fmt.Errorf("unknown fuel_type %q", v.FuelType)
	}
	if v.UseNitrous && v.NitrousHP <= 0 {
		return fmt.Errorf("nitrous_hp must be positive when use_nitrous is set")
	}
	if v.UseBoost && v.BoostPSI <= 0 {
		return fmt.Errorf("boost_psi must be positive when use_boost is set")
	}
	return nil
}

// EstimatedHP is a rough flywheel HP estimate from the build sheet: a per-CI
// baseline scaled by cam class, a small bump for high compression, then the
// power adders.
func (v *VehicleProfile) EstimatedHP() float64 {
	perCI := 1.0
	switch v.CamType {
	case CamStreetStrip:
		perCI = 1.3
	case CamRace:
		perCI = 1.5
	}

	hp := float64(v.DisplacementCI) * perCI
	if v.CompressionRatio > 10.5 {
		hp *= 1.05
	}
	if v.UseNitrous {
		hp += float64(v.NitrousHP)
	}
	if v.UseBoost {
		hp *= 1 + v.BoostPSI*0.06
	}
	return hp
}

// PowerAdder classifies the combo for AFR target selection.
func (v *VehicleProfile) PowerAdder() string {
	switch {
	case v.UseBoost:
		return "boost"
	case v.UseNitrous:
		return "nitrous"
	default:
		return "na"
	}
}

// CamProfileDesc renders the cam card in the conventional shorthand.
func (v *VehicleProfile) CamProfileDesc() string {
	return fmt.Sprintf("%d°/%d° @ .050\", .%03d/.%03d lift, %d° LSA",
		v.CamDurationIntake, v.CamDurationExhaust,
		int(v.CamLiftIntake*1000), int(v.CamLiftExhaust*1000), v.CamLSA)
}

// Description is a one-line human summary for reports and logs.
func (v *VehicleProfile) Description() string {
	return fmt.Sprintf("%d %s %s, %dci %s, %d lbs",
		v.VehicleYear, v.VehicleMake, v.VehicleModel,
		v.DisplacementCI, v.EngineType, v.WeightLbs)
}
