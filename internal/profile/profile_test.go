package profile

import (
	"math"
	"strings"
	"testing"
)

func validProfile() *VehicleProfile {
	return DefaultProfile()
}

func TestValidate(t *testing.T) {
	if err := validProfile().Validate(); err != nil {
		t.Fatalf("default profile should validate: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*VehicleProfile)
		wantErr string
	}{
		{"zero displacement", func(v *VehicleProfile) { v.DisplacementCI = 0 }, "engine_displacement_ci"},
		{"zero weight", func(v *VehicleProfile) { v.WeightLbs = 0 }, "vehicle_weight_lbs"},
		{"bad cam type", func(v *VehicleProfile) { v.CamType = "lumpy" }, "cam_type"},
		{"bad fuel type", func(v *VehicleProfile) { v.FuelType = "diesel" }, "fuel_type"},
		{"nitrous without jetting", func(v *VehicleProfile) { v.UseNitrous = true }, "nitrous_hp"},
		{"boost without pressure", func(v *VehicleProfile) { v.UseBoost = true }, "boost_psi"},
	}

	for _, tc := range cases {
		v := validProfile()
		tc.mutate(v)
		err := v.Validate()
		if err == nil {
			t.Errorf("%s: expected an error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("%s: err = %v, want mention of %s", tc.name, err, tc.wantErr)
		}
	}
}

func TestEstimatedHP(t *testing.T) {
	v := validProfile()
	// 350ci stock/mild cam, 9.5:1, no adders.
	if got := v.EstimatedHP(); got != 350 {
		t.Errorf("stock estimate = %.0f, want 350", got)
	}

	v.CamType = CamStreetStrip
	if got := v.EstimatedHP(); got != 455 {
		t.Errorf("street/strip estimate = %.0f, want 455", got)
	}

	v.CompressionRatio = 11.0
	want := 455 * 1.05
	if got := v.EstimatedHP(); math.Abs(got-want) > 0.01 {
		t.Errorf("high compression estimate = %.2f, want %.2f", got, want)
	}

	v.CompressionRatio = 9.5
	v.UseNitrous = true
	v.NitrousHP = 150
	if got := v.EstimatedHP(); got != 605 {
		t.Errorf("nitrous estimate = %.0f, want 605", got)
	}

	v.UseNitrous = false
	v.UseBoost = true
	v.BoostPSI = 10
	want = 455 * 1.6
	if got := v.EstimatedHP(); math.Abs(got-want) > 0.01 {
		t.Errorf("boost estimate = %.2f, want %.2f", got, want)
	}
}

func TestPowerAdder(t *testing.T) {
	v := validProfile()
	if got := v.PowerAdder(); got != "na" {
		t.Errorf("PowerAdder = %q, want na", got)
	}
	v.UseNitrous = true
	if got := v.PowerAdder(); got != "nitrous" {
		t.Errorf("PowerAdder = %q, want nitrous", got)
	}
	// Boost wins when both are set.
	v.UseBoost = true
	if got := v.PowerAdder(); got != "boost" {
		t.Errorf("PowerAdder = %q, want boost", got)
	}
}

func TestCamProfileDesc(t *testing.T) {
	v := validProfile()
	got := v.CamProfileDesc()
	for _, part := range []string{"210°", "218°", ".480", "112° LSA"} {
		if !strings.Contains(got, part) {
			t.Errorf("CamProfileDesc = %q, want it to contain %q", got, part)
		}
	}
}
