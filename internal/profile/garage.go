package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Garage is the multi-vehicle configuration file (garage.json): vehicle
// profiles keyed by ID plus an optional default.
type Garage struct {
	Version        string                    `json:"version"`
	DefaultVehicle string                    `json:"default_vehicle"`
	Vehicles       map[string]VehicleProfile `json:"vehicles"`
}

// Validate checks the garage for errors.
func (g *Garage) Validate() error {
	if len(g.Vehicles) == 0 {
		return fmt.Errorf("no vehicles defined in garage")
	}

	if g.DefaultVehicle != "" {
		if _, exists := g.Vehicles[g.DefaultVehicle]; !exists {
			return fmt.Errorf("default_vehicle '%s' does not exist in vehicles", g.DefaultVehicle)
		}
	}

	for id, v := range g.Vehicles {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("vehicle '%s': %w", id, err)
		}
	}
	return nil
}

// GetVehicle returns a vehicle by ID, falling back to default_vehicle when
// vehicleID is empty.
func (g *Garage) GetVehicle(vehicleID string) (*VehicleProfile, error) {
	if vehicleID == "" {
		if g.DefaultVehicle == "" {
			return nil, fmt.Errorf("no vehicle ID specified and no default_vehicle configured")
		}
		vehicleID = g.DefaultVehicle
	}

	v, exists := g.Vehicles[vehicleID]
	if !exists {
		return nil, fmt.Errorf("vehicle '%s' not found (available: %v)", vehicleID, g.ListVehicles())
	}
	return &v, nil
}

// ListVehicles returns all vehicle IDs in sorted order.
func (g *Garage) ListVehicles() []string {
	ids := make([]string, 0, len(g.Vehicles))
	for id := range g.Vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadGarage loads and parses garage.json. If configPath is empty, standard
// locations are searched. Returns nil, "", nil when no file is found, which
// callers treat as default-profile mode.
func LoadGarage(configPath string) (*Garage, string, error) {
	var searchPaths []string

	if configPath != "" {
		searchPaths = append(searchPaths, configPath)
	} else {
		searchPaths = append(searchPaths,
			"./garage.json",
			"./configs/garage.json",
			"/opt/sniper-tuner/garage.json",
		)
		if home := os.Getenv("HOME"); home != "" {
			searchPaths = append(searchPaths,
				filepath.Join(home, ".config", "sniper-tuner", "garage.json"),
			)
		}
	}

	for _, path := range searchPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
		}

		var garage Garage
		if err := json.Unmarshal(data, &garage); err != nil {
			return nil, "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := garage.Validate(); err != nil {
			return nil, "", fmt.Errorf("invalid garage in %s: %w", path, err)
		}
		return &garage, path, nil
	}

	if configPath != "" {
		return nil, "", fmt.Errorf("garage config not found: %s", configPath)
	}
	return nil, "", nil
}

// DefaultProfile is the fallback build sheet used when no garage.json is
// present: a small-block street/strip car on pump gas.
func DefaultProfile() *VehicleProfile {
	return &VehicleProfile{
		Name:               "default",
		DisplacementCI:     350,
		EngineType:         "SBC",
		CylinderCount:      8,
		CompressionRatio:   9.5,
		CamType:            CamStockMild,
		CamDurationIntake:  210,
		CamDurationExhaust: 218,
		CamLiftIntake:      0.480,
		CamLiftExhaust:     0.480,
		CamLSA:             112,
		IdleVacuumInHg:     14.0,
		HasTimingControl:   true,
		IgnitionType:       "hyperspark",
		FuelType:           FuelPump93,
		SniperModel:        "4150",
		SniperFlowHP:       650,
		InjectorFlowLbHr:   36.0,
		FuelPressurePSI:    58.5,
		HasWidebandO2:      true,
		TransmissionType:   "auto",
		TransmissionModel:  "TH400",
		ConverterStall:     2500,
		RearGearRatio:      3.73,
		TireDiameterIn:     28.0,
		TireType:           "drag_radial",
		WeightLbs:          3400,
		VehicleYear:        1969,
		VehicleMake:        "Chevrolet",
		VehicleModel:       "Camaro",
	}
}
