package pst

import (
	"math"

	"github.com/sankeerth95/rlpy/internal/domain"
)

const Name = "pst"

// Move is a single unit's command. The numeric values are the digits of the
// joint action id.
type Move int

const (
	Retreat Move = iota
	Loiter
	Advance

	movesPerUnit = 3
)

func (m Move) String() string {
	switch m {
	case Retreat:
		return "retreat"
	case Loiter:
		return "loiter"
	case Advance:
		return "advance"
	default:
		return "unknown"
	}
}

type Status int

const (
	Failed Status = iota
	Running
)

// Offsets of a unit's fields inside its state block.
const (
	FieldLocation = iota
	FieldFuel
	FieldActuator
	FieldSensor

	BlockSize = 4
)

// BaseLocation is where units start, refuel and get repaired.
const BaseLocation = 0

type Config struct {
	Units int
	// CommLocations is the number of relay locations between base and the
	// surveillance area.
	CommLocations int
	FullFuel      int

	PFuelNominal  float64
	PActuatorFail float64
	PSensorFail   float64
	// PMotionNoise is the probability that a commanded move is suppressed.
	PMotionNoise float64

	CrashReward    float64
	SurveilReward  float64
	FuelBurnReward float64

	RefuelRate     int
	NominalBurn    int
	StochasticBurn int

	EpisodeCap int
	Discount   float64
}

func DefaultConfig() Config {
	return Config{
		Units:          6,
		CommLocations:  1,
		FullFuel:       10,
		PFuelNominal:   0.8,
		PActuatorFail:  0.02,
		PSensorFail:    0.05,
		PMotionNoise:   0,
		CrashReward:    -2.0,
		SurveilReward:  1.5,
		FuelBurnReward: 0,
		RefuelRate:     1,
		NominalBurn:    1,
		StochasticBurn: 2,
		EpisodeCap:     100,
		Discount:       0.9,
	}
}

// LocationCount is base, the relay locations, surveillance and crashed.
func (c Config) LocationCount() int {
	return c.CommLocations + 3
}

func (c Config) SurveilLocation() int {
	return c.CommLocations + 1
}

func (c Config) CrashedLocation() int {
	return c.CommLocations + 2
}

func (c Config) Validate() error {
	if c.Units < 1 {
		return domain.Configf("units must be positive, got %d", c.Units)
	}
	if c.CommLocations < 0 {
		return domain.Configf("comm locations must be non-negative, got %d", c.CommLocations)
	}
	if c.FullFuel < 1 {
		return domain.Configf("full fuel must be at least 1, got %d", c.FullFuel)
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"nominal fuel burn probability", c.PFuelNominal},
		{"actuator failure probability", c.PActuatorFail},
		{"sensor failure probability", c.PSensorFail},
		{"motion noise probability", c.PMotionNoise},
		{"discount", c.Discount},
	} {
		if err := domain.CheckProbability(p.name, p.value); err != nil {
			return err
		}
	}
	if !(c.CrashReward <= 0) || math.IsInf(c.CrashReward, 0) {
		return domain.Configf("crash reward must be finite and non-positive, got %v", c.CrashReward)
	}
	if !(c.SurveilReward >= 0) || math.IsInf(c.SurveilReward, 0) {
		return domain.Configf("surveil reward must be finite and non-negative, got %v", c.SurveilReward)
	}
	if math.IsNaN(c.FuelBurnReward) || math.IsInf(c.FuelBurnReward, 0) {
		return domain.Configf("fuel burn reward must be finite, got %v", c.FuelBurnReward)
	}
	if c.RefuelRate < 0 || c.NominalBurn < 0 || c.StochasticBurn < 0 {
		return domain.Configf("refuel and burn rates must be non-negative, got %d/%d/%d", c.RefuelRate, c.NominalBurn, c.StochasticBurn)
	}
	if c.EpisodeCap < 0 {
		return domain.Configf("episode cap must be non-negative, got %d", c.EpisodeCap)
	}
	return nil
}
