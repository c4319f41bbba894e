// Package pst implements persistent search and track: a team of units shuttles
// between a base, a chain of communication relay locations and a surveillance
// area while burning fuel and suffering one-way sensor and actuator failures.
//
// The state is one block of [location, fuel, actuator, sensor] per unit. The
// joint action packs one Move per unit with the first unit as the lowest digit.
// Surveillance only pays while every relay location holds a unit with a
// running actuator, and every crashed unit costs CrashReward on every step for
// the rest of the episode. The domain never terminates on its own.
package pst

import (
	"fmt"
	"math"

	"github.com/sankeerth95/rlpy/internal/actioncodec"
	"github.com/sankeerth95/rlpy/internal/domain"
	"github.com/sankeerth95/rlpy/internal/randsrc"
)

type Unit struct {
	Location int
	Fuel     int
	Actuator Status
	Sensor   Status
}

// Aggregates are the team-level quantities behind the last reward.
type Aggregates struct {
	NumCrashed              int
	NumHealthySurveilling   int
	AllCommLocationsCovered bool
	FuelBurned              int
}

type Domain struct {
	cfg   Config
	src   randsrc.Source
	codec *actioncodec.Codec

	units      []Unit
	agg        Aggregates
	lastAction domain.Action
	hasAction  bool
	steps      int
}

func New(cfg Config, src randsrc.Source) (*Domain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, domain.Configf("random source is required")
	}
	codec, err := actioncodec.New(movesPerUnit, cfg.Units)
	if err != nil {
		return nil, domain.Configf("%d units: %v", cfg.Units, err)
	}
	d := &Domain{
		cfg:   cfg,
		src:   src,
		codec: codec,
	}
	d.Reset()
	return d, nil
}

func (d *Domain) Name() string {
	return Name
}

func (d *Domain) Config() Config {
	return d.cfg
}

func (d *Domain) Spec() domain.Spec {
	limits := make([]domain.Bounds, 0, d.cfg.Units*BlockSize)
	for i := 0; i < d.cfg.Units; i++ {
		limits = append(limits,
			domain.Bounds{Min: 0, Max: float64(d.cfg.CrashedLocation())},
			domain.Bounds{Min: 0, Max: float64(d.cfg.FullFuel)},
			domain.Bounds{Min: float64(Failed), Max: float64(Running)},
			domain.Bounds{Min: float64(Failed), Max: float64(Running)},
		)
	}
	return domain.Spec{
		StateDims:   d.cfg.Units * BlockSize,
		Limits:      limits,
		ActionCount: d.codec.Size(),
		EpisodeCap:  d.cfg.EpisodeCap,
		Discount:    d.cfg.Discount,
	}
}

func (d *Domain) Reset() domain.State {
	d.units = make([]Unit, d.cfg.Units)
	for i := range d.units {
		d.units[i] = Unit{
			Location: BaseLocation,
			Fuel:     d.cfg.FullFuel,
			Actuator: Running,
			Sensor:   Running,
		}
	}
	d.agg = Aggregates{}
	d.lastAction = 0
	d.hasAction = false
	d.steps = 0
	return encodeState(d.units)
}

// LegalActions returns the joint ids of every combination of individually
// legal moves, or nil when s is not a valid state for this domain.
func (d *Domain) LegalActions(s domain.State) []domain.Action {
	units, err := d.decodeState(s)
	if err != nil {
		return nil
	}
	perUnit := make([][]int, len(units))
	for i, u := range units {
		perUnit[i] = d.unitMoves(u)
	}
	ids, err := d.codec.EnumerateJoint(perUnit)
	if err != nil {
		return nil
	}
	out := make([]domain.Action, len(ids))
	for i, id := range ids {
		out[i] = domain.Action(id)
	}
	return out
}

func (d *Domain) unitMoves(u Unit) []int {
	switch {
	case u.Location == d.cfg.CrashedLocation():
		return []int{int(Loiter)}
	case u.Location == BaseLocation:
		if u.Fuel == d.cfg.FullFuel {
			return []int{int(Loiter), int(Advance)}
		}
		return []int{int(Loiter)}
	case u.Location == d.cfg.SurveilLocation():
		return []int{int(Retreat), int(Loiter)}
	default:
		return []int{int(Retreat), int(Loiter), int(Advance)}
	}
}

func (d *Domain) unitAllows(u Unit, m Move) bool {
	for _, legal := range d.unitMoves(u) {
		if legal == int(m) {
			return true
		}
	}
	return false
}

// Encode packs per-unit moves into a joint action id.
func (d *Domain) Encode(moves []Move) (domain.Action, error) {
	digits := make([]int, len(moves))
	for i, m := range moves {
		digits[i] = int(m)
	}
	id, err := d.codec.Encode(digits)
	if err != nil {
		return 0, err
	}
	return domain.Action(id), nil
}

// Decode unpacks a joint action id into per-unit moves.
func (d *Domain) Decode(a domain.Action) ([]Move, error) {
	digits, err := d.codec.Decode(int(a))
	if err != nil {
		return nil, err
	}
	moves := make([]Move, len(digits))
	for i, v := range digits {
		moves[i] = Move(v)
	}
	return moves, nil
}

func (d *Domain) Step(a domain.Action) (float64, domain.State, bool, error) {
	moves, err := d.Decode(a)
	if err != nil {
		return 0, nil, false, domain.IllegalActionf(a, "%v", err)
	}
	for i, m := range moves {
		if !d.unitAllows(d.units[i], m) {
			return 0, nil, false, domain.IllegalActionf(a, "unit %d cannot %s from location %d with fuel %d", i, m, d.units[i].Location, d.units[i].Fuel)
		}
	}

	next := append([]Unit(nil), d.units...)
	crashedLoc := d.cfg.CrashedLocation()
	surveilLoc := d.cfg.SurveilLocation()

	covered := make([]bool, d.cfg.LocationCount())
	covered[BaseLocation] = true
	covered[surveilLoc] = true
	covered[crashedLoc] = true

	agg := Aggregates{NumCrashed: d.agg.NumCrashed}
	for i := range next {
		u := &next[i]
		if u.Location == crashedLoc {
			continue
		}
		switch moves[i] {
		case Advance:
			if d.src.Float64() >= d.cfg.PMotionNoise {
				u.Location++
			}
		case Retreat:
			if d.src.Float64() >= d.cfg.PMotionNoise {
				u.Location--
			}
		}

		if u.Location == BaseLocation {
			u.Fuel = min(u.Fuel+d.cfg.RefuelRate, d.cfg.FullFuel)
			u.Actuator = Running
			u.Sensor = Running
			continue
		}

		burn := d.cfg.StochasticBurn
		if d.src.Float64() < d.cfg.PFuelNominal {
			burn = d.cfg.NominalBurn
		}
		u.Fuel -= burn
		agg.FuelBurned += burn
		if d.src.Float64() < d.cfg.PSensorFail {
			u.Sensor = Failed
		}
		if d.src.Float64() < d.cfg.PActuatorFail {
			u.Actuator = Failed
		}

		if u.Fuel < 1 {
			u.Location = crashedLoc
			u.Fuel = 0
			agg.NumCrashed++
			continue
		}
		if u.Actuator == Running {
			covered[u.Location] = true
			if u.Location == surveilLoc && u.Sensor == Running {
				agg.NumHealthySurveilling++
			}
		}
	}

	agg.AllCommLocationsCovered = true
	for _, c := range covered {
		if !c {
			agg.AllCommLocationsCovered = false
			break
		}
	}

	reward := d.cfg.CrashReward*float64(agg.NumCrashed) + d.cfg.FuelBurnReward*float64(agg.FuelBurned)
	if agg.AllCommLocationsCovered {
		reward += d.cfg.SurveilReward * float64(agg.NumHealthySurveilling)
	}

	d.units = next
	d.agg = agg
	d.lastAction = a
	d.hasAction = true
	d.steps++
	return reward, encodeState(next), false, nil
}

// IsTerminal is always false; episodes end at the step cap.
func (d *Domain) IsTerminal(domain.State) bool {
	return false
}

// SetState starts a fresh episode from s. Units already at the crashed
// location count toward the cumulative crash penalty.
func (d *Domain) SetState(s domain.State) error {
	units, err := d.decodeState(s)
	if err != nil {
		return err
	}
	crashed := 0
	for _, u := range units {
		if u.Location == d.cfg.CrashedLocation() {
			crashed++
		}
	}
	d.units = units
	d.agg = Aggregates{NumCrashed: crashed}
	d.lastAction = 0
	d.hasAction = false
	d.steps = 0
	return nil
}

func (d *Domain) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Domain:     Name,
		State:      encodeState(d.units),
		LastAction: d.lastAction,
		HasAction:  d.hasAction,
		Steps:      d.steps,
		Terminal:   false,
	}
}

func (d *Domain) Units() []Unit {
	return append([]Unit(nil), d.units...)
}

func (d *Domain) Aggregates() Aggregates {
	return d.agg
}

func encodeState(units []Unit) domain.State {
	s := make(domain.State, 0, len(units)*BlockSize)
	for _, u := range units {
		s = append(s, float64(u.Location), float64(u.Fuel), float64(u.Actuator), float64(u.Sensor))
	}
	return s
}

func (d *Domain) decodeState(s domain.State) ([]Unit, error) {
	if len(s) != d.cfg.Units*BlockSize {
		return nil, fmt.Errorf("pst state needs %d values, got %d", d.cfg.Units*BlockSize, len(s))
	}
	units := make([]Unit, d.cfg.Units)
	for i := range units {
		block := s[i*BlockSize : (i+1)*BlockSize]
		fields := make([]int, BlockSize)
		for j, v := range block {
			if v != math.Trunc(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("pst unit %d field %d is not an integer: %v", i, j, v)
			}
			fields[j] = int(v)
		}
		u := Unit{
			Location: fields[FieldLocation],
			Fuel:     fields[FieldFuel],
			Actuator: Status(fields[FieldActuator]),
			Sensor:   Status(fields[FieldSensor]),
		}
		if u.Location < 0 || u.Location > d.cfg.CrashedLocation() {
			return nil, fmt.Errorf("pst unit %d location %d out of range", i, u.Location)
		}
		if u.Fuel < 0 || u.Fuel > d.cfg.FullFuel {
			return nil, fmt.Errorf("pst unit %d fuel %d out of range", i, u.Fuel)
		}
		if !validStatus(u.Actuator) || !validStatus(u.Sensor) {
			return nil, fmt.Errorf("pst unit %d has invalid status %d/%d", i, u.Actuator, u.Sensor)
		}
		units[i] = u
	}
	return units, nil
}

func validStatus(s Status) bool {
	return s == Failed || s == Running
}
