// Package cartpole implements the pole-on-a-cart balancing domain: a
// four-dimensional continuous state [theta, thetaDot, x, xDot] advanced by
// integrating the rigid-body dynamics over a fixed timestep.
//
// Theta is measured from upright, positive clockwise; positive force pushes
// the cart right.
package cartpole

import (
	"fmt"
	"math"

	"github.com/sankeerth95/rlpy/internal/domain"
	"github.com/sankeerth95/rlpy/internal/ode"
	"github.com/sankeerth95/rlpy/internal/randsrc"
)

const (
	Theta = iota
	ThetaDot
	X
	XDot

	stateDims = 4
)

type Domain struct {
	cfg        Config
	src        randsrc.Source
	integrator ode.Integrator

	alpha     float64 // 1 / (cart mass + pole mass)
	momentArm float64
	massArm   float64 // pole mass * alpha * moment arm

	state      domain.State
	lastAction domain.Action
	hasAction  bool
	steps      int
	terminal   bool
}

// New builds a domain from cfg. src supplies force noise and start
// perturbations and is required even when both are disabled.
func New(cfg Config, src randsrc.Source) (*Domain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, domain.Configf("random source is required")
	}
	integrator := cfg.Integrator
	if integrator == nil {
		integrator = ode.Euler{Steps: 1}
	}
	cfg.Forces = append([]float64(nil), cfg.Forces...)

	alpha := 1 / (cfg.CartMass + cfg.PoleMass)
	momentArm := cfg.PoleLength / 2
	d := &Domain{
		cfg:        cfg,
		src:        src,
		integrator: integrator,
		alpha:      alpha,
		momentArm:  momentArm,
		massArm:    cfg.PoleMass * alpha * momentArm,
		state:      make(domain.State, stateDims),
	}
	// The angular denominator is smallest at cos^2 = 1.
	if denom := 4*momentArm/3 - d.massArm; !(denom > 0) {
		return nil, domain.Configf("singular dynamics: angular denominator %v", denom)
	}
	return d, nil
}

func (d *Domain) Name() string {
	return d.cfg.Name
}

func (d *Domain) Config() Config {
	cfg := d.cfg
	cfg.Forces = append([]float64(nil), d.cfg.Forces...)
	return cfg
}

func (d *Domain) Spec() domain.Spec {
	return domain.Spec{
		StateDims: stateDims,
		Limits: []domain.Bounds{
			d.cfg.AngleLimits,
			d.cfg.AngularRateLimits,
			d.cfg.PositionLimits,
			d.cfg.VelocityLimits,
		},
		ContinuousDims: []int{Theta, ThetaDot, X, XDot},
		ActionCount:    len(d.cfg.Forces),
		EpisodeCap:     d.cfg.EpisodeCap,
		Discount:       d.cfg.Discount,
	}
}

func (d *Domain) Reset() domain.State {
	d.state = make(domain.State, stateDims)
	if d.cfg.Start == StartPerturbed {
		d.state[Theta] = d.src.Normal(0, d.cfg.StartAngleSigma)
	}
	d.steps = 0
	d.hasAction = false
	d.lastAction = 0
	d.terminal = false
	return d.state.Clone()
}

// LegalActions is the full force table in every state.
func (d *Domain) LegalActions(domain.State) []domain.Action {
	return domain.FullRange(len(d.cfg.Forces))
}

func (d *Domain) Step(a domain.Action) (float64, domain.State, bool, error) {
	if d.terminal {
		return 0, nil, true, domain.ErrInvalidSequence
	}
	if a < 0 || int(a) >= len(d.cfg.Forces) {
		return 0, nil, false, domain.IllegalActionf(a, "force table has %d entries", len(d.cfg.Forces))
	}

	force := d.cfg.Forces[a]
	if d.cfg.ForceNoise > 0 {
		force += d.src.Uniform(-d.cfg.ForceNoise, d.cfg.ForceNoise)
	}

	integrated, err := d.integrator.Integrate(d.dynamics(force), d.state, 0, d.cfg.Dt)
	if err != nil {
		return 0, nil, false, fmt.Errorf("%w: %s integration: %w", domain.ErrNumericalDivergence, d.integrator.Name(), err)
	}
	if len(integrated) != stateDims || !finite(integrated) {
		return 0, nil, false, fmt.Errorf("%w: %s integration produced %v", domain.ErrNumericalDivergence, d.integrator.Name(), integrated)
	}

	next := d.Bound(integrated)
	terminal := d.IsTerminal(next)
	reward := d.reward(terminal)

	d.state = next
	d.lastAction = a
	d.hasAction = true
	d.steps++
	d.terminal = terminal
	return reward, next.Clone(), terminal, nil
}

func (d *Domain) IsTerminal(s domain.State) bool {
	if len(s) < stateDims {
		return true
	}
	theta, x := s[Theta], s[X]
	return !(-d.cfg.TerminalAngle < theta && theta < d.cfg.TerminalAngle) ||
		!(-d.cfg.TerminalPosition < x && x < d.cfg.TerminalPosition)
}

func (d *Domain) reward(terminal bool) float64 {
	if terminal {
		return -1
	}
	switch d.cfg.Reward {
	case RewardBalanceOriginal:
		return d.cfg.GoodReward
	default:
		return 0
	}
}

// Bound wraps the angle into (-pi, pi] and saturates every dimension to its
// configured limits. It returns a new state.
func (d *Domain) Bound(s domain.State) domain.State {
	out := s.Clone()
	if len(out) < stateDims {
		return out
	}
	out[Theta] = clamp(wrapAngle(out[Theta]), d.cfg.AngleLimits)
	out[ThetaDot] = clamp(out[ThetaDot], d.cfg.AngularRateLimits)
	out[X] = clamp(out[X], d.cfg.PositionLimits)
	out[XDot] = clamp(out[XDot], d.cfg.VelocityLimits)
	return out
}

// SetState bounds s and makes it the current state of a fresh episode.
func (d *Domain) SetState(s domain.State) error {
	if len(s) != stateDims {
		return fmt.Errorf("cartpole state needs %d values, got %d", stateDims, len(s))
	}
	if !finite(s) {
		return fmt.Errorf("cartpole state is not finite: %v", s)
	}
	d.state = d.Bound(s)
	d.steps = 0
	d.hasAction = false
	d.lastAction = 0
	d.terminal = d.IsTerminal(d.state)
	return nil
}

func (d *Domain) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Domain:     d.cfg.Name,
		State:      d.state.Clone(),
		LastAction: d.lastAction,
		HasAction:  d.hasAction,
		Steps:      d.steps,
		Terminal:   d.terminal,
	}
}

// IntegratorName names the integration method used by Step.
func (d *Domain) IntegratorName() string {
	return d.integrator.Name()
}

// Force returns the nominal force for action a.
func (d *Domain) Force(a domain.Action) (float64, bool) {
	if a < 0 || int(a) >= len(d.cfg.Forces) {
		return 0, false
	}
	return d.cfg.Forces[a], true
}

// Derivative evaluates the state derivative at s under a constant force.
func (d *Domain) Derivative(s domain.State, force float64) (domain.State, error) {
	if len(s) != stateDims {
		return nil, fmt.Errorf("cartpole state needs %d values, got %d", stateDims, len(s))
	}
	out := make(domain.State, stateDims)
	d.dynamics(force)(0, s, out)
	if !finite(out) {
		return nil, fmt.Errorf("%w: derivative %v at %v", domain.ErrNumericalDivergence, out, s)
	}
	return out, nil
}

// dynamics closes over a force held constant for the whole step.
//
//	thetaDDot = (g sin(theta) - cos(theta) w) / (4l/3 - k cos^2(theta))
//	xDDot     = w - k thetaDDot cos(theta)
//
// with w = F alpha + k thetaDot^2 sin(theta) and k = m_p alpha l.
func (d *Domain) dynamics(force float64) ode.Func {
	g := d.cfg.Gravity
	l := d.momentArm
	k := d.massArm
	alpha := d.alpha
	return func(_ float64, y, dydt []float64) {
		thetaDot := y[ThetaDot]
		sinTheta, cosTheta := math.Sincos(y[Theta])

		term := force*alpha + k*thetaDot*thetaDot*sinTheta
		thetaDDot := (g*sinTheta - cosTheta*term) / (4*l/3 - k*cosTheta*cosTheta)

		dydt[Theta] = thetaDot
		dydt[ThetaDot] = thetaDDot
		dydt[X] = y[XDot]
		dydt[XDot] = term - k*thetaDDot*cosTheta
	}
}

func wrapAngle(theta float64) float64 {
	if theta > -math.Pi && theta <= math.Pi {
		return theta
	}
	const twoPi = 2 * math.Pi
	theta = math.Mod(theta+math.Pi, twoPi)
	if theta <= 0 {
		theta += twoPi
	}
	return theta - math.Pi
}

func clamp(v float64, b domain.Bounds) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

func finite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
