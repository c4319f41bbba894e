package cartpole

import (
	"math"

	"github.com/sankeerth95/rlpy/internal/domain"
	"github.com/sankeerth95/rlpy/internal/ode"
)

const (
	NameBalanceOriginal = "cartpole-balance-original"
	NameBalanceModern   = "cartpole-balance-modern"
)

// RewardPolicy selects the reward/terminal scheme evaluated on the post-clamp state.
type RewardPolicy int

const (
	// RewardBalanceOriginal pays GoodReward per surviving step and -1 on failure.
	RewardBalanceOriginal RewardPolicy = iota
	// RewardBalanceModern pays 0 per surviving step and -1 on failure.
	RewardBalanceModern
)

func (p RewardPolicy) String() string {
	switch p {
	case RewardBalanceOriginal:
		return "balance-original"
	case RewardBalanceModern:
		return "balance-modern"
	default:
		return "unknown"
	}
}

type StartPolicy int

const (
	StartZero StartPolicy = iota
	// StartPerturbed draws the initial angle from N(0, StartAngleSigma^2).
	StartPerturbed
)

type Config struct {
	Name string

	PoleMass   float64
	CartMass   float64
	PoleLength float64
	Gravity    float64
	Dt         float64

	Forces     []float64
	ForceNoise float64

	AngleLimits       domain.Bounds
	AngularRateLimits domain.Bounds
	PositionLimits    domain.Bounds
	VelocityLimits    domain.Bounds

	// Failure region: terminal unless |angle| < TerminalAngle and |x| < TerminalPosition.
	TerminalAngle    float64
	TerminalPosition float64

	Reward     RewardPolicy
	GoodReward float64

	Start           StartPolicy
	StartAngleSigma float64

	// Integrator defaults to single-step Euler when nil.
	Integrator ode.Integrator

	EpisodeCap int
	Discount   float64
}

func baseConfig() Config {
	return Config{
		PoleMass:          0.1,
		CartMass:          1.0,
		PoleLength:        1.0,
		Gravity:           9.8,
		Dt:                0.02,
		AngleLimits:       domain.Bounds{Min: -math.Pi / 15, Max: math.Pi / 15},
		AngularRateLimits: domain.Bounds{Min: -2, Max: 2},
		PositionLimits:    domain.Bounds{Min: -2.4, Max: 2.4},
		VelocityLimits:    domain.Bounds{Min: -6, Max: 6},
		TerminalAngle:     math.Pi / 15,
		TerminalPosition:  2.4,
		Integrator:        ode.Euler{Steps: 1},
		EpisodeCap:        3000,
		Discount:          0.95,
	}
}

// BalanceOriginal is the two-action pole-balancing task from Sutton and Barto.
func BalanceOriginal(goodReward float64) Config {
	cfg := baseConfig()
	cfg.Name = NameBalanceOriginal
	cfg.Forces = []float64{-10, 10}
	cfg.Reward = RewardBalanceOriginal
	cfg.GoodReward = goodReward
	cfg.Start = StartZero
	return cfg
}

// BalanceModern adds a zero-force action, uniform force noise and a
// perturbed start angle.
func BalanceModern() Config {
	cfg := baseConfig()
	cfg.Name = NameBalanceModern
	cfg.Forces = []float64{-10, 0, 10}
	cfg.ForceNoise = 1
	cfg.Reward = RewardBalanceModern
	cfg.Start = StartPerturbed
	cfg.StartAngleSigma = 0.01
	return cfg
}

func (c Config) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"pole mass", c.PoleMass},
		{"cart mass", c.CartMass},
		{"pole length", c.PoleLength},
		{"dt", c.Dt},
		{"terminal angle", c.TerminalAngle},
		{"terminal position", c.TerminalPosition},
	}
	for _, p := range positive {
		if !(p.value > 0) || math.IsInf(p.value, 0) {
			return domain.Configf("%s must be positive and finite, got %v", p.name, p.value)
		}
	}
	if math.IsNaN(c.Gravity) || math.IsInf(c.Gravity, 0) {
		return domain.Configf("gravity must be finite, got %v", c.Gravity)
	}
	if len(c.Forces) == 0 {
		return domain.Configf("force table is empty")
	}
	for i, f := range c.Forces {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.Configf("force %d is not finite: %v", i, f)
		}
	}
	if !(c.ForceNoise >= 0) || math.IsInf(c.ForceNoise, 0) {
		return domain.Configf("force noise must be non-negative, got %v", c.ForceNoise)
	}
	limits := []struct {
		name string
		b    domain.Bounds
	}{
		{"angle", c.AngleLimits},
		{"angular rate", c.AngularRateLimits},
		{"position", c.PositionLimits},
		{"velocity", c.VelocityLimits},
	}
	for _, l := range limits {
		if !(l.b.Min <= l.b.Max) {
			return domain.Configf("%s limits inverted: [%v, %v]", l.name, l.b.Min, l.b.Max)
		}
	}
	if c.AngleLimits.Min < -math.Pi || c.AngleLimits.Max > math.Pi {
		return domain.Configf("angle limits must lie within [-pi, pi], got [%v, %v]", c.AngleLimits.Min, c.AngleLimits.Max)
	}
	switch c.Reward {
	case RewardBalanceOriginal:
		if !(c.GoodReward >= 0) {
			return domain.Configf("good reward must be non-negative, got %v", c.GoodReward)
		}
	case RewardBalanceModern:
	default:
		return domain.Configf("unknown reward policy %d", c.Reward)
	}
	switch c.Start {
	case StartZero:
	case StartPerturbed:
		if !(c.StartAngleSigma >= 0) {
			return domain.Configf("start angle sigma must be non-negative, got %v", c.StartAngleSigma)
		}
	default:
		return domain.Configf("unknown start policy %d", c.Start)
	}
	if c.EpisodeCap < 0 {
		return domain.Configf("episode cap must be non-negative, got %d", c.EpisodeCap)
	}
	if err := domain.CheckProbability("discount", c.Discount); err != nil {
		return err
	}
	return nil
}
