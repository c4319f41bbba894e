// Package ode integrates autonomous and time-dependent ODE systems over a
// single interval. Integrators only return the state at the interval end.
package ode

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrNonFinite       = errors.New("non-finite value during integration")
	ErrStepLimit       = errors.New("adaptive integration exceeded step limit")
	ErrInvalidInterval = errors.New("invalid integration interval")
	ErrUnknownMethod   = errors.New("unknown integration method")
)

const (
	MethodEuler    = "euler"
	MethodRK4      = "rk4"
	MethodAdaptive = "adaptive"
)

// Func writes dy/dt at (t, y) into dydt. It must not retain y or dydt.
type Func func(t float64, y, dydt []float64)

type Integrator interface {
	Name() string
	Integrate(f Func, y0 []float64, t0, t1 float64) ([]float64, error)
}

// ByName resolves an integration method. steps only applies to euler and rk4;
// values below 1 mean a single step.
func ByName(name string, steps int) (Integrator, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", MethodEuler:
		return Euler{Steps: steps}, nil
	case MethodRK4:
		return RK4{Steps: steps}, nil
	case MethodAdaptive, "odeint", "dopri5":
		return Adaptive{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
}

func checkInterval(y0 []float64, t0, t1 float64) error {
	if len(y0) == 0 {
		return fmt.Errorf("%w: empty state", ErrInvalidInterval)
	}
	if math.IsNaN(t0) || math.IsNaN(t1) || math.IsInf(t0, 0) || math.IsInf(t1, 0) || t1 < t0 {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidInterval, t0, t1)
	}
	return nil
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// eval calls f and rejects non-finite derivatives.
func eval(f Func, t float64, y, dydt []float64) error {
	f(t, y, dydt)
	if !allFinite(dydt) {
		return fmt.Errorf("%w: derivative at t=%v", ErrNonFinite, t)
	}
	return nil
}

func substeps(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
