package ode

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	defaultRelTol   = 1e-8
	defaultAbsTol   = 1e-10
	defaultMaxSteps = 10000
)

// Dormand-Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// Difference between the fifth- and fourth-order weights.
	dpE = [7]float64{
		71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40,
	}
)

// Adaptive is an embedded Dormand-Prince 5(4) integrator with step-size
// control. Zero-valued fields take package defaults.
type Adaptive struct {
	RelTol      float64
	AbsTol      float64
	MaxSteps    int
	InitialStep float64
}

func (Adaptive) Name() string {
	return MethodAdaptive
}

func (a Adaptive) Integrate(f Func, y0 []float64, t0, t1 float64) ([]float64, error) {
	if err := checkInterval(y0, t0, t1); err != nil {
		return nil, err
	}
	y := append([]float64(nil), y0...)
	if t1 == t0 {
		return y, nil
	}

	rtol, atol, maxSteps := a.RelTol, a.AbsTol, a.MaxSteps
	if rtol <= 0 {
		rtol = defaultRelTol
	}
	if atol <= 0 {
		atol = defaultAbsTol
	}
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	h := a.InitialStep
	if h <= 0 || h > t1-t0 {
		h = (t1 - t0) / 4
	}

	dim := len(y)
	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, dim)
	}
	tmp := make([]float64, dim)
	next := make([]float64, dim)

	t := t0
	// Remaining spans below this are rounding residue of t += h.
	done := 1e-14 * math.Max(1, math.Abs(t1))
	for step := 0; step < maxSteps; step++ {
		if t1-t <= done {
			return y, nil
		}
		if t+h > t1 {
			h = t1 - t
		}

		if err := eval(f, t, y, k[0]); err != nil {
			return nil, err
		}
		for s := 1; s < 7; s++ {
			copy(tmp, y)
			for j := 0; j < s; j++ {
				if dpA[s][j] != 0 {
					floats.AddScaled(tmp, h*dpA[s][j], k[j])
				}
			}
			if err := eval(f, t+dpC[s]*h, tmp, k[s]); err != nil {
				return nil, err
			}
		}
		// The seventh stage is evaluated at the fifth-order solution.
		copy(next, tmp)

		errNorm := 0.0
		for i := 0; i < dim; i++ {
			e := 0.0
			for s := 0; s < 7; s++ {
				e += dpE[s] * k[s][i]
			}
			e *= h
			scale := atol + rtol*math.Max(math.Abs(y[i]), math.Abs(next[i]))
			errNorm += (e / scale) * (e / scale)
		}
		errNorm = math.Sqrt(errNorm / float64(dim))
		if math.IsNaN(errNorm) {
			return nil, fmt.Errorf("%w: error estimate at t=%v", ErrNonFinite, t)
		}

		if errNorm <= 1 {
			t += h
			copy(y, next)
			if !allFinite(y) {
				return nil, fmt.Errorf("%w: state at t=%v", ErrNonFinite, t)
			}
		}

		factor := 5.0
		if errNorm > 0 {
			factor = math.Min(5, math.Max(0.2, 0.9*math.Pow(errNorm, -0.2)))
		}
		h *= factor
		if t < t1 && t+h == t {
			return nil, fmt.Errorf("%w: step size underflow at t=%v", ErrStepLimit, t)
		}
	}
	if t1-t <= done {
		return y, nil
	}
	return nil, fmt.Errorf("%w: %d steps", ErrStepLimit, maxSteps)
}
