package ode

import "gonum.org/v1/gonum/floats"

// Euler is explicit forward Euler with Steps equal substeps.
type Euler struct {
	Steps int
}

func (Euler) Name() string {
	return MethodEuler
}

func (e Euler) Integrate(f Func, y0 []float64, t0, t1 float64) ([]float64, error) {
	if err := checkInterval(y0, t0, t1); err != nil {
		return nil, err
	}
	n := substeps(e.Steps)
	h := (t1 - t0) / float64(n)

	y := append([]float64(nil), y0...)
	dydt := make([]float64, len(y))
	for i := 0; i < n; i++ {
		if err := eval(f, t0+float64(i)*h, y, dydt); err != nil {
			return nil, err
		}
		floats.AddScaled(y, h, dydt)
	}
	if !allFinite(y) {
		return nil, ErrNonFinite
	}
	return y, nil
}

// RK4 is the classical fourth-order Runge-Kutta scheme with Steps equal substeps.
type RK4 struct {
	Steps int
}

func (RK4) Name() string {
	return MethodRK4
}

func (r RK4) Integrate(f Func, y0 []float64, t0, t1 float64) ([]float64, error) {
	if err := checkInterval(y0, t0, t1); err != nil {
		return nil, err
	}
	n := substeps(r.Steps)
	h := (t1 - t0) / float64(n)
	dim := len(y0)

	y := append([]float64(nil), y0...)
	k1 := make([]float64, dim)
	k2 := make([]float64, dim)
	k3 := make([]float64, dim)
	k4 := make([]float64, dim)
	tmp := make([]float64, dim)

	for i := 0; i < n; i++ {
		t := t0 + float64(i)*h
		if err := eval(f, t, y, k1); err != nil {
			return nil, err
		}
		floats.AddScaledTo(tmp, y, h/2, k1)
		if err := eval(f, t+h/2, tmp, k2); err != nil {
			return nil, err
		}
		floats.AddScaledTo(tmp, y, h/2, k2)
		if err := eval(f, t+h/2, tmp, k3); err != nil {
			return nil, err
		}
		floats.AddScaledTo(tmp, y, h, k3)
		if err := eval(f, t+h, tmp, k4); err != nil {
			return nil, err
		}
		for j := range y {
			y[j] += h / 6 * (k1[j] + 2*k2[j] + 2*k3[j] + k4[j])
		}
	}
	if !allFinite(y) {
		return nil, ErrNonFinite
	}
	return y, nil
}
