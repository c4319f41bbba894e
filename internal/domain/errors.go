package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration       = errors.New("invalid domain configuration")
	ErrIllegalAction       = errors.New("illegal action")
	ErrInvalidSequence     = errors.New("step called on terminal state without reset")
	ErrNumericalDivergence = errors.New("numerical divergence")
)

// Configf wraps ErrConfiguration with a formatted reason.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// IllegalActionf wraps ErrIllegalAction for action a.
func IllegalActionf(a Action, format string, args ...any) error {
	return fmt.Errorf("%w %d: %s", ErrIllegalAction, a, fmt.Sprintf(format, args...))
}

// CheckProbability rejects p outside [0, 1] (NaN included).
func CheckProbability(name string, p float64) error {
	if !(p >= 0 && p <= 1) {
		return Configf("%s must be in [0, 1], got %v", name, p)
	}
	return nil
}
