package rollout

import (
	"context"
	"errors"

	"github.com/sankeerth95/rlpy/internal/domain"
	"github.com/sankeerth95/rlpy/internal/randsrc"
)

var ErrNoLegalActions = errors.New("no legal actions")

// Policy picks the next action from the legal set of the current state.
type Policy interface {
	Choose(ctx context.Context, s domain.State, legal []domain.Action) (domain.Action, error)
}

// PolicyFactory builds a fresh policy per episode. Policies drawing random
// numbers must not be shared between concurrent episodes.
type PolicyFactory func(seed uint64) Policy

// RandomPolicy picks uniformly among the legal actions.
type RandomPolicy struct {
	src randsrc.Source
}

func NewRandomPolicy(src randsrc.Source) *RandomPolicy {
	return &RandomPolicy{src: src}
}

func RandomPolicies(seed uint64) Policy {
	return NewRandomPolicy(randsrc.New(seed))
}

func (p *RandomPolicy) Choose(_ context.Context, _ domain.State, legal []domain.Action) (domain.Action, error) {
	if len(legal) == 0 {
		return 0, ErrNoLegalActions
	}
	idx := int(p.src.Float64() * float64(len(legal)))
	if idx >= len(legal) {
		idx = len(legal) - 1
	}
	return legal[idx], nil
}

// FixedPolicy always chooses Action.
type FixedPolicy struct {
	Action domain.Action
}

func (p FixedPolicy) Choose(context.Context, domain.State, []domain.Action) (domain.Action, error) {
	return p.Action, nil
}

// FixedPolicies returns a factory that ignores the seed.
func FixedPolicies(a domain.Action) PolicyFactory {
	return func(uint64) Policy {
		return FixedPolicy{Action: a}
	}
}
