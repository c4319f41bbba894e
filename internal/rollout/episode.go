// Package rollout drives domains with policies: single episodes with an
// optional per-step observer, and seeded batches spread over workers.
package rollout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sankeerth95/rlpy/internal/domain"
)

var ErrNoStepLimit = errors.New("episode has no step limit")

type Observer func(domain.Snapshot)

type Options struct {
	// MaxSteps defaults to the domain's episode cap.
	MaxSteps int
	Observer Observer
	Logger   *log.Logger
}

type Episode struct {
	Index            int
	Seed             uint64
	Steps            int
	Return           float64
	DiscountedReturn float64
	Terminated       bool
	// Truncated is set when the step limit ended a non-terminal episode.
	Truncated  bool
	FinalState domain.State
}

// RunEpisode resets d and steps it with p until a terminal state or the step
// limit. On error the partial episode is returned alongside it.
func RunEpisode(ctx context.Context, d domain.Domain, p Policy, opts Options) (Episode, error) {
	if d == nil || p == nil {
		return Episode{}, errors.New("domain and policy are required")
	}
	spec := d.Spec()
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = spec.EpisodeCap
	}
	if maxSteps <= 0 {
		return Episode{}, fmt.Errorf("%w: %s", ErrNoStepLimit, d.Name())
	}

	var ep Episode
	s := d.Reset()
	discount := 1.0
	for ep.Steps < maxSteps {
		if err := ctx.Err(); err != nil {
			ep.FinalState = s
			return ep, err
		}

		legal := d.LegalActions(s)
		if len(legal) == 0 {
			ep.FinalState = s
			return ep, fmt.Errorf("%w: %s state %v", ErrNoLegalActions, d.Name(), s)
		}
		a, err := p.Choose(ctx, s, legal)
		if err != nil {
			ep.FinalState = s
			return ep, fmt.Errorf("choose action: %w", err)
		}
		if !domain.ContainsAction(legal, a) {
			ep.FinalState = s
			return ep, domain.IllegalActionf(a, "policy chose outside the legal set of %s", d.Name())
		}

		reward, next, terminal, err := d.Step(a)
		if err != nil {
			ep.FinalState = s
			return ep, fmt.Errorf("%s step %d: %w", d.Name(), ep.Steps, err)
		}
		ep.Steps++
		ep.Return += reward
		ep.DiscountedReturn += discount * reward
		discount *= spec.Discount
		s = next
		if opts.Observer != nil {
			opts.Observer(d.Snapshot())
		}
		if terminal {
			ep.Terminated = true
			break
		}
	}
	ep.Truncated = !ep.Terminated
	ep.FinalState = s
	if opts.Logger != nil {
		opts.Logger.Printf("episode domain=%s steps=%d return=%.4f terminated=%t", d.Name(), ep.Steps, ep.Return, ep.Terminated)
	}
	return ep, nil
}
