package rollout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sankeerth95/rlpy/internal/catalog"
	"github.com/sankeerth95/rlpy/internal/randsrc"
)

type BatchRequest struct {
	Domain string
	// Options configure the domain; their Seed is replaced per episode.
	Options  catalog.Options
	Seed     uint64
	Episodes int
	Workers  int
	MaxSteps int
	// Policy defaults to RandomPolicies.
	Policy PolicyFactory
	Logger *log.Logger
}

type Summary struct {
	Episodes             int
	MeanReturn           float64
	MinReturn            float64
	MaxReturn            float64
	MeanDiscountedReturn float64
	MeanSteps            float64
	TerminalRate         float64
}

type BatchResult struct {
	Domain string
	// Integrator is empty for domains without continuous dynamics.
	Integrator string
	Seed       uint64
	Episodes   []Episode
	Summary    Summary
}

// EpisodeSeed is the domain seed of episode i in a batch seeded with base.
// That episode's policy is seeded with EpisodeSeed(domainSeed, 0).
func EpisodeSeed(base uint64, i int) uint64 {
	return randsrc.DeriveSeed(base, i)
}

// RunBatch runs independent episodes, each on its own domain instance. The
// result order and content depend only on the request, not on Workers.
func RunBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if req.Episodes <= 0 {
		return BatchResult{}, errors.New("episodes must be positive")
	}
	workers := req.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > req.Episodes {
		workers = req.Episodes
	}
	policies := req.Policy
	if policies == nil {
		policies = RandomPolicies
	}

	// Resolve the domain once so a bad name fails before any work starts.
	probe, err := catalog.New(req.Domain, req.Options)
	if err != nil {
		return BatchResult{}, err
	}
	name := probe.Name()
	var integrator string
	if withIntegrator, ok := probe.(interface{ IntegratorName() string }); ok {
		integrator = withIntegrator.IntegratorName()
	}

	episodes := make([]Episode, req.Episodes)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < req.Episodes; i++ {
		g.Go(func() error {
			seed := EpisodeSeed(req.Seed, i)
			opts := req.Options
			opts.Seed = seed
			d, err := catalog.New(name, opts)
			if err != nil {
				return err
			}
			ep, err := RunEpisode(gctx, d, policies(EpisodeSeed(seed, 0)), Options{MaxSteps: req.MaxSteps, Logger: req.Logger})
			if err != nil {
				return fmt.Errorf("episode %d: %w", i, err)
			}
			ep.Index = i
			ep.Seed = seed
			episodes[i] = ep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	summary := Summarize(episodes)
	if req.Logger != nil {
		req.Logger.Printf("batch domain=%s episodes=%d workers=%d mean_return=%.4f mean_steps=%.1f terminal_rate=%.3f",
			name, summary.Episodes, workers, summary.MeanReturn, summary.MeanSteps, summary.TerminalRate)
	}
	return BatchResult{
		Domain:     name,
		Integrator: integrator,
		Seed:       req.Seed,
		Episodes:   episodes,
		Summary:    summary,
	}, nil
}

func Summarize(episodes []Episode) Summary {
	if len(episodes) == 0 {
		return Summary{}
	}
	returns := make([]float64, len(episodes))
	discounted := make([]float64, len(episodes))
	steps := make([]float64, len(episodes))
	terminated := 0
	for i, ep := range episodes {
		returns[i] = ep.Return
		discounted[i] = ep.DiscountedReturn
		steps[i] = float64(ep.Steps)
		if ep.Terminated {
			terminated++
		}
	}
	return Summary{
		Episodes:             len(episodes),
		MeanReturn:           stat.Mean(returns, nil),
		MinReturn:            floats.Min(returns),
		MaxReturn:            floats.Max(returns),
		MeanDiscountedReturn: stat.Mean(discounted, nil),
		MeanSteps:            stat.Mean(steps, nil),
		TerminalRate:         float64(terminated) / float64(len(episodes)),
	}
}
