// Package catalog maps domain names to constructors so callers can build a
// fresh, independently seeded domain per episode.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sankeerth95/rlpy/internal/cartpole"
	"github.com/sankeerth95/rlpy/internal/domain"
	"github.com/sankeerth95/rlpy/internal/domainid"
	"github.com/sankeerth95/rlpy/internal/ode"
	"github.com/sankeerth95/rlpy/internal/pst"
	"github.com/sankeerth95/rlpy/internal/randsrc"
)

var (
	ErrDomainExists   = errors.New("domain already registered")
	ErrDomainNotFound = errors.New("domain not found")
)

// Options tune the built-in domains. Zero values keep each domain's preset.
type Options struct {
	Seed uint64

	// Integrator is one of ode.ByName's methods; Substeps applies to the
	// fixed-step methods.
	Integrator string
	Substeps   int
	GoodReward float64

	Units         int
	// CommLocations nil keeps the preset; zero relays is valid.
	CommLocations *int
	MotionNoise   float64
}

type Factory func(opts Options) (domain.Domain, error)

var registry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	mustRegister(domainid.CartPoleBalanceOriginal, func(opts Options) (domain.Domain, error) {
		return newCartPole(cartpole.BalanceOriginal(opts.GoodReward), opts)
	})
	mustRegister(domainid.CartPoleBalanceModern, func(opts Options) (domain.Domain, error) {
		return newCartPole(cartpole.BalanceModern(), opts)
	})
	mustRegister(domainid.PST, newPST)
}

func Register(name string, factory Factory) error {
	name = domainid.Normalize(name)
	if name == "" {
		return errors.New("domain name is required")
	}
	if factory == nil {
		return errors.New("domain factory is required")
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrDomainExists, name)
	}
	registry.m[name] = factory
	return nil
}

func mustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// New builds the domain registered under name or one of its aliases.
func New(name string, opts Options) (domain.Domain, error) {
	canonical := domainid.Normalize(name)
	registry.mu.RLock()
	factory, ok := registry.m[canonical]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotFound, name)
	}
	return factory(opts)
}

func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.m))
	for name := range registry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newCartPole(cfg cartpole.Config, opts Options) (domain.Domain, error) {
	if opts.Integrator != "" || opts.Substeps > 0 {
		integrator, err := ode.ByName(opts.Integrator, opts.Substeps)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		cfg.Integrator = integrator
	}
	d, err := cartpole.New(cfg, randsrc.New(opts.Seed))
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newPST(opts Options) (domain.Domain, error) {
	cfg := pst.DefaultConfig()
	if opts.Units > 0 {
		cfg.Units = opts.Units
	}
	if opts.CommLocations != nil {
		cfg.CommLocations = *opts.CommLocations
	}
	cfg.PMotionNoise = opts.MotionNoise
	d, err := pst.New(cfg, randsrc.New(opts.Seed))
	if err != nil {
		return nil, err
	}
	return d, nil
}
