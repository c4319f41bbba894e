// Package randsrc provides the seedable random streams the domains draw from.
//
// Every stochastic draw in the engine goes through a Source handed to the
// domain at construction; nothing reads the global generator. A Stream is not
// safe for concurrent use: give each domain instance its own.
package randsrc

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// streamIncrement selects the PCG sequence; fixed so equal seeds give equal streams.
const streamIncrement uint64 = 0xda3e39cb94b95bdb

// Source supplies independent uniform and normal draws.
type Source interface {
	// Float64 returns a uniform draw in [0, 1).
	Float64() float64
	// Uniform returns a uniform draw in [lo, hi).
	Uniform(lo, hi float64) float64
	// Normal returns a draw from N(mu, sigma^2).
	Normal(mu, sigma float64) float64
}

type Stream struct {
	seed uint64
	pcg  *rand.PCG
	rng  *rand.Rand
}

func New(seed uint64) *Stream {
	pcg := rand.NewPCG(seed, streamIncrement)
	return &Stream{
		seed: seed,
		pcg:  pcg,
		rng:  rand.New(pcg),
	}
}

// Seed returns the seed the stream was last (re)seeded with.
func (s *Stream) Seed() uint64 {
	return s.seed
}

// Reseed rewinds the stream to the start of the sequence for seed.
func (s *Stream) Reseed(seed uint64) {
	s.seed = seed
	s.pcg.Seed(seed, streamIncrement)
}

func (s *Stream) Float64() float64 {
	return s.rng.Float64()
}

func (s *Stream) Uniform(lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: s.rng}.Rand()
}

func (s *Stream) Normal(mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: s.rng}.Rand()
}

// Derive returns an independent stream for child index i, deterministic in
// the parent seed.
func (s *Stream) Derive(i int) *Stream {
	return New(DeriveSeed(s.seed, i))
}

// DeriveSeed mixes base and i with splitmix64 so neighbouring indices get
// uncorrelated seeds.
func DeriveSeed(base uint64, i int) uint64 {
	z := base + uint64(i+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// NewSeed draws a seed from crypto/rand for runs that did not pin one.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
