// Package rng provides the injectable random source used by the sampler and
// growth stages.
//
// Work is split into independent items (one root, one strand), and each item
// draws from its own stream. A stream depends only on the seed, the domain and
// the item id, so results do not depend on how items are batched or scheduled.
package rng

import (
	"math/rand/v2"
	"time"
)

// Source is the subset of *rand.Rand the stages draw from.
type Source interface {
	Float32() float32
	IntN(n int) int
}

// Domain separates streams used for different purposes.
type Domain uint64

const (
	DomainRoots  Domain = 1
	DomainGrowth Domain = 2
)

// Streams hands out an independent Source per (domain, id).
type Streams interface {
	Stream(d Domain, id uint64) Source
}

// PCG derives streams from a fixed seed with math/rand/v2's PCG generator.
type PCG struct {
	Seed uint64
}

// NewPCG returns PCG streams for seed. A zero seed is replaced by a
// time-based one.
func NewPCG(seed uint64) PCG {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return PCG{Seed: seed}
}

// Stream returns the stream for (d, id).
func (p PCG) Stream(d Domain, id uint64) Source {
	// domains are spread by the 64-bit golden ratio
	return rand.New(rand.NewPCG(p.Seed^(uint64(d)*0x9e3779b97f4a7c15), id))
}

// Func adapts a function to Streams.
type Func func(d Domain, id uint64) Source

// Stream calls f.
func (f Func) Stream(d Domain, id uint64) Source {
	return f(d, id)
}
