package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPCGStreamsAreReproducible(t *testing.T) {
	a := NewPCG(42).Stream(DomainRoots, 7)
	b := NewPCG(42).Stream(DomainRoots, 7)
	for i := 0; i < 16; i++ {
		assert.Equal(t, a.Float32(), b.Float32())
	}
}

func TestPCGStreamsDifferByDomainAndID(t *testing.T) {
	s := NewPCG(42)
	roots := s.Stream(DomainRoots, 1).Float32()
	growth := s.Stream(DomainGrowth, 1).Float32()
	other := s.Stream(DomainRoots, 2).Float32()

	assert.NotEqual(t, roots, growth)
	assert.NotEqual(t, roots, other)
}

func TestNewPCGZeroSeedIsReplaced(t *testing.T) {
	assert.NotZero(t, NewPCG(0).Seed)
}
