/*
Copyright 2025 The blofeld Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package random provides the seeded random source used by discrete models.
//
// The kernel only needs one capability from it, a binomial draw, expressed by
// the Source interface. Generator implements Source on top of gonum's binomial
// distribution and a PCG stream from math/rand/v2. A Generator is not safe for
// concurrent use; give every replicate its own.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// streamKey separates the two PCG words derived from one seed.
const streamKey = 0x9e3779b97f4a7c15

// Source is the capability the kernel requires from a random number generator.
type Source interface {
	// Binomial returns the number of successes in n trials with probability p,
	// always in [0, n].
	Binomial(n int, p float64) int
}

// Generator is a deterministic Source seeded with a single integer.
type Generator struct {
	seed uint64
	pcg  *rand.PCG
}

// New creates a Generator from a seed. Equal seeds produce equal draw sequences.
func New(seed uint64) *Generator {
	return &Generator{seed: seed, pcg: rand.NewPCG(seed, seed^streamKey)}
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// ReplicateSeed derives the seed of one replicate from the seed of an
// ensemble, so replicates draw independent streams that are still
// reproducible from a single number.
func ReplicateSeed(base uint64, replicate int) uint64 {
	// splitmix64 finaliser
	z := base + uint64(replicate+1)*streamKey
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Seed returns the seed the generator was last seeded with.
func (g *Generator) Seed() uint64 {
	return g.seed
}

// Reseed restarts the draw sequence from a new seed.
func (g *Generator) Reseed(seed uint64) {
	g.seed = seed
	g.pcg.Seed(seed, seed^streamKey)
}

// Binomial draws from Binomial(n, p). A non-positive n or p gives 0 and p >= 1 gives n.
func (g *Generator) Binomial(n int, p float64) int {
	switch {
	case n <= 0 || p <= 0 || math.IsNaN(p):
		return 0
	case p >= 1:
		return n
	}
	d := distuv.Binomial{N: float64(n), P: p, Src: g.pcg}
	k := int(math.Round(d.Rand()))
	return min(max(k, 0), n)
}
