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

package compartment

import (
	"fmt"

	"github.com/ku-awdc/blofeld/pkg/core"
	"github.com/ku-awdc/blofeld/pkg/random"
	"github.com/ku-awdc/blofeld/pkg/storage"
)

// Arithmetic moves counts of type V. It is chosen once per model.
type Arithmetic[V core.Value] interface {
	Mode() core.Mode
	// Split writes to out[j] the amount of v leaving through exit j, where
	// props are competing proportions summing to at most one.
	Split(v V, props []float64, out []V)
	// Spread adds amount across every slot of s. A negative amount removes
	// individuals and fails without mutating s if a slot would go negative.
	Spread(amount V, s storage.Storage[V]) error
}

// Continuous is proportional arithmetic on real-valued counts.
type Continuous struct{}

var _ Arithmetic[float64] = Continuous{}

func (Continuous) Mode() core.Mode { return core.Continuous }

func (Continuous) Split(v float64, props []float64, out []float64) {
	for j, p := range props {
		out[j] = v * p
	}
}

func (Continuous) Spread(amount float64, s storage.Storage[float64]) error {
	n := s.Len()
	if n == 0 {
		if amount != 0 {
			return fmt.Errorf("%w: cannot spread %g over zero slots", core.ErrInvalidArgument, amount)
		}
		return nil
	}
	share := amount / float64(n)
	if share < 0 && s.Kind() != storage.Balance {
		for i, v := range s.All() {
			if v+share < -core.Tolerance {
				return fmt.Errorf("%w: removing %g from slot %d holding %g", core.ErrInvalidArgument, -share, i, v)
			}
		}
	}
	for i := range n {
		s.Add(i, share)
	}
	return nil
}

// Discrete is binomial arithmetic on integer counts.
type Discrete struct {
	Source random.Source
}

var _ Arithmetic[int] = Discrete{}

func (Discrete) Mode() core.Mode { return core.Discrete }

// Split draws the exits by sequential binomials, each renormalised against the
// probability already consumed, so no individual leaves twice.
func (d Discrete) Split(v int, props []float64, out []int) {
	random.Multinomial(d.Source, v, props, out)
}

func (d Discrete) Spread(amount int, s storage.Storage[int]) error {
	n := s.Len()
	switch {
	case amount == 0:
		return nil
	case n == 0:
		return fmt.Errorf("%w: cannot spread %d over zero slots", core.ErrInvalidArgument, amount)
	case s.Kind() == storage.Balance:
		s.Add(0, amount)
		return nil
	}
	draws := make([]int, n)
	if amount > 0 {
		random.Spread(d.Source, amount, draws)
		for i, k := range draws {
			s.Add(i, k)
		}
		return nil
	}
	if err := random.Remove(d.Source, -amount, s.Values(), draws); err != nil {
		return err
	}
	for i, k := range draws {
		s.Add(i, -k)
	}
	return nil
}
