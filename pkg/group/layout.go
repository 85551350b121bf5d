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

package group

import (
	"fmt"

	"github.com/ku-awdc/blofeld/pkg/compartment"
	"github.com/ku-awdc/blofeld/pkg/core"
	"github.com/ku-awdc/blofeld/pkg/storage"
)

// Layout fixes which states a group models and how each is subdivided.
type Layout struct {
	Shapes [numNamed]compartment.Shape
	// Death enables other-cause mortality into the balance compartment.
	Death bool
}

// DefaultLayout returns a single-stage SEIR layout without death.
func DefaultLayout() Layout {
	var l Layout
	for _, n := range Names() {
		l.Shapes[n] = compartment.DisabledShape()
	}
	for _, n := range []Name{S, E, I, R} {
		l.Shapes[n] = compartment.SingleShape()
	}
	return l
}

// Shape returns the shape of the named compartment.
func (l Layout) Shape(n Name) compartment.Shape {
	if n == Z {
		return compartment.BalanceShape()
	}
	return l.Shapes[n]
}

// With returns a copy of the layout with one compartment reshaped.
func (l Layout) With(n Name, shape compartment.Shape) Layout {
	l.Shapes[n] = shape
	return l
}

// Validate checks the layout invariants.
func (l Layout) Validate() error {
	for _, n := range Names() {
		s := l.Shapes[n]
		if err := s.Validate(); err != nil {
			return fmt.Errorf("compartment %s: %w", n, err)
		}
		if s.Storage == storage.Balance {
			return fmt.Errorf("%w: compartment %s cannot use balance storage", core.ErrInvalidArgument, n)
		}
	}
	if !l.Shapes[S].Enabled() {
		return fmt.Errorf("%w: compartment S must be enabled", core.ErrInvalidArgument)
	}
	return nil
}

func (l Layout) vaccination() bool { return l.Shapes[V].Enabled() }
func (l Layout) mortality() bool   { return l.Shapes[M].Enabled() }
