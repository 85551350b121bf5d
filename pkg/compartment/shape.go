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
	"strings"

	"github.com/ku-awdc/blofeld/pkg/core"
	"github.com/ku-awdc/blofeld/pkg/storage"
)

// ChainKind selects how individuals progress through the sub-compartments.
type ChainKind int

// enumeration of ChainKind
const (
	// Sequential moves an individual at most one sub-compartment per step.
	Sequential ChainKind = iota
	// Immediate lets individuals entering a sub-compartment leave it in the same step.
	Immediate
	// None means the sub-compartments do not feed each other.
	None
)

func (k ChainKind) String() string {
	switch k {
	case Sequential:
		return "sequential"
	case Immediate:
		return "immediate"
	case None:
		return "none"
	default:
		return fmt.Sprintf("ChainKind(%d)", int(k))
	}
}

// ParseChainKind converts a configuration string into a ChainKind.
func ParseChainKind(s string) (ChainKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential":
		return Sequential, nil
	case "immediate":
		return Immediate, nil
	case "none":
		return None, nil
	default:
		return None, fmt.Errorf("%w: unknown chain kind %q", core.ErrInvalidArgument, s)
	}
}

// Shape fixes the structure of one compartment.
type Shape struct {
	// Subcompartments is the starting number of chained stages.
	Subcompartments int
	Storage         storage.Kind
	Chain           ChainKind
	// Capacity is the maximum length of BoundedDynamic storage.
	Capacity int
}

// DisabledShape returns the shape of a compartment that is not part of the model.
func DisabledShape() Shape {
	return Shape{Storage: storage.Disabled, Chain: None}
}

// SingleShape returns a one-stage fixed compartment.
func SingleShape() Shape {
	return Shape{Subcompartments: 1, Storage: storage.Fixed, Chain: None}
}

// ChainShape returns an n-stage sequential fixed compartment, or a disabled
// shape when n is 0.
func ChainShape(n int) Shape {
	s, err := NewShape(n, storage.Fixed, Sequential)
	if err != nil {
		return Shape{Subcompartments: n, Storage: storage.Fixed, Chain: Sequential}
	}
	return s
}

// BalanceShape returns the shape of a net-flow accumulator.
func BalanceShape() Shape {
	return Shape{Subcompartments: 1, Storage: storage.Balance, Chain: None}
}

// NewShape builds a normalised, validated Shape.
func NewShape(n int, kind storage.Kind, chain ChainKind) (Shape, error) {
	s := Shape{Subcompartments: n, Storage: kind, Chain: chain}
	if kind == storage.BoundedDynamic {
		s.Capacity = n
	}
	s = s.normalize()
	return s, s.Validate()
}

// normalize applies the implied simplifications: zero fixed stages means the
// compartment is disabled and a single non-resizable stage has nothing to chain.
func (s Shape) normalize() Shape {
	if s.Subcompartments == 0 && (s.Storage == storage.Fixed || s.Storage == storage.Disabled) {
		s.Storage = storage.Disabled
	}
	if s.Storage == storage.Disabled || s.Storage == storage.Balance {
		s.Chain = None
	}
	if s.Subcompartments == 1 && !s.Storage.Resizable() {
		s.Chain = None
	}
	if s.Storage == storage.BoundedDynamic && s.Capacity < s.Subcompartments {
		s.Capacity = s.Subcompartments
	}
	return s
}

// Validate checks the shape invariants.
func (s Shape) Validate() error {
	if s.Subcompartments < 0 {
		return fmt.Errorf("%w: subcompartments must be >= 0, got %d", core.ErrInvalidArgument, s.Subcompartments)
	}
	if s.Chain < Sequential || s.Chain > None {
		return fmt.Errorf("%w: unsupported chain kind: %v", core.ErrInvalidArgument, s.Chain)
	}
	switch s.Storage {
	case storage.Disabled:
		if s.Subcompartments != 0 {
			return fmt.Errorf("%w: disabled compartment must have 0 subcompartments, got %d", core.ErrInvalidArgument, s.Subcompartments)
		}
	case storage.Balance:
		if s.Subcompartments != 1 {
			return fmt.Errorf("%w: balance compartment must have 1 subcompartment, got %d", core.ErrInvalidArgument, s.Subcompartments)
		}
	case storage.Fixed:
		if s.Subcompartments == 0 {
			return fmt.Errorf("%w: fixed compartment needs at least 1 subcompartment", core.ErrInvalidArgument)
		}
	case storage.BoundedDynamic:
		if s.Capacity < 1 || s.Capacity < s.Subcompartments {
			return fmt.Errorf("%w: bounded compartment capacity %d must be >= max(1, %d)", core.ErrInvalidArgument, s.Capacity, s.Subcompartments)
		}
	case storage.Dynamic:
	default:
		return fmt.Errorf("%w: unsupported storage kind: %v", core.ErrInvalidArgument, s.Storage)
	}
	if s.Subcompartments == 1 && !s.Storage.Resizable() && s.Chain != None {
		return fmt.Errorf("%w: a single %s subcompartment cannot chain", core.ErrInvalidArgument, s.Storage)
	}
	return nil
}

// Enabled reports whether the shape holds any values.
func (s Shape) Enabled() bool {
	return s.Storage != storage.Disabled
}

func (s Shape) String() string {
	return fmt.Sprintf("%s[%d]/%s", s.Storage, s.Subcompartments, s.Chain)
}
