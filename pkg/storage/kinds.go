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

package storage

import (
	"fmt"
	"iter"
	"slices"

	"github.com/ku-awdc/blofeld/pkg/core"
)

// slots holds the values common to every non-disabled kind.
type slots[V core.Value] struct {
	values []V
}

func newSlots[V core.Value](n, capacity int) slots[V] {
	return slots[V]{values: make([]V, n, capacity)}
}

func (s *slots[V]) Len() int       { return len(s.values) }
func (s *slots[V]) At(i int) V     { return s.values[i] }
func (s *slots[V]) Set(i int, v V) { s.values[i] = v }
func (s *slots[V]) Add(i int, v V) { s.values[i] += v }
func (s *slots[V]) Values() []V    { return slices.Clone(s.values) }
func (s *slots[V]) raw() []V       { return s.values }

func (s *slots[V]) All() iter.Seq2[int, V] {
	return slices.All(s.values)
}

func (s *slots[V]) Sum() V {
	var total V
	for _, v := range s.values {
		total += v
	}
	return total
}

func (s *slots[V]) Reset() {
	clear(s.values)
}

func (s *slots[V]) CopyFrom(src Storage[V]) error {
	if src.Len() != len(s.values) {
		return fmt.Errorf("%w: cannot copy %d values into %d slots", core.ErrInvalidArgument, src.Len(), len(s.values))
	}
	copy(s.values, src.raw())
	return nil
}

func (s *slots[V]) checkNonNegative(kind Kind) error {
	for i, v := range s.values {
		if v < 0 {
			return fmt.Errorf("%w: %s storage holds negative value %v at index %d", core.ErrInvalidArgument, kind, v, i)
		}
	}
	return nil
}

type fixed[V core.Value] struct {
	slots[V]
}

func (s *fixed[V]) Kind() Kind   { return Fixed }
func (s *fixed[V]) Cap() int     { return len(s.values) }
func (s *fixed[V]) Check() error { return s.checkNonNegative(Fixed) }
func (s *fixed[V]) Resize(n int) error {
	return fmt.Errorf("%w: fixed storage cannot be resized to %d", core.ErrInvalidArgument, n)
}

type bounded[V core.Value] struct {
	slots[V]
	max int
}

func (s *bounded[V]) Kind() Kind   { return BoundedDynamic }
func (s *bounded[V]) Cap() int     { return s.max }
func (s *bounded[V]) Check() error { return s.checkNonNegative(BoundedDynamic) }

func (s *bounded[V]) Resize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative length %d", core.ErrInvalidArgument, n)
	}
	if n > s.max {
		return fmt.Errorf("%w: length %d exceeds maximum %d", core.ErrOutOfRange, n, s.max)
	}
	s.values = s.values[:n]
	clear(s.values)
	return nil
}

type dynamic[V core.Value] struct {
	slots[V]
}

func (s *dynamic[V]) Kind() Kind   { return Dynamic }
func (s *dynamic[V]) Cap() int     { return -1 }
func (s *dynamic[V]) Check() error { return s.checkNonNegative(Dynamic) }

func (s *dynamic[V]) Resize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative length %d", core.ErrInvalidArgument, n)
	}
	if n <= cap(s.values) {
		s.values = s.values[:n]
		clear(s.values)
		return nil
	}
	s.values = make([]V, n)
	return nil
}

// balance is a net-flow accumulator, so negative values are legal.
type balance[V core.Value] struct {
	slots[V]
}

func (s *balance[V]) Kind() Kind   { return Balance }
func (s *balance[V]) Cap() int     { return 1 }
func (s *balance[V]) Check() error { return nil }
func (s *balance[V]) Resize(n int) error {
	return fmt.Errorf("%w: balance storage cannot be resized to %d", core.ErrInvalidArgument, n)
}

// disabled stands in for a compartment that is not part of the model.
type disabled[V core.Value] struct{}

func (disabled[V]) Kind() Kind             { return Disabled }
func (disabled[V]) Len() int               { return 0 }
func (disabled[V]) Cap() int               { return 0 }
func (disabled[V]) Values() []V            { return nil }
func (disabled[V]) Sum() V                 { return 0 }
func (disabled[V]) Reset()                 {}
func (disabled[V]) Check() error           { return nil }
func (disabled[V]) raw() []V               { return nil }
func (disabled[V]) All() iter.Seq2[int, V] { return func(func(int, V) bool) {} }

func (disabled[V]) At(i int) V {
	panic(fmt.Sprintf("storage: index %d out of range for disabled storage", i))
}

func (disabled[V]) Set(i int, _ V) {
	panic(fmt.Sprintf("storage: index %d out of range for disabled storage", i))
}

func (disabled[V]) Add(i int, _ V) {
	panic(fmt.Sprintf("storage: index %d out of range for disabled storage", i))
}

func (disabled[V]) Resize(n int) error {
	if n != 0 {
		return fmt.Errorf("%w: disabled storage cannot hold %d slots", core.ErrInvalidArgument, n)
	}
	return nil
}

func (disabled[V]) CopyFrom(src Storage[V]) error {
	if src.Len() != 0 {
		return fmt.Errorf("%w: cannot copy %d values into disabled storage", core.ErrInvalidArgument, src.Len())
	}
	return nil
}
