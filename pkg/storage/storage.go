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
	"strings"

	"github.com/ku-awdc/blofeld/pkg/core"
)

// Kind enumerates the container variants.
type Kind int

// enumeration of Kind
const (
	Disabled Kind = iota
	Fixed
	BoundedDynamic
	Dynamic
	Balance
)

var kindNames = map[Kind]string{
	Disabled:       "disabled",
	Fixed:          "fixed",
	BoundedDynamic: "bounded",
	Dynamic:        "dynamic",
	Balance:        "balance",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Resizable reports whether containers of this kind accept Resize.
func (k Kind) Resizable() bool {
	return k == BoundedDynamic || k == Dynamic
}

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "boundeddynamic", "bounded_dynamic":
		return BoundedDynamic, nil
	case "array":
		return Fixed, nil
	case "vector":
		return Dynamic, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return Disabled, fmt.Errorf("%w: unknown storage kind %q", core.ErrInvalidArgument, s)
}

// Storage is the capability shared by every container kind.
// Indexing outside [0, Len()) panics like a slice access.
type Storage[V core.Value] interface {
	// Kind returns the container variant.
	Kind() Kind
	// Len returns the current number of sub-compartments.
	Len() int
	// Cap returns the largest length the container can take, or -1 when unbounded.
	Cap() int
	At(i int) V
	Set(i int, v V)
	Add(i int, v V)
	// All iterates over the values in index order.
	All() iter.Seq2[int, V]
	// Values returns a copy of the values.
	Values() []V
	Sum() V
	// Reset zeroes every value without changing the length.
	Reset()
	// Resize changes the length and zeroes the contents.
	Resize(n int) error
	// CopyFrom overwrites the values with those of a container of equal length.
	CopyFrom(src Storage[V]) error
	// Check reports a negative value in a container that does not allow them.
	Check() error

	raw() []V
}

// New is a factory that creates a container of the given kind and length.
// max is only used by BoundedDynamic; a max below n defaults to n.
func New[V core.Value](kind Kind, n, max int) (Storage[V], error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", core.ErrInvalidArgument, n)
	}
	switch kind {
	case Disabled:
		if n != 0 {
			return nil, fmt.Errorf("%w: disabled storage must have length 0, got %d", core.ErrInvalidArgument, n)
		}
		return disabled[V]{}, nil
	case Fixed:
		if n == 0 {
			return nil, fmt.Errorf("%w: fixed storage needs at least one slot", core.ErrInvalidArgument)
		}
		return &fixed[V]{slots: newSlots[V](n, n)}, nil
	case BoundedDynamic:
		if max < n {
			max = n
		}
		if max == 0 {
			return nil, fmt.Errorf("%w: bounded storage needs a positive maximum", core.ErrInvalidArgument)
		}
		return &bounded[V]{slots: newSlots[V](n, max), max: max}, nil
	case Dynamic:
		return &dynamic[V]{slots: newSlots[V](n, n)}, nil
	case Balance:
		if n != 1 {
			return nil, fmt.Errorf("%w: balance storage must have length 1, got %d", core.ErrInvalidArgument, n)
		}
		return &balance[V]{slots: newSlots[V](1, 1)}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported storage kind: %v", core.ErrInvalidArgument, kind)
	}
}
