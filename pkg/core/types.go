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

package core

import (
	"fmt"
	"strings"
)

// Value is the set of count types a model can be built on.
// float64 selects continuous arithmetic and int selects discrete arithmetic.
type Value interface {
	~float64 | ~int
}

// Mode is the arithmetic mode of a whole model.
type Mode int

// enumeration of Mode
const (
	Continuous Mode = iota
	Discrete
)

// Tolerance is the magnitude below which a negative residue left by floating
// point subtraction is snapped to zero, and the allowed conservation error of a
// continuous model.
const Tolerance = 1e-9

// ProportionSlack is how far a sum of exit proportions may exceed one before it
// is rejected.
const ProportionSlack = 1e-12

func (m Mode) String() string {
	switch m {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a configuration string into a Mode.
// The deterministic and stochastic aliases are accepted as well.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continuous", "deterministic":
		return Continuous, nil
	case "discrete", "stochastic":
		return Discrete, nil
	default:
		return Continuous, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, s)
	}
}
