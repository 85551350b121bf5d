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
	"strings"

	"github.com/ku-awdc/blofeld/pkg/core"
)

// Name identifies a compartment of the group.
type Name int

// enumeration of Name
const (
	S Name = iota
	E
	L
	I
	D
	R
	V
	M
	// Z is the balance compartment.
	Z
)

// numNamed is the number of population compartments, Z excluded.
const numNamed = int(Z)

var (
	shortNames = [...]string{"S", "E", "L", "I", "D", "R", "V", "M", "Z"}
	longNames  = [...]string{"susceptible", "exposed", "latent", "infectious", "diseased", "recovered", "vaccinated", "mortality", "balance"}
)

func (n Name) String() string {
	if n < S || n > Z {
		return fmt.Sprintf("Name(%d)", int(n))
	}
	return shortNames[n]
}

// ParseName accepts a short or long compartment name in any case.
func ParseName(s string) (Name, error) {
	s = strings.TrimSpace(s)
	for i := range shortNames {
		if strings.EqualFold(s, shortNames[i]) || strings.EqualFold(s, longNames[i]) {
			return Name(i), nil
		}
	}
	return S, fmt.Errorf("%w: unrecognised compartment %q", core.ErrInvalidArgument, s)
}

// Names returns the population compartments in step order, Z excluded.
func Names() []Name {
	return []Name{S, E, L, I, D, R, V, M}
}
