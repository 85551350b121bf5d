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

import "github.com/ku-awdc/blofeld/pkg/core"

// State is a snapshot of the committed compartment totals.
type State[T core.Value] struct {
	Time  float64 `json:"time" yaml:"time"`
	Steps int     `json:"steps" yaml:"steps"`
	// Totals is keyed by compartment name and includes Z.
	Totals map[string]T `json:"totals" yaml:"totals"`
}

// FullState is a snapshot of the committed sub-compartment values of every
// enabled compartment.
type FullState[T core.Value] struct {
	Time   float64        `json:"time" yaml:"time"`
	Steps  int            `json:"steps" yaml:"steps"`
	Values map[string][]T `json:"values" yaml:"values"`
}

// State returns the totals of all compartments, disabled ones included as zero.
func (g *Group[T]) State() State[T] {
	st := State[T]{Time: g.time, Steps: g.steps, Totals: make(map[string]T, numNamed+1)}
	for _, n := range Names() {
		st.Totals[n.String()] = g.comps[n].Total()
	}
	st.Totals[Z.String()] = g.balance.Total()
	return st
}

// FullState returns the sub-compartment values of the enabled compartments.
func (g *Group[T]) FullState() FullState[T] {
	st := FullState[T]{Time: g.time, Steps: g.steps, Values: make(map[string][]T, numNamed)}
	for _, n := range Names() {
		if g.comps[n].Enabled() {
			st.Values[n.String()] = g.comps[n].Values()
		}
	}
	return st
}

// Get returns the total of the named compartment.
func (s State[T]) Get(n Name) T {
	return s.Totals[n.String()]
}
