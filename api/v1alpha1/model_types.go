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

// Package v1alpha1 contains the serialisable description of a blofeld model:
// which compartments exist and how they are subdivided, the named parameter
// record, the initial state and the run settings.
package v1alpha1

import (
	"fmt"
	"math"

	"k8s.io/utils/ptr"

	"github.com/ku-awdc/blofeld/pkg/core"
)

// ModelSpec describes one population model and how to run it.
type ModelSpec struct {
	// Name labels the model in logs and metrics.
	// +optional
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Mode selects continuous (deterministic) or discrete (stochastic) arithmetic.
	// Defaults to continuous.
	// +optional
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Seed seeds the random source of a discrete model. A random seed is
	// drawn when it is omitted.
	// +optional
	Seed *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Death enables other-cause mortality.
	// +optional
	Death bool `json:"death,omitempty" yaml:"death,omitempty"`

	// Compartments maps a compartment name (S, E, L, I, D, R, V, M or the long
	// names) to its shape. The "default" entry supplies values every listed
	// compartment inherits. Unlisted compartments are disabled; an empty map
	// selects a single-stage SEIR layout.
	// +optional
	Compartments map[string]CompartmentSpec `json:"compartments,omitempty" yaml:"compartments,omitempty"`

	// Parameters holds named rates, for example transmission_clinical or
	// step_duration. Unnamed parameters keep their defaults.
	// +optional
	Parameters map[string]float64 `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Initial maps a compartment name to its starting total.
	// +optional
	Initial map[string]float64 `json:"initial,omitempty" yaml:"initial,omitempty"`

	// Distribute spreads initial totals across sub-compartments instead of
	// placing them in the first one. Defaults to true.
	// +optional
	Distribute *bool `json:"distribute,omitempty" yaml:"distribute,omitempty"`

	// ExternalInfection is an infection pressure per unit time from outside the population.
	// +optional
	ExternalInfection float64 `json:"externalInfection,omitempty" yaml:"externalInfection,omitempty"`

	// Run controls how the model is stepped.
	// +optional
	Run RunSpec `json:"run,omitempty" yaml:"run,omitempty"`
}

// CompartmentSpec describes the shape of one compartment.
type CompartmentSpec struct {
	// Subcompartments is the number of chained stages; 0 disables the
	// compartment. Defaults to 1.
	// +optional
	Subcompartments *int `json:"subcompartments,omitempty" yaml:"subcompartments,omitempty"`

	// Storage is one of fixed, bounded, dynamic or disabled. Defaults to fixed.
	// +optional
	Storage string `json:"storage,omitempty" yaml:"storage,omitempty"`

	// Chain is one of sequential, immediate or none. Defaults to sequential.
	// +optional
	Chain string `json:"chain,omitempty" yaml:"chain,omitempty"`

	// Capacity is the maximum length of bounded storage.
	// +optional
	Capacity int `json:"capacity,omitempty" yaml:"capacity,omitempty"`
}

// RunSpec controls how a model is stepped.
type RunSpec struct {
	// Steps is the number of time steps to run.
	Steps int `json:"steps,omitempty" yaml:"steps,omitempty"`

	// Replicates is the number of independent runs. Only discrete models
	// differ between replicates. Defaults to 1.
	// +optional
	Replicates int `json:"replicates,omitempty" yaml:"replicates,omitempty"`

	// Parallelism caps the number of replicates run at once. 0 means one per CPU.
	// +optional
	Parallelism int `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
}

// Default fills unset fields with their defaults.
func (s *ModelSpec) Default() {
	if s.Mode == "" {
		s.Mode = core.Continuous.String()
	}
	if s.Distribute == nil {
		s.Distribute = ptr.To(true)
	}
	if s.Run.Replicates == 0 {
		s.Run.Replicates = 1
	}
}

// DistributeInitial reports whether initial totals are spread across sub-compartments.
func (s *ModelSpec) DistributeInitial() bool {
	return ptr.Deref(s.Distribute, true)
}

// Validate checks for invalid values that do not depend on the kernel's
// layout rules.
func (s *ModelSpec) Validate() error {
	mode, err := core.ParseMode(s.Mode)
	if err != nil {
		return err
	}
	if s.Run.Steps < 0 {
		return fmt.Errorf("run.steps must be >= 0, got %d", s.Run.Steps)
	}
	if s.Run.Replicates < 0 {
		return fmt.Errorf("run.replicates must be >= 0, got %d", s.Run.Replicates)
	}
	if s.Run.Parallelism < 0 {
		return fmt.Errorf("run.parallelism must be >= 0, got %d", s.Run.Parallelism)
	}
	if s.ExternalInfection < 0 {
		return fmt.Errorf("externalInfection must be >= 0, got %g", s.ExternalInfection)
	}
	for name, v := range s.Initial {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("initial value for %s must be finite and >= 0, got %g", name, v)
		}
		if mode == core.Discrete && v != math.Trunc(v) {
			return fmt.Errorf("initial value for %s must be a whole number in a discrete model, got %g", name, v)
		}
	}
	for name, c := range s.Compartments {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("compartment %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks for invalid values.
func (c *CompartmentSpec) Validate() error {
	if c.Subcompartments != nil && *c.Subcompartments < 0 {
		return fmt.Errorf("subcompartments must be >= 0, got %d", *c.Subcompartments)
	}
	if c.Capacity < 0 {
		return fmt.Errorf("capacity must be >= 0, got %d", c.Capacity)
	}
	return nil
}
