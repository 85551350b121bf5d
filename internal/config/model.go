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

package config

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"k8s.io/utils/ptr"

	"github.com/ku-awdc/blofeld/api/v1alpha1"
	"github.com/ku-awdc/blofeld/internal/logging"
	"github.com/ku-awdc/blofeld/pkg/compartment"
	"github.com/ku-awdc/blofeld/pkg/core"
	"github.com/ku-awdc/blofeld/pkg/group"
	"github.com/ku-awdc/blofeld/pkg/random"
)

// Model is a validated ModelSpec resolved into kernel types.
type Model struct {
	Name              string
	Mode              core.Mode
	Seed              uint64
	Layout            group.Layout
	Parameters        group.Parameters
	Initial           map[group.Name]float64
	Distribute        bool
	ExternalInfection float64
	Run               v1alpha1.RunSpec
}

// Resolve turns a defaulted and validated spec, together with its normalized
// compartment entries, into a Model. A discrete model without a seed gets a
// fresh one, which is logged so the run can be repeated.
func Resolve(spec *v1alpha1.ModelSpec, shapes CompartmentShapes) (*Model, error) {
	mode, err := core.ParseMode(spec.Mode)
	if err != nil {
		return nil, err
	}
	layout, err := shapes.Layout(spec.Death)
	if err != nil {
		return nil, err
	}
	params, err := BuildParameters(spec.Parameters)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Name:              spec.Name,
		Mode:              mode,
		Layout:            layout,
		Parameters:        params,
		Initial:           make(map[group.Name]float64, len(spec.Initial)),
		Distribute:        spec.DistributeInitial(),
		ExternalInfection: spec.ExternalInfection,
		Run:               spec.Run,
	}

	keys := make([]string, 0, len(spec.Initial))
	for k := range spec.Initial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		n, err := group.ParseName(key)
		if err != nil {
			return nil, err
		}
		if n == group.Z {
			return nil, fmt.Errorf("initial value for %s: the balance compartment is derived", key)
		}
		v := spec.Initial[key]
		if v > 0 && !layout.Shape(n).Enabled() {
			return nil, fmt.Errorf("initial value for %s: compartment %s is disabled", key, n)
		}
		if _, dup := m.Initial[n]; dup {
			return nil, fmt.Errorf("initial value for %s: compartment %s is listed twice", key, n)
		}
		m.Initial[n] = v
	}

	if mode == core.Discrete {
		if spec.Seed != nil {
			m.Seed = ptr.Deref(spec.Seed, 0)
		} else {
			seed, err := random.NewSeed()
			if err != nil {
				return nil, err
			}
			m.Seed = seed
			logging.Log.Info("Drew random seed", "model", spec.Name, "seed", seed)
		}
	}
	return m, nil
}

// BuildParameters overlays named values on the default parameters.
func BuildParameters(values map[string]float64) (group.Parameters, error) {
	p := group.DefaultParameters()
	if err := p.Merge(values); err != nil {
		return group.Parameters{}, err
	}
	if err := p.Validate(); err != nil {
		return group.Parameters{}, err
	}
	return p, nil
}

// Build creates a group for the model and loads its initial state.
func Build[T core.Value](m *Model, arith compartment.Arithmetic[T], log logr.Logger) (*group.Group[T], error) {
	g, err := group.New(m.Layout, arith,
		group.WithLogger(log),
		group.WithParameters(m.Parameters),
		group.WithExternalInfection(m.ExternalInfection))
	if err != nil {
		return nil, err
	}
	for _, n := range group.Names() {
		v, ok := m.Initial[n]
		if !ok {
			continue
		}
		if err := g.SetTotal(n, T(v), m.Distribute); err != nil {
			return nil, fmt.Errorf("initial value for %s: %w", n, err)
		}
	}
	return g, nil
}
