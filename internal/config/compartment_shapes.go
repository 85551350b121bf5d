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

	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"

	"github.com/ku-awdc/blofeld/api/v1alpha1"
	"github.com/ku-awdc/blofeld/internal/logging"
	"github.com/ku-awdc/blofeld/pkg/compartment"
	"github.com/ku-awdc/blofeld/pkg/group"
	"github.com/ku-awdc/blofeld/pkg/storage"
)

// GlobalDefaultsKey is the compartment entry every other entry inherits from.
const GlobalDefaultsKey = "default"

// CompartmentShapes holds the compartment entries of a model keyed by the
// canonical compartment name, plus GlobalDefaultsKey.
type CompartmentShapes map[string]v1alpha1.CompartmentSpec

// ParseCompartmentShapes parses compartment entries whose values are YAML
// documents, as given on the command line:
//
//	--compartment default="chain: sequential" --compartment E="subcompartments: 3"
func ParseCompartmentShapes(data map[string]string) (CompartmentShapes, error) {
	entries := make(map[string]v1alpha1.CompartmentSpec, len(data))
	for key, doc := range data {
		var spec v1alpha1.CompartmentSpec
		if err := yaml.Unmarshal([]byte(doc), &spec); err != nil {
			return nil, fmt.Errorf("parse compartment entry %q: %w", key, err)
		}
		entries[key] = spec
	}
	return NormalizeCompartments(entries)
}

// NormalizeCompartments validates compartment entries and resolves their
// names. When two keys name the same compartment, for example "I" and
// "infectious", the first key in sorted order wins.
func NormalizeCompartments(entries map[string]v1alpha1.CompartmentSpec) (CompartmentShapes, error) {
	out := make(CompartmentShapes, len(entries))
	nameToKey := make(map[string]string)

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		spec := entries[key]
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("invalid compartment entry %q: %w", key, err)
		}

		if key == GlobalDefaultsKey {
			out[GlobalDefaultsKey] = spec
			continue
		}

		name, err := group.ParseName(key)
		if err != nil {
			return nil, err
		}
		if name == group.Z {
			return nil, fmt.Errorf("compartment entry %q: the balance compartment is not configurable", key)
		}
		canonical := name.String()
		if winner, exists := nameToKey[canonical]; exists {
			logging.Log.Info("Duplicate compartment entry - first key wins",
				"compartment", canonical,
				"winningKey", winner,
				"duplicateKey", key)
			continue
		}
		nameToKey[canonical] = key
		out[canonical] = spec
	}

	logging.Log.V(logging.DEBUG).Info("Parsed compartment entries",
		"compartmentCount", len(nameToKey))

	return out, nil
}

// Merge overlays other on top of the receiver, entry by entry.
func (data CompartmentShapes) Merge(other CompartmentShapes) CompartmentShapes {
	out := make(CompartmentShapes, len(data)+len(other))
	for k, v := range data {
		out[k] = v
	}
	for k, v := range other {
		out[k] = mergeSpec(out[k], v)
	}
	return out
}

// GetCompartmentSpec returns the effective entry for a compartment and whether
// the compartment was listed at all. It merges the entry with the defaults.
func (data CompartmentShapes) GetCompartmentSpec(name group.Name) (v1alpha1.CompartmentSpec, bool) {
	override, listed := data[name.String()]
	if !listed {
		return v1alpha1.CompartmentSpec{}, false
	}
	return mergeSpec(data[GlobalDefaultsKey], override), true
}

func mergeSpec(base, override v1alpha1.CompartmentSpec) v1alpha1.CompartmentSpec {
	result := base
	if override.Subcompartments != nil {
		result.Subcompartments = override.Subcompartments
	}
	if override.Storage != "" {
		result.Storage = override.Storage
	}
	if override.Chain != "" {
		result.Chain = override.Chain
	}
	if override.Capacity != 0 {
		result.Capacity = override.Capacity
	}
	return result
}

// ToShape converts an entry into a validated compartment shape.
func ToShape(spec v1alpha1.CompartmentSpec) (compartment.Shape, error) {
	n := ptr.Deref(spec.Subcompartments, 1)
	kind := storage.Fixed
	if spec.Storage != "" {
		k, err := storage.ParseKind(spec.Storage)
		if err != nil {
			return compartment.Shape{}, err
		}
		kind = k
	}
	chain, err := compartment.ParseChainKind(spec.Chain)
	if err != nil {
		return compartment.Shape{}, err
	}
	shape, err := compartment.NewShape(n, kind, chain)
	if err != nil {
		return compartment.Shape{}, err
	}
	if spec.Capacity != 0 {
		shape.Capacity = spec.Capacity
		if err := shape.Validate(); err != nil {
			return compartment.Shape{}, err
		}
	}
	return shape, nil
}

// Layout builds the group layout. Unlisted compartments are disabled; when no
// compartment is listed at all, S, E, I and R are enabled with the defaults.
func (data CompartmentShapes) Layout(death bool) (group.Layout, error) {
	if len(data) == 0 || (len(data) == 1 && hasDefaults(data)) {
		seir := CompartmentShapes{GlobalDefaultsKey: data[GlobalDefaultsKey]}
		for _, name := range []group.Name{group.S, group.E, group.I, group.R} {
			seir[name.String()] = v1alpha1.CompartmentSpec{}
		}
		data = seir
	}
	l := group.Layout{Death: death}
	for _, name := range group.Names() {
		spec, listed := data.GetCompartmentSpec(name)
		if !listed {
			l.Shapes[name] = compartment.DisabledShape()
			continue
		}
		shape, err := ToShape(spec)
		if err != nil {
			return group.Layout{}, fmt.Errorf("compartment %s: %w", name, err)
		}
		l.Shapes[name] = shape
	}
	return l, l.Validate()
}

func hasDefaults(data CompartmentShapes) bool {
	_, ok := data[GlobalDefaultsKey]
	return ok
}
