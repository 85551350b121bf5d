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
	"os"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ku-awdc/blofeld/api/v1alpha1"
)

// EnvPrefix prefixes every environment variable read by Load, for example
// BLOFELD_RUN_STEPS.
const EnvPrefix = "BLOFELD"

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"mode":        "mode",
	"seed":        "seed",
	"death":       "death",
	"steps":       "run.steps",
	"replicates":  "run.replicates",
	"parallelism": "run.parallelism",
}

// envKeys are the configuration keys that may be set from the environment.
var envKeys = []string{"name", "mode", "seed", "death", "externalinfection", "run.steps", "run.replicates", "run.parallelism"}

// BindFlags registers the model flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML or JSON model file")
	fs.String("mode", "", "arithmetic mode: continuous or discrete")
	fs.Uint64("seed", 0, "random seed of a discrete model")
	fs.Bool("death", false, "enable other-cause mortality")
	fs.Int("steps", 0, "number of time steps to run")
	fs.Int("replicates", 0, "number of independent replicates")
	fs.Int("parallelism", 0, "maximum replicates run at once (0 means one per CPU)")
	fs.StringToString("compartment", nil, "compartment shape as NAME=YAML, repeatable")
	fs.StringToString("set", nil, "parameter value as NAME=VALUE, repeatable")
}

// Load reads the model from the file named by --config, the environment and
// the flags, in increasing order of precedence. Flags must have been
// registered with BindFlags.
func Load(fs *pflag.FlagSet) (*v1alpha1.ModelSpec, CompartmentShapes, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	path, err := fs.GetString("config")
	if err != nil {
		return nil, nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var spec v1alpha1.ModelSpec
	if err := v.Unmarshal(&spec, func(c *mapstructure.DecoderConfig) {
		c.TagName = "yaml"
	}); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	if path != "" {
		if err := readKeyedSections(path, &spec); err != nil {
			return nil, nil, err
		}
	}

	sets, err := fs.GetStringToString("set")
	if err != nil {
		return nil, nil, err
	}
	if err := applyParameterFlags(&spec, sets); err != nil {
		return nil, nil, err
	}

	spec.Default()
	if err := spec.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid model: %w", err)
	}

	shapes, err := NormalizeCompartments(spec.Compartments)
	if err != nil {
		return nil, nil, err
	}
	flagShapes, err := fs.GetStringToString("compartment")
	if err != nil {
		return nil, nil, err
	}
	overrides, err := ParseCompartmentShapes(flagShapes)
	if err != nil {
		return nil, nil, err
	}
	return &spec, shapes.Merge(overrides), nil
}

// keyedSections are the parts of a model file keyed by compartment name.
type keyedSections struct {
	Compartments map[string]v1alpha1.CompartmentSpec `yaml:"compartments"`
	Initial      map[string]float64                  `yaml:"initial"`
}

// readKeyedSections decodes the compartments and initial sections straight
// from the file. Viper keeps only leaf keys and lowercases them, so an entry
// such as `S: {}` would otherwise be lost.
func readKeyedSections(path string, spec *v1alpha1.ModelSpec) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var sections keyedSections
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	spec.Compartments = sections.Compartments
	spec.Initial = sections.Initial
	return nil
}

func applyParameterFlags(spec *v1alpha1.ModelSpec, sets map[string]string) error {
	if len(sets) == 0 {
		return nil
	}
	if spec.Parameters == nil {
		spec.Parameters = make(map[string]float64, len(sets))
	}
	for name, raw := range sets {
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}
		spec.Parameters[strings.ToLower(name)] = value
	}
	return nil
}
