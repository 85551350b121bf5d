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
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ku-awdc/blofeld/pkg/core"
	"github.com/ku-awdc/blofeld/pkg/group"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadFile(t *testing.T) {
	spec, shapes, err := Load(newFlagSet(t, "--config", "testdata/model.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sir-example", spec.Name)
	assert.Equal(t, "continuous", spec.Mode)
	assert.Equal(t, 50, spec.Run.Steps)
	assert.Equal(t, 1, spec.Run.Replicates)
	assert.True(t, spec.DistributeInitial())
	assert.InDelta(t, 0.25, spec.Parameters["transmission_clinical"], 0)
	assert.InDelta(t, 990, spec.Initial["S"], 0)
	assert.Nil(t, spec.Seed)

	assert.Contains(t, spec.Compartments, "S")
	assert.Contains(t, spec.Compartments, "recovered")
	require.Contains(t, shapes, "I")
	assert.Equal(t, 3, *shapes["I"].Subcompartments)
	assert.Contains(t, shapes, "S")
	assert.Contains(t, shapes, "R")
	assert.NotContains(t, shapes, "E")
	assert.Equal(t, "fixed", shapes[GlobalDefaultsKey].Storage)
}

func TestLoadEmptyCompartmentEntries(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		enabled []group.Name
	}{
		{
			name:    "sir without defaults",
			doc:     "compartments:\n  S: {}\n  I: {}\n  R: {}\n",
			enabled: []group.Name{group.S, group.I, group.R},
		},
		{
			name:    "null entries and long names",
			doc:     "compartments:\n  susceptible:\n  Latent: {}\n  I:\n    chain: none\n",
			enabled: []group.Name{group.S, group.L, group.I},
		},
		{
			name:    "json document",
			doc:     `{"compartments": {"S": {}, "E": {}, "I": {}}, "initial": {"S": 5}}`,
			enabled: []group.Name{group.S, group.E, group.I},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o600))

			spec, shapes, err := Load(newFlagSet(t, "--config", path))
			require.NoError(t, err)
			m, err := Resolve(spec, shapes)
			require.NoError(t, err)

			var got []group.Name
			for _, n := range group.Names() {
				if m.Layout.Shape(n).Enabled() {
					got = append(got, n)
				}
			}
			assert.Equal(t, tt.enabled, got)
		})
	}
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	fs := newFlagSet(t,
		"--config", "testdata/model.yaml",
		"--steps", "10",
		"--mode", "discrete",
		"--seed", "7",
		"--set", "recovery=0.2",
		"--compartment", "I=subcompartments: 5",
	)
	spec, shapes, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, 10, spec.Run.Steps)
	assert.Equal(t, "discrete", spec.Mode)
	require.NotNil(t, spec.Seed)
	assert.Equal(t, uint64(7), *spec.Seed)
	assert.InDelta(t, 0.2, spec.Parameters["recovery"], 0)
	assert.InDelta(t, 0.25, spec.Parameters["transmission_clinical"], 0)
	assert.Equal(t, 5, *shapes["I"].Subcompartments)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("BLOFELD_MODE", "stochastic")
	t.Setenv("BLOFELD_RUN_REPLICATES", "4")

	spec, _, err := Load(newFlagSet(t, "--config", "testdata/model.yaml"))
	require.NoError(t, err)

	mode, err := core.ParseMode(spec.Mode)
	require.NoError(t, err)
	assert.Equal(t, core.Discrete, mode)
	assert.Equal(t, 4, spec.Run.Replicates)
}

func TestLoadWithoutFile(t *testing.T) {
	spec, shapes, err := Load(newFlagSet(t, "--steps", "3"))
	require.NoError(t, err)
	assert.Equal(t, 3, spec.Run.Steps)
	assert.Equal(t, "continuous", spec.Mode)
	assert.Empty(t, shapes)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing file", args: []string{"--config", "testdata/missing.yaml"}},
		{name: "bad parameter value", args: []string{"--set", "recovery=fast"}},
		{name: "negative steps", args: []string{"--steps=-1"}},
		{name: "unknown mode", args: []string{"--mode", "quantum"}},
		{name: "unknown compartment", args: []string{"--compartment", "Q={}"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(newFlagSet(t, tt.args...))
			assert.Error(t, err)
		})
	}
}
