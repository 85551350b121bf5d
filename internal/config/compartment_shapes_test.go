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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/ku-awdc/blofeld/api/v1alpha1"
	"github.com/ku-awdc/blofeld/pkg/compartment"
	"github.com/ku-awdc/blofeld/pkg/group"
	"github.com/ku-awdc/blofeld/pkg/storage"
)

func TestParseCompartmentShapes(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]string
		want    CompartmentShapes
		wantErr bool
	}{
		{
			name: "defaults and overrides",
			data: map[string]string{
				"default": "chain: immediate",
				"E":       "subcompartments: 3",
			},
			want: CompartmentShapes{
				GlobalDefaultsKey: {Chain: "immediate"},
				"E":               {Subcompartments: ptr.To(3)},
			},
		},
		{
			name: "long names are canonicalised",
			data: map[string]string{"infectious": "storage: dynamic"},
			want: CompartmentShapes{"I": {Storage: "dynamic"}},
		},
		{
			name:    "unknown compartment",
			data:    map[string]string{"Q": "{}"},
			wantErr: true,
		},
		{
			name:    "balance is not configurable",
			data:    map[string]string{"Z": "{}"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			data:    map[string]string{"S": "subcompartments: [1"},
			wantErr: true,
		},
		{
			name:    "negative subcompartments",
			data:    map[string]string{"S": "subcompartments: -1"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCompartmentShapes(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeCompartmentsFirstKeyWins(t *testing.T) {
	got, err := NormalizeCompartments(map[string]v1alpha1.CompartmentSpec{
		"I":          {Subcompartments: ptr.To(2)},
		"infectious": {Subcompartments: ptr.To(5)},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, *got["I"].Subcompartments)
}

func TestGetCompartmentSpec(t *testing.T) {
	data := CompartmentShapes{
		GlobalDefaultsKey: {Storage: "bounded", Capacity: 10, Chain: "immediate"},
		"E":               {Subcompartments: ptr.To(4), Chain: "sequential"},
	}

	spec, listed := data.GetCompartmentSpec(group.E)
	require.True(t, listed)
	assert.Equal(t, 4, *spec.Subcompartments)
	assert.Equal(t, "bounded", spec.Storage)
	assert.Equal(t, 10, spec.Capacity)
	assert.Equal(t, "sequential", spec.Chain)

	_, listed = data.GetCompartmentSpec(group.L)
	assert.False(t, listed)
}

func TestMerge(t *testing.T) {
	base := CompartmentShapes{"S": {Storage: "fixed"}, "I": {Subcompartments: ptr.To(2)}}
	overrides := CompartmentShapes{"I": {Chain: "none"}, "R": {}}

	got := base.Merge(overrides)
	assert.Equal(t, CompartmentShapes{
		"S": {Storage: "fixed"},
		"I": {Subcompartments: ptr.To(2), Chain: "none"},
		"R": {},
	}, got)
	assert.Len(t, base, 2, "receiver must not be modified")
}

func TestToShape(t *testing.T) {
	tests := []struct {
		name    string
		spec    v1alpha1.CompartmentSpec
		want    compartment.Shape
		wantErr bool
	}{
		{
			name: "empty entry is a single fixed stage",
			want: compartment.SingleShape(),
		},
		{
			name: "chain",
			spec: v1alpha1.CompartmentSpec{Subcompartments: ptr.To(3), Chain: "immediate"},
			want: compartment.Shape{Subcompartments: 3, Storage: storage.Fixed, Chain: compartment.Immediate},
		},
		{
			name: "zero subcompartments disables",
			spec: v1alpha1.CompartmentSpec{Subcompartments: ptr.To(0)},
			want: compartment.DisabledShape(),
		},
		{
			name: "bounded with capacity",
			spec: v1alpha1.CompartmentSpec{Subcompartments: ptr.To(2), Storage: "bounded", Capacity: 6},
			want: compartment.Shape{Subcompartments: 2, Storage: storage.BoundedDynamic, Chain: compartment.Sequential, Capacity: 6},
		},
		{
			name:    "capacity below length",
			spec:    v1alpha1.CompartmentSpec{Subcompartments: ptr.To(4), Storage: "bounded", Capacity: 2},
			wantErr: true,
		},
		{
			name:    "unknown storage",
			spec:    v1alpha1.CompartmentSpec{Storage: "tape"},
			wantErr: true,
		},
		{
			name:    "unknown chain",
			spec:    v1alpha1.CompartmentSpec{Chain: "ring"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToShape(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Subcompartments, got.Subcompartments)
			assert.Equal(t, tt.want.Storage, got.Storage)
			assert.Equal(t, tt.want.Enabled(), got.Enabled())
			if tt.want.Enabled() {
				assert.Equal(t, tt.want.Chain, got.Chain)
			}
			if tt.want.Capacity != 0 {
				assert.Equal(t, tt.want.Capacity, got.Capacity)
			}
		})
	}
}

func TestLayout(t *testing.T) {
	t.Run("empty selects SEIR", func(t *testing.T) {
		l, err := CompartmentShapes{}.Layout(false)
		require.NoError(t, err)
		for _, n := range []group.Name{group.S, group.E, group.I, group.R} {
			assert.True(t, l.Shape(n).Enabled(), "%s should be enabled", n)
		}
		for _, n := range []group.Name{group.L, group.D, group.V, group.M} {
			assert.False(t, l.Shape(n).Enabled(), "%s should be disabled", n)
		}
	})

	t.Run("defaults only apply to SEIR", func(t *testing.T) {
		l, err := CompartmentShapes{GlobalDefaultsKey: {Subcompartments: ptr.To(2)}}.Layout(true)
		require.NoError(t, err)
		assert.True(t, l.Death)
		assert.Equal(t, 2, l.Shape(group.E).Subcompartments)
		assert.False(t, l.Shape(group.L).Enabled())
	})

	t.Run("listed compartments only", func(t *testing.T) {
		l, err := CompartmentShapes{"S": {}, "I": {Subcompartments: ptr.To(3)}, "R": {}}.Layout(false)
		require.NoError(t, err)
		assert.False(t, l.Shape(group.E).Enabled())
		assert.Equal(t, 3, l.Shape(group.I).Subcompartments)
	})

	t.Run("susceptible is required", func(t *testing.T) {
		_, err := CompartmentShapes{"I": {}}.Layout(false)
		assert.Error(t, err)
	})
}
