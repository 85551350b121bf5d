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
	"math"
	"slices"

	"github.com/ku-awdc/blofeld/pkg/core"
)

// Parameters is the flat set of named rates driving a group. Rates are per
// unit time; the group scales them by StepDuration.
type Parameters struct {
	// TransmissionSubclinical is the transmission rate from L.
	TransmissionSubclinical float64 `json:"transmission_subclinical" yaml:"transmission_subclinical"`
	// TransmissionClinical is the transmission rate from I.
	TransmissionClinical float64 `json:"transmission_clinical" yaml:"transmission_clinical"`
	// DensityExponent is the power of the live population dividing the
	// infection pressure: 1 is frequency dependent and 0 density dependent.
	DensityExponent float64 `json:"density_exponent" yaml:"density_exponent"`

	Incubation  float64 `json:"incubation" yaml:"incubation"`   // E to L
	Progression float64 `json:"progression" yaml:"progression"` // L to I
	Recovery    float64 `json:"recovery" yaml:"recovery"`       // I to D
	Healing     float64 `json:"healing" yaml:"healing"`         // D to R
	Reversion   float64 `json:"reversion" yaml:"reversion"`     // R to S
	Waning      float64 `json:"waning" yaml:"waning"`           // V to S
	Vaccination float64 `json:"vaccination" yaml:"vaccination"`

	MortalityExposed    float64 `json:"mortality_exposed" yaml:"mortality_exposed"`
	MortalityLatent     float64 `json:"mortality_latent" yaml:"mortality_latent"`
	MortalityInfectious float64 `json:"mortality_infectious" yaml:"mortality_infectious"`
	MortalityDiseased   float64 `json:"mortality_diseased" yaml:"mortality_diseased"`
	// Death is the other-cause mortality rate applied to every compartment.
	Death float64 `json:"death" yaml:"death"`

	StepDuration float64 `json:"step_duration" yaml:"step_duration"`
}

// DefaultParameters returns all rates at zero, a density exponent of 1 and a
// step duration of 1.
func DefaultParameters() Parameters {
	return Parameters{DensityExponent: 1, StepDuration: 1}
}

type parameterField struct {
	name string
	ptr  func(*Parameters) *float64
}

var parameterFields = []parameterField{
	{"transmission_subclinical", func(p *Parameters) *float64 { return &p.TransmissionSubclinical }},
	{"transmission_clinical", func(p *Parameters) *float64 { return &p.TransmissionClinical }},
	{"density_exponent", func(p *Parameters) *float64 { return &p.DensityExponent }},
	{"incubation", func(p *Parameters) *float64 { return &p.Incubation }},
	{"progression", func(p *Parameters) *float64 { return &p.Progression }},
	{"recovery", func(p *Parameters) *float64 { return &p.Recovery }},
	{"healing", func(p *Parameters) *float64 { return &p.Healing }},
	{"reversion", func(p *Parameters) *float64 { return &p.Reversion }},
	{"waning", func(p *Parameters) *float64 { return &p.Waning }},
	{"vaccination", func(p *Parameters) *float64 { return &p.Vaccination }},
	{"mortality_exposed", func(p *Parameters) *float64 { return &p.MortalityExposed }},
	{"mortality_latent", func(p *Parameters) *float64 { return &p.MortalityLatent }},
	{"mortality_infectious", func(p *Parameters) *float64 { return &p.MortalityInfectious }},
	{"mortality_diseased", func(p *Parameters) *float64 { return &p.MortalityDiseased }},
	{"death", func(p *Parameters) *float64 { return &p.Death }},
	{"step_duration", func(p *Parameters) *float64 { return &p.StepDuration }},
}

// ParameterNames returns every parameter name in declaration order.
func ParameterNames() []string {
	names := make([]string, len(parameterFields))
	for i, f := range parameterFields {
		names[i] = f.name
	}
	return names
}

func lookupParameter(name string) (parameterField, error) {
	i := slices.IndexFunc(parameterFields, func(f parameterField) bool { return f.name == name })
	if i < 0 {
		return parameterField{}, fmt.Errorf("%w: unrecognised parameter %q", core.ErrInvalidArgument, name)
	}
	return parameterFields[i], nil
}

// Get returns the named parameter.
func (p Parameters) Get(name string) (float64, error) {
	f, err := lookupParameter(name)
	if err != nil {
		return 0, err
	}
	return *f.ptr(&p), nil
}

// Set overwrites the named parameter. The result is not validated.
func (p *Parameters) Set(name string, value float64) error {
	f, err := lookupParameter(name)
	if err != nil {
		return err
	}
	*f.ptr(p) = value
	return nil
}

// Merge overwrites every named parameter in values, failing without changes
// on the first unrecognised name.
func (p *Parameters) Merge(values map[string]float64) error {
	merged := *p
	for name, v := range values {
		if err := merged.Set(name, v); err != nil {
			return err
		}
	}
	*p = merged
	return nil
}

// AsMap returns every parameter keyed by name.
func (p Parameters) AsMap() map[string]float64 {
	out := make(map[string]float64, len(parameterFields))
	for _, f := range parameterFields {
		out[f.name] = *f.ptr(&p)
	}
	return out
}

// Validate checks for invalid parameter values.
func (p *Parameters) Validate() error {
	for _, f := range parameterFields {
		v := *f.ptr(p)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %g", core.ErrInvalidArgument, f.name, v)
		}
		if f.name != "density_exponent" && v < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %g", core.ErrInvalidArgument, f.name, v)
		}
	}
	if p.StepDuration <= 0 {
		return fmt.Errorf("%w: step_duration must be > 0, got %g", core.ErrInvalidArgument, p.StepDuration)
	}
	return nil
}

// scaledRates holds the parameters as hazards accrued over one step.
type scaledRates struct {
	betaSubclinical float64
	betaClinical    float64
	densityExponent float64
	carry           [numNamed]float64
	vaccination     float64
	mortality       [numNamed]float64
	death           float64
}

func (p Parameters) scaled() scaledRates {
	dt := p.StepDuration
	r := scaledRates{
		betaSubclinical: p.TransmissionSubclinical * dt,
		betaClinical:    p.TransmissionClinical * dt,
		densityExponent: p.DensityExponent,
		vaccination:     p.Vaccination * dt,
		death:           p.Death * dt,
	}
	r.carry[E] = p.Incubation * dt
	r.carry[L] = p.Progression * dt
	r.carry[I] = p.Recovery * dt
	r.carry[D] = p.Healing * dt
	r.carry[R] = p.Reversion * dt
	r.carry[V] = p.Waning * dt
	r.mortality[E] = p.MortalityExposed * dt
	r.mortality[L] = p.MortalityLatent * dt
	r.mortality[I] = p.MortalityInfectious * dt
	r.mortality[D] = p.MortalityDiseased * dt
	return r
}
