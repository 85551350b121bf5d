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

package compartment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ku-awdc/blofeld/pkg/core"
)

// TakeProp converts a single hazard accrued over one step into an exit proportion.
func TakeProp(rate float64) (float64, error) {
	if err := checkRate(rate); err != nil {
		return 0, err
	}
	return -math.Expm1(-rate), nil
}

// CompetingProps converts competing hazards into exit proportions, writing them
// to props. With s the sum of the rates, every individual proportion is
// rate*(1-exp(-s))/s, or 0 when s is 0, so the proportions sum to 1-exp(-s).
func CompetingProps(rates, props []float64) error {
	if len(props) != len(rates) {
		return fmt.Errorf("%w: %d rates but room for %d proportions", core.ErrInvalidArgument, len(rates), len(props))
	}
	for _, r := range rates {
		if err := checkRate(r); err != nil {
			return err
		}
	}
	sum := floats.Sum(rates)
	if sum == 0 {
		clear(props)
		return nil
	}
	floats.ScaleTo(props, -math.Expm1(-sum)/sum, rates)
	return nil
}

func checkRate(rate float64) error {
	if !core.ChecksEnabled {
		return nil
	}
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: rate must be finite and >= 0, got %g", core.ErrInvalidArgument, rate)
	}
	return nil
}

func checkProps(props []float64) error {
	if !core.ChecksEnabled {
		return nil
	}
	sum := 0.0
	for _, p := range props {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("%w: proportion must be between 0 and 1, got %g", core.ErrInvalidArgument, p)
		}
		sum += p
	}
	if sum > 1+core.ProportionSlack {
		return fmt.Errorf("%w: proportions sum to %g, which exceeds 1", core.ErrInvalidArgument, sum)
	}
	return nil
}

// adjustCarryRate scales a per-compartment carry rate to the per-stage rate that
// gives the same mean sojourn through the whole chain.
func (c *Compartment[V]) adjustCarryRate(rate float64) float64 {
	if c.shape.Chain == None {
		return rate
	}
	return rate * float64(c.current.Len())
}

// MakeTakeProp converts a single take hazard into an exit proportion.
func (c *Compartment[V]) MakeTakeProp(rate float64) (float64, error) {
	return TakeProp(rate)
}

// MakeCarryProp converts a carry hazard into the per-stage carry proportion.
func (c *Compartment[V]) MakeCarryProp(rate float64) (float64, error) {
	if err := checkRate(rate); err != nil {
		return 0, err
	}
	return TakeProp(c.adjustCarryRate(rate))
}

// MakeTakeProps converts competing take hazards into proportions written to takeProps.
func (c *Compartment[V]) MakeTakeProps(takeRates, takeProps []float64) error {
	return CompetingProps(takeRates, takeProps)
}

// MakeProps converts competing take hazards and a carry hazard into
// proportions. Take proportions are written to takeProps and the carry
// proportion is returned.
func (c *Compartment[V]) MakeProps(takeRates []float64, carryRate float64, takeProps []float64) (float64, error) {
	k := len(takeRates)
	if len(takeProps) != k {
		return 0, fmt.Errorf("%w: %d take rates but room for %d proportions", core.ErrInvalidArgument, k, len(takeProps))
	}
	rates := c.rateScratch(k + 1)
	copy(rates, takeRates)
	rates[k] = c.adjustCarryRate(carryRate)
	props := c.propScratch(k + 1)
	if err := CompetingProps(rates, props); err != nil {
		return 0, err
	}
	copy(takeProps, props[:k])
	return props[k], nil
}
