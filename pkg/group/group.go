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

	"github.com/go-logr/logr"

	"github.com/ku-awdc/blofeld/internal/logging"
	"github.com/ku-awdc/blofeld/pkg/compartment"
	"github.com/ku-awdc/blofeld/pkg/core"
	"github.com/ku-awdc/blofeld/pkg/random"
)

type options struct {
	log        logr.Logger
	parameters Parameters
	external   float64
}

// Option configures a Group.
type Option func(*options)

// WithLogger sets the logger used for parameter changes and step traces.
func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithParameters sets the starting parameters.
func WithParameters(p Parameters) Option {
	return func(o *options) { o.parameters = p }
}

// WithExternalInfection sets the starting external infection pressure.
func WithExternalInfection(rate float64) Option {
	return func(o *options) { o.external = rate }
}

// Group is one well-mixed population stepped through the SEIDRVMZ graph.
// It is not safe for concurrent use.
type Group[T core.Value] struct {
	log    logr.Logger
	layout Layout

	comps   [numNamed]*compartment.Compartment[T]
	balance *compartment.Compartment[T]

	parameters Parameters
	rates      scaledRates
	external   float64

	time  float64
	steps int

	// per compartment, in take order: hazards, proportions, amounts and destinations
	takeRates [numNamed][]float64
	takeProps [numNamed][]float64
	taken     [numNamed][]T
	routes    [numNamed][]*compartment.Compartment[T]
}

// New creates an empty group with the given layout and arithmetic.
func New[T core.Value](layout Layout, arith compartment.Arithmetic[T], opts ...Option) (*Group[T], error) {
	o := options{log: logr.Discard(), parameters: DefaultParameters()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	g := &Group[T]{log: o.log, layout: layout}
	for _, n := range Names() {
		var copts []compartment.Option
		copts = append(copts, compartment.Named(n.String()))
		if n == M {
			copts = append(copts, compartment.AsSink())
		}
		c, err := compartment.New(layout.Shapes[n], arith, 0, copts...)
		if err != nil {
			return nil, err
		}
		g.comps[n] = c
	}
	z, err := compartment.New(compartment.BalanceShape(), arith, 0, compartment.Named(Z.String()))
	if err != nil {
		return nil, err
	}
	g.balance = z
	g.wireRoutes()

	if err := g.SetParameters(o.parameters); err != nil {
		return nil, err
	}
	if err := g.SetExternalInfection(o.external); err != nil {
		return nil, err
	}
	return g, nil
}

// NewContinuous creates a group with real-valued counts.
func NewContinuous(layout Layout, opts ...Option) (*Group[float64], error) {
	return New[float64](layout, compartment.Continuous{}, opts...)
}

// NewDiscrete creates a group with integer counts drawn from src.
func NewDiscrete(layout Layout, src random.Source, opts ...Option) (*Group[int], error) {
	return New[int](layout, compartment.Discrete{Source: src}, opts...)
}

// wireRoutes fixes the destinations of every take exit. Death always comes
// first, followed by vaccination or disease mortality.
func (g *Group[T]) wireRoutes() {
	for _, n := range Names() {
		g.routes[n] = nil
		if n == M {
			continue
		}
		if g.layout.Death {
			g.routes[n] = append(g.routes[n], g.balance)
		}
		switch n {
		case S:
			if g.layout.vaccination() {
				g.routes[n] = append(g.routes[n], g.comps[V])
			}
		case E, L, I, D:
			if g.layout.mortality() {
				g.routes[n] = append(g.routes[n], g.comps[M])
			}
		case R:
			// vaccinating a recovered individual restarts R rather than moving it to V
			if g.layout.vaccination() {
				g.routes[n] = append(g.routes[n], g.comps[R])
			}
		case V:
			if g.layout.vaccination() {
				g.routes[n] = append(g.routes[n], g.comps[V])
			}
		}
		k := len(g.routes[n])
		g.takeRates[n] = make([]float64, k)
		g.takeProps[n] = make([]float64, k)
		g.taken[n] = make([]T, k)
	}
}

// Parameters returns the unscaled parameters.
func (g *Group[T]) Parameters() Parameters {
	return g.parameters
}

// SetParameters validates and installs a full parameter set, rescaling every
// rate by the step duration.
func (g *Group[T]) SetParameters(p Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	g.parameters = p
	g.rates = p.scaled()
	for _, n := range Names() {
		if n == M {
			continue
		}
		rates := g.takeRates[n][:0]
		if g.layout.Death {
			rates = append(rates, g.rates.death)
		}
		switch n {
		case S, R, V:
			if g.layout.vaccination() {
				rates = append(rates, g.rates.vaccination)
			}
		default:
			if g.layout.mortality() {
				rates = append(rates, g.rates.mortality[n])
			}
		}
		g.takeRates[n] = rates
	}
	g.log.V(logging.DEBUG).Info("Parameters updated", "parameters", p.AsMap())
	return nil
}

// SetParameter overwrites one named parameter.
func (g *Group[T]) SetParameter(name string, value float64) error {
	p := g.parameters
	if err := p.Set(name, value); err != nil {
		return err
	}
	return g.SetParameters(p)
}

// ExternalInfection returns the external infection pressure per unit time.
func (g *Group[T]) ExternalInfection() float64 {
	return g.external
}

// SetExternalInfection sets an infection pressure per unit time added to the
// force of infection regardless of the group's own infectious individuals.
func (g *Group[T]) SetExternalInfection(rate float64) error {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: external infection must be finite and >= 0, got %g", core.ErrInvalidArgument, rate)
	}
	g.external = rate
	return nil
}

func (g *Group[T]) Time() float64   { return g.time }
func (g *Group[T]) Steps() int      { return g.steps }
func (g *Group[T]) Layout() Layout  { return g.layout }
func (g *Group[T]) Mode() core.Mode { return g.balance.Mode() }

// Enabled reports whether the named compartment is part of the model.
func (g *Group[T]) Enabled(n Name) bool {
	if n == Z {
		return true
	}
	return g.layout.Shapes[n].Enabled()
}

func (g *Group[T]) compartment(n Name) (*compartment.Compartment[T], error) {
	switch {
	case n == Z:
		return g.balance, nil
	case n < S || n > Z:
		return nil, fmt.Errorf("%w: unrecognised compartment %v", core.ErrInvalidArgument, n)
	default:
		return g.comps[n], nil
	}
}

// Total returns the committed total of the named compartment.
func (g *Group[T]) Total(n Name) (T, error) {
	c, err := g.compartment(n)
	if err != nil {
		return 0, err
	}
	return c.Total(), nil
}

// Values returns the committed sub-compartment values of the named compartment.
func (g *Group[T]) Values(n Name) ([]T, error) {
	c, err := g.compartment(n)
	if err != nil {
		return nil, err
	}
	return c.Values(), nil
}

// Balance returns the committed total of Z.
func (g *Group[T]) Balance() T {
	return g.balance.Total()
}

// Population returns the sum of every named compartment, M included.
func (g *Group[T]) Population() T {
	var total T
	for _, c := range g.comps {
		total += c.Total()
	}
	return total
}

// SetTotal replaces the total of a named compartment, spread across its
// sub-compartments or placed in the first one, and resets the balance to
// minus the new population.
func (g *Group[T]) SetTotal(n Name, value T, distribute bool) error {
	if n == Z {
		return fmt.Errorf("%w: the balance compartment is derived and cannot be set", core.ErrInvalidArgument)
	}
	c, err := g.compartment(n)
	if err != nil {
		return err
	}
	if err := c.SetTotal(value, distribute); err != nil {
		return err
	}
	return g.balance.SetTotal(-g.Population(), false)
}

// Resize changes the number of sub-compartments of a resizable compartment.
func (g *Group[T]) Resize(n Name, length int) error {
	c, err := g.compartment(n)
	if err != nil {
		return err
	}
	return c.Resize(length)
}

// ForceOfInfection returns the infection hazard per susceptible accrued over
// one step at the committed state.
func (g *Group[T]) ForceOfInfection() float64 {
	external := g.external * g.parameters.StepDuration
	pressure := g.rates.betaSubclinical*float64(g.comps[L].Total()) + g.rates.betaClinical*float64(g.comps[I].Total())
	if pressure == 0 {
		return external
	}
	live := float64(g.Population() - g.comps[M].Total())
	if live <= 0 {
		return external
	}
	return external + pressure/math.Pow(live, g.rates.densityExponent)
}

// Update advances the group by n steps, stopping at the first failure. A
// failed step leaves the group at the last committed state.
func (g *Group[T]) Update(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: number of steps must be >= 0, got %d", core.ErrInvalidArgument, n)
	}
	for range n {
		if err := g.step(); err != nil {
			g.discard()
			return &core.StepError{Step: g.steps + 1, Time: g.time + g.parameters.StepDuration, Err: err}
		}
	}
	return nil
}

// process extracts the take exits and the carry of one compartment and routes
// the takes to their destinations.
func (g *Group[T]) process(n Name, carryRate float64) (T, error) {
	c := g.comps[n]
	carryProp, err := c.MakeProps(g.takeRates[n], carryRate, g.takeProps[n])
	if err != nil {
		return 0, err
	}
	carry, err := c.TakeCarryProps(g.takeProps[n], carryProp, g.taken[n])
	if err != nil {
		return 0, err
	}
	for t, dst := range g.routes[n] {
		if err := dst.Insert(g.taken[n][t]); err != nil {
			return 0, err
		}
	}
	return carry, nil
}

func (g *Group[T]) step() error {
	foi := g.ForceOfInfection()

	carry, err := g.process(S, foi)
	if err != nil {
		return err
	}
	infections := carry

	for _, n := range []Name{E, L, I, D, R} {
		if err := g.comps[n].Insert(carry); err != nil {
			return err
		}
		if carry, err = g.process(n, g.rates.carry[n]); err != nil {
			return err
		}
	}
	reverted := carry

	waned, err := g.process(V, g.rates.carry[V])
	if err != nil {
		return err
	}
	if err := g.comps[S].Insert(reverted + waned); err != nil {
		return err
	}

	if err := g.commit(); err != nil {
		return err
	}
	g.time += g.parameters.StepDuration
	g.steps++
	g.log.V(logging.TRACE).Info("Step complete",
		"step", g.steps,
		"time", g.time,
		"forceOfInfection", foi,
		"infections", infections)
	return nil
}

// commit checks every compartment and the global balance on the pending
// values, and only then applies all changes.
func (g *Group[T]) commit() error {
	for _, c := range g.comps {
		if err := c.Ready(); err != nil {
			return err
		}
	}
	if err := g.balance.Ready(); err != nil {
		return err
	}
	if core.ChecksEnabled {
		if err := g.checkConservation(); err != nil {
			return err
		}
	}
	for _, c := range g.comps {
		if err := c.ApplyChanges(); err != nil {
			return err
		}
	}
	return g.balance.ApplyChanges()
}

func (g *Group[T]) checkConservation() error {
	var named T
	for _, c := range g.comps {
		named += c.PendingTotal()
	}
	residual := float64(named + g.balance.PendingTotal())
	limit := core.Tolerance * max(1, math.Abs(float64(named)))
	if math.Abs(residual) > limit {
		return fmt.Errorf("%w: named total %v and balance %v differ by %g",
			core.ErrConservationViolation, named, g.balance.PendingTotal(), residual)
	}
	return nil
}

func (g *Group[T]) discard() {
	for _, c := range g.comps {
		c.Discard()
	}
	g.balance.Discard()
}
