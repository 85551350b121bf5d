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
	"iter"
	"math"

	"github.com/ku-awdc/blofeld/pkg/core"
	"github.com/ku-awdc/blofeld/pkg/random"
	"github.com/ku-awdc/blofeld/pkg/storage"
)

// Flows is what one extraction call gives up.
type Flows[V core.Value] struct {
	// Take holds the total leaving through each side exit.
	Take []V
	// Carry is the amount leaving the last stage of the chain.
	Carry V
}

type options struct {
	name string
	sink bool
}

// Option configures a Compartment.
type Option func(*options)

// Named sets the name used in error messages.
func Named(name string) Option {
	return func(o *options) { o.name = name }
}

// AsSink marks a compartment that only ever receives inserts, so committing it
// does not require a preceding carry extraction. Balance compartments are
// always sinks.
func AsSink() Option {
	return func(o *options) { o.sink = true }
}

// Compartment is one epidemiological state split into sub-compartments.
// It is not safe for concurrent use.
type Compartment[V core.Value] struct {
	name    string
	shape   Shape
	arith   Arithmetic[V]
	current storage.Storage[V]
	working storage.Storage[V]
	sink    bool

	// carryThrough holds amounts inserted into a disabled compartment until
	// its carry is extracted.
	carryThrough V

	seq sequencer

	rates []float64
	props []float64
	split []V
}

// New creates a compartment with the given shape and arithmetic, holding total
// spread across its sub-compartments.
func New[V core.Value](shape Shape, arith Arithmetic[V], total V, opts ...Option) (*Compartment[V], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	shape = shape.normalize()
	if err := shape.Validate(); err != nil {
		return nil, wrapName(o.name, err)
	}
	current, err := storage.New[V](shape.Storage, shape.Subcompartments, shape.Capacity)
	if err != nil {
		return nil, wrapName(o.name, err)
	}
	working, err := storage.New[V](shape.Storage, shape.Subcompartments, shape.Capacity)
	if err != nil {
		return nil, wrapName(o.name, err)
	}
	c := &Compartment[V]{
		name:    o.name,
		shape:   shape,
		arith:   arith,
		current: current,
		working: working,
		sink:    o.sink || shape.Storage == storage.Balance,
	}
	if err := c.SetTotal(total, true); err != nil {
		return nil, err
	}
	return c, nil
}

// NewContinuous creates a real-valued compartment.
func NewContinuous(shape Shape, total float64, opts ...Option) (*Compartment[float64], error) {
	return New[float64](shape, Continuous{}, total, opts...)
}

// NewDiscrete creates an integer compartment drawing from src.
func NewDiscrete(shape Shape, total int, src random.Source, opts ...Option) (*Compartment[int], error) {
	return New[int](shape, Discrete{Source: src}, total, opts...)
}

func wrapName(name string, err error) error {
	if name == "" || err == nil {
		return err
	}
	return fmt.Errorf("compartment %s: %w", name, err)
}

func (c *Compartment[V]) Name() string    { return c.name }
func (c *Compartment[V]) Shape() Shape    { return c.shape }
func (c *Compartment[V]) Mode() core.Mode { return c.arith.Mode() }

// Len returns the current number of sub-compartments.
func (c *Compartment[V]) Len() int { return c.current.Len() }

// Enabled reports whether the compartment holds values.
func (c *Compartment[V]) Enabled() bool { return c.shape.Enabled() }

// Total returns the committed total.
func (c *Compartment[V]) Total() V { return c.current.Sum() }

// Values returns a copy of the committed sub-compartment values.
func (c *Compartment[V]) Values() []V { return c.current.Values() }

// All iterates over the committed sub-compartment values.
func (c *Compartment[V]) All() iter.Seq2[int, V] { return c.current.All() }

// PendingTotal returns the total that ApplyChanges would commit, including any
// amount held in transit by a disabled compartment.
func (c *Compartment[V]) PendingTotal() V {
	return c.working.Sum() + c.carryThrough
}

// Dormant reports whether the compartment is between steps: nothing is pending
// and the working buffer equals the committed one.
func (c *Compartment[V]) Dormant() bool {
	if c.carryThrough != 0 || c.seq.pending() {
		return false
	}
	for i, v := range c.current.All() {
		if c.working.At(i) != v {
			return false
		}
	}
	return true
}

// Insert adds amount to the first sub-compartment of the working buffer. A
// disabled compartment keeps it for its next carry output instead.
func (c *Compartment[V]) Insert(amount V) error {
	if err := checkAmount(amount); err != nil {
		return wrapName(c.name, err)
	}
	if core.ChecksEnabled && amount < 0 && c.shape.Storage != storage.Balance {
		return wrapName(c.name, fmt.Errorf("%w: cannot insert negative amount %v", core.ErrInvalidArgument, amount))
	}
	if c.current.Len() == 0 {
		c.carryThrough += amount
		return nil
	}
	c.working.Add(0, amount)
	return nil
}

// Distribute spreads amount across every sub-compartment of the working buffer.
// A negative amount removes individuals and must not drive any sub-compartment
// below zero. A disabled compartment treats it like Insert.
func (c *Compartment[V]) Distribute(amount V) error {
	if err := checkAmount(amount); err != nil {
		return wrapName(c.name, err)
	}
	if c.current.Len() == 0 {
		return c.Insert(amount)
	}
	if core.ChecksEnabled && amount < 0 && c.shape.Storage != storage.Balance && -amount > c.working.Sum() {
		return wrapName(c.name, fmt.Errorf("%w: cannot remove %v from a total of %v", core.ErrInvalidArgument, -amount, c.working.Sum()))
	}
	return wrapName(c.name, c.arith.Spread(amount, c.working))
}

func checkAmount[V core.Value](amount V) error {
	if !core.ChecksEnabled {
		return nil
	}
	if f := float64(amount); math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: amount must be finite, got %v", core.ErrInvalidArgument, amount)
	}
	return nil
}

// TakeProps removes the given competing proportions from every sub-compartment
// and writes the totals to taken. Nothing is carried.
func (c *Compartment[V]) TakeProps(takeProps []float64, taken []V) error {
	_, err := c.extract(takeProps, 0, false, taken)
	return err
}

// TakeCarryProps removes the take proportions and the carry proportion from
// every sub-compartment. Take totals are written to taken; each stage's carry
// feeds the next stage and the last stage's carry is returned. A disabled
// compartment returns the amount inserted since its last carry and takes
// nothing.
func (c *Compartment[V]) TakeCarryProps(takeProps []float64, carryProp float64, taken []V) (V, error) {
	return c.extract(takeProps, carryProp, true, taken)
}

// TakeCarryRates converts the rates with MakeProps and extracts with
// TakeCarryProps, allocating the result.
func (c *Compartment[V]) TakeCarryRates(takeRates []float64, carryRate float64) (Flows[V], error) {
	takeProps := make([]float64, len(takeRates))
	carryProp, err := c.MakeProps(takeRates, carryRate, takeProps)
	if err != nil {
		return Flows[V]{}, wrapName(c.name, err)
	}
	flows := Flows[V]{Take: make([]V, len(takeRates))}
	flows.Carry, err = c.TakeCarryProps(takeProps, carryProp, flows.Take)
	return flows, err
}

func (c *Compartment[V]) extract(takeProps []float64, carryProp float64, carry bool, taken []V) (V, error) {
	k := len(takeProps)
	if len(taken) != k {
		return 0, wrapName(c.name, fmt.Errorf("%w: %d take proportions but room for %d totals", core.ErrInvalidArgument, k, len(taken)))
	}
	if carry {
		if err := c.seq.beforeCarry(); err != nil {
			return 0, wrapName(c.name, err)
		}
	}

	props := c.propScratch(k + 1)[:k]
	copy(props, takeProps)
	if carry {
		props = append(props, carryProp)
	}
	if err := checkProps(props); err != nil {
		return 0, wrapName(c.name, err)
	}
	clear(taken)

	n := c.current.Len()
	if n == 0 {
		var out V
		if carry {
			out = c.carryThrough
			c.carryThrough = 0
			c.seq.markCarried()
		}
		return out, nil
	}

	out := c.splitScratch(len(props))
	chained := carry && c.shape.Chain != None
	var carryIn, total V
	for i := range n {
		c.arith.Split(c.current.At(i), props, out)
		var removed V
		for t := range k {
			taken[t] += out[t]
			removed += out[t]
		}
		if !carry {
			c.working.Add(i, -removed)
			continue
		}
		exit := out[k]
		if c.shape.Chain == Immediate && carryIn > 0 {
			c.arith.Split(carryIn, props[k:], out[k:])
			exit += out[k]
		}
		c.working.Add(i, carryIn-removed-exit)
		if chained {
			carryIn = exit
		} else {
			total += exit
		}
	}
	if carry {
		c.seq.markCarried()
	}
	if chained {
		return carryIn, nil
	}
	return total, nil
}

// Ready runs the checks ApplyChanges would run without committing anything.
func (c *Compartment[V]) Ready() error {
	if err := c.seq.beforeApply(c.sink || c.shape.Chain == None); err != nil {
		return wrapName(c.name, err)
	}
	if !core.ChecksEnabled || c.shape.Storage == storage.Balance {
		return nil
	}
	for i, v := range c.working.All() {
		if float64(v) < -core.Tolerance {
			return wrapName(c.name, fmt.Errorf("%w: applying changes leaves %v in subcompartment %d", core.ErrInvalidArgument, v, i))
		}
	}
	return nil
}

// ApplyChanges commits the working buffer. Negative residue within
// core.Tolerance is snapped to zero. Nothing is committed if a check fails.
func (c *Compartment[V]) ApplyChanges() error {
	if err := c.Ready(); err != nil {
		return err
	}
	if c.shape.Storage != storage.Balance {
		for i, v := range c.working.All() {
			if v < 0 && float64(v) >= -core.Tolerance {
				c.working.Set(i, 0)
			}
		}
	}
	if err := c.current.CopyFrom(c.working); err != nil {
		return wrapName(c.name, err)
	}
	c.seq.markApplied()
	return nil
}

// Discard drops every pending change and returns the compartment to its last
// committed state.
func (c *Compartment[V]) Discard() {
	_ = c.working.CopyFrom(c.current)
	c.carryThrough = 0
	c.seq.markApplied()
}

// SetTotal replaces the committed total, either spread across the
// sub-compartments or placed entirely in the first one. It is only allowed
// between steps.
func (c *Compartment[V]) SetTotal(value V, distribute bool) error {
	if !c.Dormant() {
		return wrapName(c.name, fmt.Errorf("%w: cannot set the total in the middle of a step", core.ErrSequencing))
	}
	if c.current.Len() == 0 {
		if value != 0 {
			return wrapName(c.name, fmt.Errorf("%w: disabled compartment cannot hold %v", core.ErrInvalidArgument, value))
		}
		return nil
	}
	if value < 0 && c.shape.Storage != storage.Balance {
		return wrapName(c.name, fmt.Errorf("%w: total must be >= 0, got %v", core.ErrInvalidArgument, value))
	}
	c.working.Reset()
	if distribute {
		if err := c.arith.Spread(value, c.working); err != nil {
			return wrapName(c.name, err)
		}
	} else {
		c.working.Set(0, value)
	}
	return wrapName(c.name, c.current.CopyFrom(c.working))
}

// Resize changes the number of sub-compartments and spreads the existing total
// across the new length. Only resizable storage between steps can be resized.
func (c *Compartment[V]) Resize(n int) error {
	if !c.shape.Storage.Resizable() {
		return wrapName(c.name, fmt.Errorf("%w: %s storage cannot be resized", core.ErrInvalidArgument, c.shape.Storage))
	}
	if !c.Dormant() {
		return wrapName(c.name, fmt.Errorf("%w: cannot resize in the middle of a step", core.ErrSequencing))
	}
	if n < 0 {
		return wrapName(c.name, fmt.Errorf("%w: negative length %d", core.ErrInvalidArgument, n))
	}
	if limit := c.current.Cap(); limit >= 0 && n > limit {
		return wrapName(c.name, fmt.Errorf("%w: length %d exceeds maximum %d", core.ErrOutOfRange, n, limit))
	}
	total := c.current.Sum()
	if n == 0 && total != 0 {
		return wrapName(c.name, fmt.Errorf("%w: cannot resize to 0 while holding %v", core.ErrInvalidArgument, total))
	}
	if err := c.current.Resize(n); err != nil {
		return wrapName(c.name, err)
	}
	if err := c.working.Resize(n); err != nil {
		return wrapName(c.name, err)
	}
	c.shape.Subcompartments = n
	if err := c.arith.Spread(total, c.working); err != nil {
		return wrapName(c.name, err)
	}
	return wrapName(c.name, c.current.CopyFrom(c.working))
}

func (c *Compartment[V]) rateScratch(n int) []float64 {
	if cap(c.rates) < n {
		c.rates = make([]float64, n)
	}
	return c.rates[:n]
}

func (c *Compartment[V]) propScratch(n int) []float64 {
	if cap(c.props) < n {
		c.props = make([]float64, n)
	}
	return c.props[:n]
}

func (c *Compartment[V]) splitScratch(n int) []V {
	if cap(c.split) < n {
		c.split = make([]V, n)
	}
	return c.split[:n]
}
