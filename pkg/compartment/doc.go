// Package compartment implements a single epidemiological state, optionally
// split into a chain of sub-compartments so that the time spent in the state
// follows an Erlang distribution.
//
// A Compartment holds two equally sized storage buffers. Reads see the current
// buffer; insert, distribute and extraction calls mutate the working buffer;
// ApplyChanges commits working to current once per step. A step therefore looks
// like:
//
//	carry, err := c.TakeCarryProps(takeProps, carryProp, taken)
//	// route carry and taken into other compartments with Insert
//	err = c.ApplyChanges()
//
// Competing exits are converted from rates to proportions with the standard
// competing-risks discretisation (see CompetingProps), so the proportions
// leaving a sub-compartment in one step never sum to more than one.
//
// Arithmetic is injected once per compartment: Continuous moves real-valued
// counts proportionally and Discrete draws integer counts from a random.Source.
package compartment
