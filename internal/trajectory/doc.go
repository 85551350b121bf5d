// Package trajectory records the compartment totals of running replicates
// step by step and summarises them across an ensemble.
//
// The store is safe for concurrent use: every replicate appends to its own
// series, and readers see a consistent copy.
package trajectory
