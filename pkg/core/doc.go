// Package core provides the value domain, error taxonomy and build-time switches
// shared by every layer of the blofeld simulation kernel.
//
// The kernel models a well-mixed population split across epidemiological states
// and advances it one fixed time step at a time. Two arithmetic modes exist:
//
//   - Continuous: real-valued counts moved by proportional arithmetic
//   - Discrete: integer counts moved by binomial and multinomial draws
//
// The mode is chosen once per model through the Value type parameter, so the
// hot loops in the compartment and group packages never branch on it.
//
// Errors:
//
// All kernel failures wrap one of four sentinels and are checked with errors.Is:
//
//	if errors.Is(err, core.ErrSequencing) {
//	    // a caller committed or extracted out of order
//	}
//
// Invariant checks:
//
// Invariant checks are on by default. Building with the blofeld_fast tag compiles
// them out; behaviour under a violated invariant is then undefined:
//
//	go build -tags blofeld_fast ./...
package core
