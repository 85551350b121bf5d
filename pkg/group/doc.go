// Package group implements the SEIDRVMZ disease-progression group: one
// compartment per epidemiological state wired into a fixed progression graph
// and stepped forward in time.
//
// States:
//
//   - S: susceptible
//   - E: exposed, neither infectious nor clinical
//   - L: latent, infectious but not clinical
//   - I: infectious and clinical
//   - D: diseased, clinical but no longer infectious
//   - R: recovered and immune
//   - V: vaccinated and immune
//   - M: dead from the disease
//   - Z: the balance, holding minus the named total plus every death
//
// Any state except S can be disabled through the Layout; individuals reaching
// a disabled stage of the E, L, I, D, R chain pass straight through it.
//
// Example usage:
//
//	g, err := group.NewContinuous(group.DefaultLayout(),
//	    group.WithParameters(pars),
//	    group.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	_ = g.SetTotal(group.S, 990, true)
//	_ = g.SetTotal(group.I, 10, true)
//	if err := g.Update(100); err != nil {
//	    return err
//	}
//	state := g.State()
package group
