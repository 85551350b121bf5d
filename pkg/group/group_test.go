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
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ku-awdc/blofeld/internal/logging"
	"github.com/ku-awdc/blofeld/pkg/compartment"
	"github.com/ku-awdc/blofeld/pkg/core"
	"github.com/ku-awdc/blofeld/pkg/random"
	"github.com/ku-awdc/blofeld/pkg/storage"
)

// overdraw returns more successes than trials, which no real source does.
type overdraw struct{}

func (overdraw) Binomial(n int, _ float64) int { return n + 5 }

func sirLayout() Layout {
	return DefaultLayout().With(E, compartment.DisabledShape())
}

func sirParameters() Parameters {
	p := DefaultParameters()
	p.TransmissionClinical = 0.25
	p.Recovery = 0.1
	return p
}

var _ = Describe("Group", func() {
	Context("continuous SIR", func() {
		var g *Group[float64]

		BeforeEach(func() {
			var err error
			g, err = NewContinuous(sirLayout(), WithParameters(sirParameters()), WithLogger(logging.Log))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.SetTotal(S, 990, true)).To(Succeed())
			Expect(g.SetTotal(I, 10, true)).To(Succeed())
		})

		It("should start from the initial state", func() {
			Expect(g.Population()).To(BeNumerically("~", 1000, 1e-9))
			Expect(g.Balance()).To(BeNumerically("~", -1000, 1e-9))
			Expect(g.ForceOfInfection()).To(BeNumerically("~", 0.0025, 1e-15))
			Expect(g.Enabled(E)).To(BeFalse())
			Expect(g.Enabled(Z)).To(BeTrue())
			Expect(g.Mode()).To(Equal(core.Continuous))
		})

		It("should take the exact first step", func() {
			Expect(g.Update(1)).To(Succeed())

			infections := 990 * -math.Expm1(-0.0025)
			recoveries := 10 * -math.Expm1(-0.1)
			st := g.State()
			Expect(st.Steps).To(Equal(1))
			Expect(st.Time).To(BeNumerically("~", 1, 0))
			Expect(st.Get(S)).To(BeNumerically("~", 990-infections, 1e-9))
			Expect(st.Get(I)).To(BeNumerically("~", 10-recoveries+infections, 1e-9))
			Expect(st.Get(R)).To(BeNumerically("~", recoveries, 1e-9))
			Expect(st.Get(Z)).To(BeNumerically("~", -1000, 1e-9))
		})

		It("should conserve the population through an epidemic", func() {
			prevS, prevR := 990.0, 0.0
			peak := 0.0
			for range 200 {
				Expect(g.Update(1)).To(Succeed())
				s, _ := g.Total(S)
				i, _ := g.Total(I)
				r, _ := g.Total(R)
				Expect(s + i + r).To(BeNumerically("~", 1000, 1e-9))
				Expect(s).To(BeNumerically("<=", prevS))
				Expect(r).To(BeNumerically(">=", prevR))
				prevS, prevR = s, r
				peak = math.Max(peak, i)
			}
			i, _ := g.Total(I)
			Expect(peak).To(BeNumerically(">", 100))
			Expect(i).To(BeNumerically("<", peak))
			Expect(g.Steps()).To(Equal(200))
		})

		It("should scale rates by the step duration", func() {
			Expect(g.SetParameter("step_duration", 0.5)).To(Succeed())
			Expect(g.ForceOfInfection()).To(BeNumerically("~", 0.00125, 1e-15))
			Expect(g.Update(2)).To(Succeed())
			Expect(g.Time()).To(BeNumerically("~", 1, 1e-12))
		})

		It("should add external infection as a rate", func() {
			Expect(g.SetExternalInfection(0.01)).To(Succeed())
			Expect(g.ExternalInfection()).To(Equal(0.01))
			Expect(g.ForceOfInfection()).To(BeNumerically("~", 0.0125, 1e-15))
			Expect(g.SetExternalInfection(-1)).To(MatchError(core.ErrInvalidArgument))
		})

		It("should fall back to external infection without infectious individuals", func() {
			Expect(g.SetTotal(I, 0, true)).To(Succeed())
			Expect(g.ForceOfInfection()).To(BeZero())
			Expect(g.SetExternalInfection(0.2)).To(Succeed())
			Expect(g.ForceOfInfection()).To(BeNumerically("~", 0.2, 0))
		})

		It("should resync the balance when totals are set", func() {
			Expect(g.SetTotal(R, 50, false)).To(Succeed())
			Expect(g.Balance()).To(BeNumerically("~", -1050, 1e-9))
			Expect(g.SetTotal(Z, 1, false)).To(MatchError(core.ErrInvalidArgument))
			Expect(g.SetTotal(E, 1, false)).NotTo(Succeed())
		})

		It("should reject unknown parameters without changing anything", func() {
			before := g.Parameters()
			Expect(g.SetParameter("virulence", 1)).To(MatchError(core.ErrInvalidArgument))
			Expect(g.SetParameter("recovery", -1)).To(MatchError(core.ErrInvalidArgument))
			Expect(g.Parameters()).To(Equal(before))
		})

		It("should reject a negative number of steps", func() {
			Expect(g.Update(-1)).To(MatchError(core.ErrInvalidArgument))
			Expect(g.Update(0)).To(Succeed())
			Expect(g.Steps()).To(BeZero())
		})

		It("should snapshot every enabled compartment", func() {
			full := g.FullState()
			Expect(full.Values).To(HaveKey("S"))
			Expect(full.Values).NotTo(HaveKey("E"))
			Expect(full.Values["I"]).To(HaveLen(1))

			st := g.State()
			Expect(st.Totals).To(HaveLen(9))
			Expect(st.Get(E)).To(BeZero())
		})
	})

	Context("full graph", func() {
		It("should conserve every flow including deaths and mortality", func() {
			layout := Layout{Death: true}
			for _, n := range Names() {
				layout.Shapes[n] = compartment.SingleShape()
			}
			layout = layout.With(E, compartment.ChainShape(3)).With(I, compartment.ChainShape(2))

			p := DefaultParameters()
			p.TransmissionSubclinical = 0.1
			p.TransmissionClinical = 0.3
			p.Incubation = 0.5
			p.Progression = 0.3
			p.Recovery = 0.2
			p.Healing = 0.1
			p.Reversion = 0.02
			p.Waning = 0.05
			p.Vaccination = 0.01
			p.MortalityInfectious = 0.01
			p.MortalityDiseased = 0.05
			p.Death = 0.001
			p.DensityExponent = 0.5

			g, err := NewContinuous(layout, WithParameters(p))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.SetTotal(S, 500, true)).To(Succeed())
			Expect(g.SetTotal(I, 5, true)).To(Succeed())

			for range 100 {
				Expect(g.Update(1)).To(Succeed())
				Expect(g.Population() + g.Balance()).To(BeNumerically("~", 0, 1e-9))
				for _, n := range Names() {
					v, err := g.Values(n)
					Expect(err).NotTo(HaveOccurred())
					for _, x := range v {
						Expect(x).To(BeNumerically(">=", 0))
					}
				}
			}
			m, _ := g.Total(M)
			Expect(m).To(BeNumerically(">", 0))
			Expect(g.Population()).To(BeNumerically("<", 505))
		})
	})

	Context("discrete", func() {
		It("should conserve individuals exactly", func() {
			layout := DefaultLayout()
			layout.Death = true
			layout = layout.With(M, compartment.SingleShape()).With(E, compartment.ChainShape(2))

			p := sirParameters()
			p.Incubation = 0.4
			p.MortalityInfectious = 0.02
			p.Death = 0.005

			g, err := NewDiscrete(layout, random.New(5), WithParameters(p))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.SetTotal(S, 990, true)).To(Succeed())
			Expect(g.SetTotal(I, 10, true)).To(Succeed())

			for range 150 {
				Expect(g.Update(1)).To(Succeed())
				Expect(g.Population() + g.Balance()).To(BeZero())
				st := g.State()
				for _, n := range Names() {
					Expect(st.Get(n)).To(BeNumerically(">=", 0))
				}
			}
			Expect(g.Mode()).To(Equal(core.Discrete))
		})

		It("should repeat a run from the same seed", func() {
			run := func(seed uint64) State[int] {
				g, err := NewDiscrete(sirLayout(), random.New(seed), WithParameters(sirParameters()))
				Expect(err).NotTo(HaveOccurred())
				Expect(g.SetTotal(S, 990, true)).To(Succeed())
				Expect(g.SetTotal(I, 10, true)).To(Succeed())
				Expect(g.Update(50)).To(Succeed())
				return g.State()
			}
			Expect(run(9)).To(Equal(run(9)))
		})

		It("should leave the group untouched when a step fails", func() {
			if !core.ChecksEnabled {
				Skip("checks disabled")
			}
			g, err := NewDiscrete(sirLayout(), overdraw{}, WithParameters(sirParameters()))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.SetTotal(S, 990, false)).To(Succeed())
			Expect(g.SetTotal(I, 10, false)).To(Succeed())
			before := g.FullState()

			err = g.Update(3)
			Expect(err).To(HaveOccurred())
			var stepErr *core.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(1))
			Expect(errors.Is(err, core.ErrInvalidArgument)).To(BeTrue())

			Expect(g.FullState()).To(Equal(before))
			Expect(g.Steps()).To(BeZero())
		})
	})

	Context("layout", func() {
		It("should require S", func() {
			_, err := NewContinuous(DefaultLayout().With(S, compartment.DisabledShape()))
			Expect(err).To(MatchError(core.ErrInvalidArgument))
		})

		It("should refuse balance storage for named compartments", func() {
			_, err := NewContinuous(DefaultLayout().With(R, compartment.BalanceShape()))
			Expect(err).To(MatchError(core.ErrInvalidArgument))
		})

		It("should resize a dynamic compartment between steps", func() {
			shape, err := compartment.NewShape(2, storage.Dynamic, compartment.Sequential)
			Expect(err).NotTo(HaveOccurred())
			g, err := NewContinuous(DefaultLayout().With(E, shape))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.SetTotal(E, 8, true)).To(Succeed())
			Expect(g.Resize(E, 4)).To(Succeed())
			v, _ := g.Values(E)
			Expect(v).To(Equal([]float64{2, 2, 2, 2}))
			Expect(g.Resize(S, 2)).NotTo(Succeed())
		})
	})
})
