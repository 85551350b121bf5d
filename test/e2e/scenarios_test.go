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

package e2e

import (
	"os/exec"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
	"gopkg.in/yaml.v3"
)

type stateReport struct {
	Steps  int                `yaml:"steps"`
	Time   float64            `yaml:"time"`
	Totals map[string]float64 `yaml:"totals"`
}

type replicateReport struct {
	Replicate int         `yaml:"replicate"`
	Seed      uint64      `yaml:"seed"`
	State     stateReport `yaml:"state"`
}

type runReport struct {
	Model      string            `yaml:"model"`
	Mode       string            `yaml:"mode"`
	Seed       uint64            `yaml:"seed"`
	Replicates []replicateReport `yaml:"replicates"`
}

func runBlofeld(env []string, args ...string) *gexec.Session {
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(cmd.Environ(), env...)
	session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
	Expect(err).NotTo(HaveOccurred())
	Eventually(session, 30*time.Second).Should(gexec.Exit())
	return session
}

func decodeReport(session *gexec.Session) runReport {
	var rep runReport
	Expect(yaml.Unmarshal(session.Out.Contents(), &rep)).To(Succeed())
	return rep
}

var _ = Describe("blofeld command", func() {
	Context("deterministic SEIR", func() {
		It("should run the model and conserve the population", func() {
			session := runBlofeld(nil, "--config", "testdata/seir.yaml")
			Expect(session.ExitCode()).To(Equal(0))

			rep := decodeReport(session)
			Expect(rep.Model).To(Equal("seir"))
			Expect(rep.Mode).To(Equal("continuous"))
			Expect(rep.Replicates).To(HaveLen(1))

			st := rep.Replicates[0].State
			Expect(st.Steps).To(Equal(120))
			Expect(st.Time).To(BeNumerically("~", 120, 1e-9))
			sum := st.Totals["S"] + st.Totals["E"] + st.Totals["I"] + st.Totals["R"]
			Expect(sum).To(BeNumerically("~", 10000, 1e-6))
			Expect(st.Totals["Z"]).To(BeNumerically("~", -10000, 1e-6))
			Expect(st.Totals["R"]).To(BeNumerically(">", 1000))
		})

		It("should honour flag and environment overrides", func() {
			session := runBlofeld([]string{"BLOFELD_RUN_STEPS=10"},
				"--config", "testdata/seir.yaml", "--set", "step_duration=0.5")
			Expect(session.ExitCode()).To(Equal(0))

			st := decodeReport(session).Replicates[0].State
			Expect(st.Steps).To(Equal(10))
			Expect(st.Time).To(BeNumerically("~", 5, 1e-9))
		})
	})

	Context("stochastic ensemble", func() {
		It("should conserve individuals in every replicate and repeat from the seed", func() {
			first := runBlofeld(nil, "--config", "testdata/vaccination.yaml")
			Expect(first.ExitCode()).To(Equal(0))
			rep := decodeReport(first)
			Expect(rep.Seed).To(Equal(uint64(2024)))
			Expect(rep.Replicates).To(HaveLen(8))

			for _, r := range rep.Replicates {
				var named float64
				for name, v := range r.State.Totals {
					Expect(v).To(Equal(float64(int64(v))), "compartment %s is not whole", name)
					if name != "Z" {
						Expect(v).To(BeNumerically(">=", 0))
						named += v
					}
				}
				Expect(named + r.State.Totals["Z"]).To(BeZero())
				Expect(r.State.Time).To(BeNumerically("~", 100, 1e-9))
			}

			second := decodeReport(runBlofeld(nil, "--config", "testdata/vaccination.yaml"))
			Expect(second.Replicates).To(Equal(rep.Replicates))
		})

		It("should print metrics on request", func() {
			session := runBlofeld(nil, "--config", "testdata/vaccination.yaml", "--replicates", "2", "--metrics")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(session.Out).To(gbytes.Say(`blofeld_steps_total\{model="vaccination"\} 400`))
		})
	})

	Context("invalid input", func() {
		It("should fail on an unknown parameter", func() {
			session := runBlofeld(nil, "--config", "testdata/seir.yaml", "--set", "virulence=1")
			Expect(session.ExitCode()).NotTo(Equal(0))
			Expect(session.Err).To(gbytes.Say("unrecognised parameter"))
		})

		It("should fail on initial values in a disabled compartment", func() {
			session := runBlofeld(nil, "--config", "testdata/seir.yaml", "--compartment", "I=subcompartments: 0")
			Expect(session.ExitCode()).NotTo(Equal(0))
			Expect(session.Err).To(gbytes.Say("disabled"))
		})
	})
})
