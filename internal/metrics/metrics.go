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

// Package metrics exposes simulation state as Prometheus metrics.
package metrics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Label names
const (
	LabelModel       = "model"
	LabelReplicate   = "replicate"
	LabelCompartment = "compartment"
)

// Recorder holds the simulation metrics of one registry. A nil Recorder
// records nothing.
type Recorder struct {
	// Committed total per compartment, Z included
	CompartmentTotal *prometheus.GaugeVec

	// Population plus balance, zero while flows are conserved
	BalanceResidual *prometheus.GaugeVec

	// Infection hazard per susceptible at the committed state
	ForceOfInfection *prometheus.GaugeVec

	// Completed steps
	Steps *prometheus.CounterVec

	// Wall time of one step
	StepDuration prometheus.Histogram
}

// New creates a Recorder with all metrics registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		CompartmentTotal: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blofeld_compartment_total",
			Help: "Committed total of a compartment",
		}, []string{LabelModel, LabelReplicate, LabelCompartment}),

		BalanceResidual: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blofeld_balance_residual",
			Help: "Sum of all compartments including the balance, zero when flows are conserved",
		}, []string{LabelModel, LabelReplicate}),

		ForceOfInfection: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blofeld_force_of_infection",
			Help: "Infection hazard per susceptible over one step",
		}, []string{LabelModel, LabelReplicate}),

		Steps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blofeld_steps_total",
			Help: "Total completed simulation steps",
		}, []string{LabelModel}),

		StepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "blofeld_step_duration_seconds",
			Help:    "Wall time of one simulation step",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

// SetTotals records the committed totals of one replicate.
func (r *Recorder) SetTotals(model string, replicate int, totals map[string]float64) {
	if r == nil {
		return
	}
	rep := strconv.Itoa(replicate)
	var residual float64
	for name, v := range totals {
		r.CompartmentTotal.WithLabelValues(model, rep, name).Set(v)
		residual += v
	}
	r.BalanceResidual.WithLabelValues(model, rep).Set(residual)
}

// SetForceOfInfection records the force of infection of one replicate.
func (r *Recorder) SetForceOfInfection(model string, replicate int, foi float64) {
	if r != nil {
		r.ForceOfInfection.WithLabelValues(model, strconv.Itoa(replicate)).Set(foi)
	}
}

// IncrementSteps records completed steps.
func (r *Recorder) IncrementSteps(model string, n int) {
	if r != nil {
		r.Steps.WithLabelValues(model).Add(float64(n))
	}
}

// ObserveStepDuration records the wall time of one step.
func (r *Recorder) ObserveStepDuration(d time.Duration) {
	if r != nil {
		r.StepDuration.Observe(d.Seconds())
	}
}

// WriteText writes every metric gathered from g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
