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

// Command blofeld runs a compartment model described by a YAML file, flags and
// BLOFELD_ environment variables, and prints the final state of every
// replicate as YAML.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ku-awdc/blofeld/internal/config"
	"github.com/ku-awdc/blofeld/internal/engine"
	"github.com/ku-awdc/blofeld/internal/logging"
	"github.com/ku-awdc/blofeld/internal/metrics"
	"github.com/ku-awdc/blofeld/internal/trajectory"
	"github.com/ku-awdc/blofeld/pkg/compartment"
	"github.com/ku-awdc/blofeld/pkg/core"
	"github.com/ku-awdc/blofeld/pkg/group"
	"github.com/ku-awdc/blofeld/pkg/random"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cliOptions struct {
	logLevel       string
	logDevelopment bool
	output         string
	full           bool
	quantiles      []float64
	metrics        bool
}

func bindCLIFlags(fs *pflag.FlagSet, o *cliOptions) {
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: info, debug, trace or a verbosity number")
	fs.BoolVar(&o.logDevelopment, "log-development", false, "human readable logs")
	fs.StringVarP(&o.output, "output", "o", "yaml", "output format: yaml or json")
	fs.BoolVar(&o.full, "full", false, "report sub-compartment values instead of totals")
	fs.Float64SliceVar(&o.quantiles, "quantiles", nil, "report these quantiles of every compartment across replicates, for example 0.05,0.5,0.95")
	fs.BoolVar(&o.metrics, "metrics", false, "append the Prometheus metrics of the run in text format")
}

type replicateReport struct {
	Replicate int    `json:"replicate" yaml:"replicate"`
	Seed      uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	State     any    `json:"state" yaml:"state"`
}

type report struct {
	Model      string                          `json:"model,omitempty" yaml:"model,omitempty"`
	Mode       string                          `json:"mode" yaml:"mode"`
	Seed       uint64                          `json:"seed,omitempty" yaml:"seed,omitempty"`
	Replicates []replicateReport               `json:"replicates" yaml:"replicates"`
	Quantiles  map[string][]trajectory.Summary `json:"quantiles,omitempty" yaml:"quantiles,omitempty"`
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("blofeld", pflag.ContinueOnError)
	var o cliOptions
	config.BindFlags(fs)
	bindCLIFlags(fs, &o)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.output != "yaml" && o.output != "json" {
		return fmt.Errorf("output must be yaml or json, got %q", o.output)
	}
	for _, q := range o.quantiles {
		if !(q >= 0 && q <= 1) {
			return fmt.Errorf("quantiles must be between 0 and 1, got %g", q)
		}
	}

	log, err := logging.NewLogger(o.logLevel, o.logDevelopment)
	if err != nil {
		return err
	}
	logging.SetLogger(log)
	ctx = logr.NewContext(ctx, log)

	spec, shapes, err := config.Load(fs)
	if err != nil {
		return err
	}
	m, err := config.Resolve(spec, shapes)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	store := trajectory.NewStore()
	opts := engine.Options{
		Steps:       m.Run.Steps,
		Replicates:  m.Run.Replicates,
		Parallelism: m.Run.Parallelism,
		Metrics:     rec,
		Model:       m.Name,
	}

	rep := report{Model: m.Name, Mode: m.Mode.String()}
	switch m.Mode {
	case core.Continuous:
		factory := engine.Factory[float64](func(int) (*group.Group[float64], error) {
			return config.Build[float64](m, compartment.Continuous{}, log)
		})
		rep.Replicates, err = runEnsemble(ctx, opts, factory, o.full, nil, rec, store)
	case core.Discrete:
		rep.Seed = m.Seed
		seedOf := func(replicate int) uint64 { return random.ReplicateSeed(m.Seed, replicate) }
		factory := engine.Factory[int](func(replicate int) (*group.Group[int], error) {
			return config.Build[int](m, compartment.Discrete{Source: random.New(seedOf(replicate))}, log)
		})
		rep.Replicates, err = runEnsemble(ctx, opts, factory, o.full, seedOf, rec, store)
	default:
		err = fmt.Errorf("unsupported mode: %v", m.Mode)
	}
	if err != nil {
		return err
	}

	if len(o.quantiles) > 0 {
		rep.Quantiles = make(map[string][]trajectory.Summary)
		for _, n := range append(group.Names(), group.Z) {
			if m.Layout.Shape(n).Enabled() || n == group.Z {
				summaries, err := store.Quantiles(n.String(), o.quantiles)
				if err != nil {
					return err
				}
				rep.Quantiles[n.String()] = summaries
			}
		}
	}

	if err := encode(stdout, o.output, rep); err != nil {
		return err
	}
	if o.metrics {
		return metrics.WriteText(stdout, reg)
	}
	return nil
}

// runEnsemble runs the replicates and collects their final states. seedOf is
// nil for continuous models.
func runEnsemble[T core.Value](
	ctx context.Context,
	opts engine.Options,
	factory engine.Factory[T],
	full bool,
	seedOf func(int) uint64,
	rec *metrics.Recorder,
	store trajectory.Writer,
) ([]replicateReport, error) {
	finals := make([]any, opts.Replicates)
	keepFinal := engine.ObserverFunc[T](func(replicate int, g *group.Group[T]) error {
		if g.Steps() == opts.Steps {
			if full {
				finals[replicate] = g.FullState()
			} else {
				finals[replicate] = g.State()
			}
		}
		return nil
	})

	if _, err := engine.RunEnsemble[T](ctx, opts, factory,
		engine.MetricsObserver[T](rec, opts.Model),
		engine.TrajectoryObserver[T](store),
		keepFinal); err != nil {
		return nil, err
	}

	out := make([]replicateReport, opts.Replicates)
	for i := range out {
		out[i] = replicateReport{Replicate: i, State: finals[i]}
		if seedOf != nil {
			out[i].Seed = seedOf(i)
		}
	}
	return out, nil
}

func encode(w io.Writer, format string, v any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}
