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

package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/ku-awdc/blofeld/internal/logging"
	"github.com/ku-awdc/blofeld/internal/metrics"
	"github.com/ku-awdc/blofeld/internal/trajectory"
	"github.com/ku-awdc/blofeld/pkg/core"
	"github.com/ku-awdc/blofeld/pkg/group"
)

// Observer is notified of the committed state of a replicate before the
// first step and after every step. Observers of an ensemble are called from
// several goroutines at once.
type Observer[T core.Value] interface {
	Observe(replicate int, g *group.Group[T]) error
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc[T core.Value] func(replicate int, g *group.Group[T]) error

func (f ObserverFunc[T]) Observe(replicate int, g *group.Group[T]) error {
	return f(replicate, g)
}

// Factory builds the group of one replicate.
type Factory[T core.Value] func(replicate int) (*group.Group[T], error)

// Options controls an ensemble run.
type Options struct {
	// Steps is the number of steps every replicate runs.
	Steps int
	// Replicates is the number of replicates.
	Replicates int
	// Parallelism caps the replicates run at once; 0 means GOMAXPROCS.
	Parallelism int
	// Metrics receives step counts and durations. May be nil.
	Metrics *metrics.Recorder
	// Model labels metrics.
	Model string
}

// Result is the outcome of one replicate.
type Result[T core.Value] struct {
	Replicate int
	Final     group.State[T]
}

// Run advances g by steps, observing the starting state and every committed
// step. It stops early when ctx is done, leaving g at its last committed state.
func Run[T core.Value](ctx context.Context, replicate int, g *group.Group[T], opts Options, observers ...Observer[T]) error {
	if opts.Steps < 0 {
		return fmt.Errorf("%w: steps must be >= 0, got %d", core.ErrInvalidArgument, opts.Steps)
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("replicate", replicate)

	if err := notify(observers, replicate, g); err != nil {
		return err
	}
	for range opts.Steps {
		if err := ctx.Err(); err != nil {
			log.V(logging.DEBUG).Info("Run cancelled", "steps", g.Steps(), "time", g.Time())
			return err
		}
		start := time.Now()
		if err := g.Update(1); err != nil {
			return fmt.Errorf("replicate %d: %w", replicate, err)
		}
		opts.Metrics.ObserveStepDuration(time.Since(start))
		opts.Metrics.IncrementSteps(opts.Model, 1)
		if err := notify(observers, replicate, g); err != nil {
			return err
		}
	}
	log.V(logging.DEBUG).Info("Replicate finished", "steps", g.Steps(), "time", g.Time())
	return nil
}

func notify[T core.Value](observers []Observer[T], replicate int, g *group.Group[T]) error {
	for _, o := range observers {
		if err := o.Observe(replicate, g); err != nil {
			return fmt.Errorf("replicate %d observer at step %d: %w", replicate, g.Steps(), err)
		}
	}
	return nil
}

// RunEnsemble builds and runs opts.Replicates replicates, at most
// opts.Parallelism at a time. The first failure cancels the remaining
// replicates and is returned. Results are indexed by replicate.
func RunEnsemble[T core.Value](ctx context.Context, opts Options, factory Factory[T], observers ...Observer[T]) ([]Result[T], error) {
	if opts.Replicates < 1 {
		return nil, fmt.Errorf("%w: replicates must be >= 1, got %d", core.ErrInvalidArgument, opts.Replicates)
	}
	limit := opts.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	log := logr.FromContextOrDiscard(ctx)
	log.Info("Starting ensemble", "model", opts.Model, "replicates", opts.Replicates, "steps", opts.Steps, "parallelism", limit)

	results := make([]Result[T], opts.Replicates)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for rep := range opts.Replicates {
		eg.Go(func() error {
			g, err := factory(rep)
			if err != nil {
				return fmt.Errorf("build replicate %d: %w", rep, err)
			}
			if err := Run(ctx, rep, g, opts, observers...); err != nil {
				return err
			}
			results[rep] = Result[T]{Replicate: rep, Final: g.State()}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Error(err, "Ensemble failed", "model", opts.Model)
		return nil, err
	}
	log.Info("Ensemble finished", "model", opts.Model, "replicates", opts.Replicates)
	return results, nil
}

// MetricsObserver publishes totals and the force of infection of every
// observed state to r.
func MetricsObserver[T core.Value](r *metrics.Recorder, model string) Observer[T] {
	return ObserverFunc[T](func(replicate int, g *group.Group[T]) error {
		r.SetTotals(model, replicate, totals(g.State()))
		r.SetForceOfInfection(model, replicate, g.ForceOfInfection())
		return nil
	})
}

// TrajectoryObserver appends every observed state to w.
func TrajectoryObserver[T core.Value](w trajectory.Writer) Observer[T] {
	return ObserverFunc[T](func(replicate int, g *group.Group[T]) error {
		st := g.State()
		return w.Append(replicate, trajectory.Point{Step: st.Steps, Time: st.Time, Totals: totals(st)})
	})
}

func totals[T core.Value](st group.State[T]) map[string]float64 {
	out := make(map[string]float64, len(st.Totals))
	for name, v := range st.Totals {
		out[name] = float64(v)
	}
	return out
}
