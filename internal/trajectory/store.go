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

package trajectory

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Point is the committed state of one replicate after a step.
type Point struct {
	Step   int                `json:"step" yaml:"step"`
	Time   float64            `json:"time" yaml:"time"`
	Totals map[string]float64 `json:"totals" yaml:"totals"`
}

// Summary holds quantiles of one compartment at one step.
type Summary struct {
	Step   int       `json:"step" yaml:"step"`
	Time   float64   `json:"time" yaml:"time"`
	Values []float64 `json:"values" yaml:"values"`
}

// Store is an in-memory ReadWriter.
type Store struct {
	mu     sync.RWMutex
	series map[int][]Point
}

var _ ReadWriter = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{series: make(map[int][]Point)}
}

func (s *Store) Append(replicate int, p Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	series := s.series[replicate]
	if n := len(series); n > 0 && p.Step <= series[n-1].Step {
		return fmt.Errorf("replicate %d: step %d recorded after step %d", replicate, p.Step, series[n-1].Step)
	}
	p.Totals = maps.Clone(p.Totals)
	s.series[replicate] = append(series, p)
	return nil
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.series)
}

func (s *Store) Series(replicate int) []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.series[replicate])
}

func (s *Store) Final(replicate int) (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.series[replicate]
	if len(series) == 0 {
		return Point{}, false
	}
	return series[len(series)-1], true
}

func (s *Store) Replicates() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.series))
}

// Quantiles summarises each step over the replicates that reached it. Steps
// are taken from the longest series.
func (s *Store) Quantiles(compartment string, qs []float64) ([]Summary, error) {
	for _, q := range qs {
		if !(q >= 0 && q <= 1) {
			return nil, fmt.Errorf("quantile must be between 0 and 1, got %v", q)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var longest []Point
	for _, series := range s.series {
		if len(series) > len(longest) {
			longest = series
		}
	}

	out := make([]Summary, 0, len(longest))
	values := make([]float64, 0, len(s.series))
	for i, p := range longest {
		values = values[:0]
		for _, series := range s.series {
			if i < len(series) {
				values = append(values, series[i].Totals[compartment])
			}
		}
		slices.Sort(values)
		sum := Summary{Step: p.Step, Time: p.Time, Values: make([]float64, len(qs))}
		for j, q := range qs {
			sum.Values[j] = stat.Quantile(q, stat.Empirical, values, nil)
		}
		out = append(out, sum)
	}
	return out, nil
}
